package skyportal

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	p, err := Decode([]byte(`{"submitter":"alice","authors":["bob"],"data":{"targets":[{"name":"NGC1"},{}]}}`))
	require.NoError(t, err)

	assert.Equal(t, "alice", p.Submitter())
	assert.Equal(t, []any{"bob"}, p.Authors())

	targets := p.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, "NGC1", targets[0].Name())
	assert.Nil(t, targets[1].Name())
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"submitter":`,
		"not an object": `["a", "b"]`,
		"scalar":        `42`,
		"trailing data": `{"a":1} {"b":2}`,
		"garbage tail":  `{"a":1} xyz`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(in))
			require.Error(t, err)
		})
	}

	_, err := Decode([]byte(`[1]`))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestTargets_Tolerant(t *testing.T) {
	cases := map[string]struct {
		in    string
		count int
	}{
		"no data":           {`{}`, 0},
		"data not object":   {`{"data":"x"}`, 0},
		"no targets":        {`{"data":{}}`, 0},
		"targets not array": {`{"data":{"targets":{"name":"x"}}}`, 0},
		"non-object target": {`{"data":{"targets":["x", {"name":"y"}]}}`, 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := Decode([]byte(tc.in))
			require.NoError(t, err)
			assert.Len(t, p.Targets(), tc.count)
		})
	}
}

func TestMissingFieldsAreNil(t *testing.T) {
	p, err := Decode([]byte(`{"other":1}`))
	require.NoError(t, err)

	assert.Nil(t, p.Submitter())
	assert.Nil(t, p.Authors())
}

func TestDisplay(t *testing.T) {
	p, err := Decode([]byte(`{"n":7,"f":1.50,"list":["bob","o'neil",null,true,false,3],"obj":{"b":1,"a":"x"}}`))
	require.NoError(t, err)

	assert.Equal(t, "None", Display(nil))
	assert.Equal(t, "alice", Display("alice"))
	assert.Equal(t, "['bob']", Display([]any{"bob"}))
	assert.Equal(t, "7", Display(p["n"]))
	assert.Equal(t, "1.50", Display(p["f"]))
	assert.Equal(t, `['bob', "o'neil", None, True, False, 3]`, Display(p["list"]))
	assert.Equal(t, "{'a': 'x', 'b': 1}", Display(p["obj"]))
	assert.Equal(t, "2.5", Display(2.5))
	assert.Equal(t, "[]", Display([]any{}))
}

func TestDisplay_Quoting(t *testing.T) {
	assert.Equal(t, `["o'neil"]`, Display([]any{"o'neil"}))
	assert.Equal(t, `['say "hi"']`, Display([]any{`say "hi"`}))
	assert.Equal(t, `['it\'s "x"']`, Display([]any{`it's "x"`}))
	assert.Equal(t, `['a\\b']`, Display([]any{`a\b`}))
	assert.Equal(t, `{"o'k": 1}`, Display(map[string]any{"o'k": json.Number("1")}))
}

func TestDisplay_NumbersKeepWireSpelling(t *testing.T) {
	p, err := Decode([]byte(`{"a":1e2,"b":[1E-3]}`))
	require.NoError(t, err)

	assert.Equal(t, "1e2", Display(p["a"]))
	assert.Equal(t, "[1E-3]", Display(p["b"]))
}
