// Package skyportal describes the JSON documents SkyPortal publishes to the
// Hopskotch topic. No schema is enforced: a payload is any JSON object, and
// the accessors below tolerate missing or oddly typed fields.
package skyportal

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-json"
)

var ErrNotObject = errors.New("payload is not a JSON object")

// Payload - декодированный JSON-объект сообщения.
type Payload map[string]any

// Target - один элемент из data.targets.
type Target map[string]any

// Decode parses b as a single JSON object. Numbers are kept as json.Number so
// they render exactly as sent.
func Decode(b []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Payload(obj), nil
}

// Submitter returns the "submitter" field, or nil when absent.
func (p Payload) Submitter() any {
	return p["submitter"]
}

// Authors returns the "authors" field, or nil when absent.
func (p Payload) Authors() any {
	return p["authors"]
}

// Targets returns data.targets. A missing or non-object "data", or a
// non-array "targets", yields no targets; non-object elements become empty
// targets.
func (p Payload) Targets() []Target {
	data, ok := p["data"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := data["targets"].([]any)
	if !ok {
		return nil
	}

	targets := make([]Target, 0, len(raw))
	for _, item := range raw {
		obj, _ := item.(map[string]any)
		targets = append(targets, Target(obj))
	}
	return targets
}

// Name returns the target's "name" field, or nil when absent.
func (t Target) Name() any {
	return t["name"]
}
