package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidArguments is returned when the arguments are not a JSON object
var ErrInvalidArguments = errors.New("invalid arguments")

// ErrorPrefix starts the text of a failed tool call
const ErrorPrefix = "Error: "

// Result is the outcome of the tool invocation
type Result struct {
	// Output is the text of the successful result
	Output string
	// Err is the cause of the failure
	Err error
}

// Failed returns true if the invocation failed
func (r Result) Failed() bool {
	return r.Err != nil
}

// String returns the text returned to the agent
func (r Result) String() string {
	if r.Err != nil {
		return ErrorPrefix + r.Err.Error()
	}
	return r.Output
}

// ParseArguments decodes the arguments of the tool call.
// A blank blob is the same as `{}`, numbers are decoded as json.Number.
func ParseArguments(blob string) (map[string]any, error) {
	if strings.TrimSpace(blob) == "" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(blob))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse arguments"), ErrInvalidArguments)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Mark(errors.New("failed to parse arguments: unexpected data after JSON object"), ErrInvalidArguments)
	}

	args, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Mark(errors.Errorf("failed to parse arguments: expected JSON object, got %s", jsonKind(v)), ErrInvalidArguments)
	}
	return args, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FormatResult returns the text of the tool result:
// maps, slices, arrays and structs are encoded as JSON,
// other values are returned in their textual form.
func FormatResult(v any) (string, error) {
	if v == nil {
		return "null", nil
	}

	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case json.RawMessage:
		return string(val), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "null", nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", errors.Wrap(err, "failed to serialize result")
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	default:
		return fmt.Sprint(rv.Interface()), nil
	}
}
