package relay

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Shape identifies which known upstream reply layout produced the answer.
type Shape int

const (
	// ShapeEmpty is an absent, invalid or falsy JSON value.
	ShapeEmpty Shape = iota
	ShapeAnswer
	ShapeOutput
	ShapeChoices
	ShapeResults
	ShapeMessage
	ShapeText
	ShapeContent
	// ShapeOpaque is any other value; the answer is its string form.
	ShapeOpaque
)

var shapeNames = [...]string{"empty", "answer", "output", "choices", "results", "message", "text", "content", "opaque"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "unknown"
}

type object map[string]json.RawMessage

// matcher tries to read one shape out of a top-level object.
type matcher func(obj object) (string, bool)

// shapes are tried in order. The first match wins.
var shapes = []struct {
	shape Shape
	match matcher
}{
	{ShapeAnswer, field("answer")},
	{ShapeOutput, field("output")},
	{ShapeChoices, matchChoices},
	{ShapeResults, matchResults},
	{ShapeMessage, field("message")},
	{ShapeText, field("text")},
	{ShapeContent, field("content")},
}

// Normalize extracts a human-readable answer from an upstream reply of
// unknown shape.
func Normalize(raw []byte) string {
	answer, _ := Parse(raw)
	return answer
}

// Parse is Normalize that also reports the matched shape.
func Parse(raw []byte) (string, Shape) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !gjson.ValidBytes(raw) || isFalsy(raw) {
		return "", ShapeEmpty
	}

	var obj object
	if raw[0] != '{' || json.Unmarshal(raw, &obj) != nil {
		return stringForm(raw), ShapeOpaque
	}

	for _, s := range shapes {
		if answer, ok := s.match(obj); ok {
			return answer, s.shape
		}
	}
	return stringForm(raw), ShapeOpaque
}

// field matches when key is present, whatever its value.
func field(key string) matcher {
	return func(obj object) (string, bool) {
		v, ok := obj[key]
		if !ok {
			return "", false
		}
		return stringForm(v), true
	}
}

// firstElement returns the first item of a non-empty array under key.
func firstElement(obj object, key string) (json.RawMessage, bool) {
	v, ok := obj[key]
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	return items[0], true
}

func matchChoices(obj object) (string, bool) {
	first, ok := firstElement(obj, "choices")
	if !ok {
		return "", false
	}

	var choice struct {
		Text json.RawMessage `json:"text"`
	}
	if isObject(first) && json.Unmarshal(first, &choice) == nil {
		return stringForm(choice.Text), true
	}
	return textForm(first), true
}

func matchResults(obj object) (string, bool) {
	first, ok := firstElement(obj, "results")
	if !ok {
		return "", false
	}

	var result struct {
		Message json.RawMessage `json:"message"`
	}
	if isObject(first) && json.Unmarshal(first, &result) == nil && isObject(result.Message) {
		var msg struct {
			Content json.RawMessage `json:"content"`
		}
		if json.Unmarshal(result.Message, &msg) == nil {
			return stringForm(msg.Content), true
		}
	}
	return textForm(first), true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// isFalsy reports null, false, zero, "", [] and {}.
func isFalsy(raw []byte) bool {
	switch r := gjson.ParseBytes(raw); r.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.Number:
		return r.Num == 0
	case gjson.String:
		return r.Str == ""
	case gjson.JSON:
		empty := true
		r.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return empty
	}
	return false
}

// stringForm renders a matched field value: falsy values are empty,
// anything else goes through textForm.
func stringForm(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isFalsy(raw) {
		return ""
	}
	return textForm(raw)
}

// textForm renders any JSON value as text: strings unquoted, everything
// else compact JSON.
func textForm(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
