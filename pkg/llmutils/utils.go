package llmutils

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// JSONIndent re-indents a JSON document with tabs,
// the input is returned as is if it is not a valid JSON.
func JSONIndent(body string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(body), "", "\t"); err != nil {
		return body
	}
	return buf.String()
}

func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

func BackticksJSON(js string) string {
	return "\n```json\n" + strings.TrimSpace(js) + "\n```\n"
}

func BackticksYAML(js string) string {
	return "\n```yaml\n" + strings.TrimSpace(js) + "\n```\n"
}

// IsBlank returns true if the string is empty or contains only white spaces
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Truncate returns at most max bytes of the string,
// adding ellipsis when the value was cut.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
