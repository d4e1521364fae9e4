package bridge_test

import (
	"encoding/json"
	"testing"

	"github.com/effective-security/utcpbridge/bridge"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectSchema_Empty(t *testing.T) {
	exp := `{"type":"object","properties":{},"required":[]}`

	for _, inputs := range []*catalog.Schema{
		nil,
		{},
		{Type: "object"},
		{Type: "object", Required: []string{"ghost"}},
	} {
		p := bridge.ProjectSchema(inputs)
		js, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Equal(t, exp, string(js))
		assert.Empty(t, p.PropertyNames())
	}
}

func TestProjectSchema(t *testing.T) {
	var inputs catalog.Schema
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"description": "ignored",
		"properties": {
			"zeta": {"type": "string", "description": "last letter"},
			"alpha": {"type": "integer", "minimum": 1},
			"middle": {"type": "array", "items": {"type": "string"}},
			"nested": {"type": "object", "properties": {"b": {"type": "boolean"}, "a": {"type": "number"}}}
		},
		"required": ["middle", "zeta"]
	}`), &inputs))

	p := bridge.ProjectSchema(&inputs)
	assert.Equal(t, "object", p.Type)
	assert.Equal(t, []string{"zeta", "alpha", "middle", "nested"}, p.PropertyNames())
	assert.Equal(t, []string{"middle", "zeta"}, p.Required)

	js, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t,
		`{"type":"object","properties":{"zeta":{"description":"last letter","type":"string"},"alpha":{"minimum":1,"type":"integer"},"middle":{"items":{"type":"string"},"type":"array"},"nested":{"properties":{"a":{"type":"number"},"b":{"type":"boolean"}},"type":"object"}},"required":["middle","zeta"]}`,
		string(js))

	// property schemas are copied verbatim
	var got, exp map[string]any
	require.NoError(t, json.Unmarshal(js, &got))
	inputsJS, err := json.Marshal(inputs.Properties)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(inputsJS, &exp))
	if diff := cmp.Diff(exp, got["properties"]); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}

	// the projection does not share the required list
	p.Required[0] = "changed"
	assert.Equal(t, "middle", inputs.Required[0])
}

func TestProjectSchema_NoRequired(t *testing.T) {
	var inputs catalog.Schema
	require.NoError(t, json.Unmarshal([]byte(`{"properties": {"q": {"type": "string"}}}`), &inputs))

	js, err := json.Marshal(bridge.ProjectSchema(&inputs))
	require.NoError(t, err)
	assert.Equal(t, `{"type":"object","properties":{"q":{"type":"string"}},"required":[]}`, string(js))
}
