package schema_test

import (
	"reflect"
	"testing"

	"github.com/effective-security/utcpbridge/pkg/llmutils"
	"github.com/effective-security/utcpbridge/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherRequest struct {
	Location string `json:"location" jsonschema:"description=City name"`
	Unit     string `json:"unit" jsonschema:"description=Unit of measurement,enum=celsius,enum=fahrenheit"`
}

type searchRequest struct {
	Query string   `json:"query" jsonschema:"description=Query to search for relevant content"`
	Limit int      `json:"limit,omitempty" jsonschema:"description=Max results"`
	Pair  *kvPair  `json:"pair,omitempty" jsonschema:"description=Extra pair"`
	Tags  []string `json:"tags,omitempty"`
}

type kvPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func TestSchema(t *testing.T) {
	t.Parallel()

	t.Run("Weather", func(t *testing.T) {
		t.Parallel()

		s, err := schema.New(reflect.TypeOf(weatherRequest{}))
		require.NoError(t, err)
		exp := `{
	"properties": {
		"location": {
			"type": "string",
			"description": "City name"
		},
		"unit": {
			"type": "string",
			"enum": [
				"celsius",
				"fahrenheit"
			],
			"description": "Unit of measurement"
		}
	},
	"type": "object",
	"required": [
		"location",
		"unit"
	]
}`
		assert.Equal(t, exp, s.String())
		assert.Equal(t, exp, llmutils.ToJSONIndent(s.Parameters))

		// cached
		s2, err := schema.New(reflect.TypeOf(&weatherRequest{}))
		require.NoError(t, err)
		assert.Same(t, s, s2)

		js, err := s.JSON()
		require.NoError(t, err)
		assert.Contains(t, string(js), `"required":["location","unit"]`)
	})

	t.Run("Nested", func(t *testing.T) {
		t.Parallel()

		s, err := schema.New(reflect.TypeOf(searchRequest{}))
		require.NoError(t, err)

		var names []string
		for pair := s.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
			names = append(names, pair.Key)
		}
		assert.Equal(t, []string{"query", "limit", "pair", "tags"}, names)
		assert.Equal(t, []string{"query"}, s.Parameters.Required)

		pair, ok := s.Parameters.Properties.Get("pair")
		require.True(t, ok)
		assert.Equal(t, "object", pair.Type)
		assert.Empty(t, pair.Ref)
		assert.Equal(t, []string{"key", "value"}, pair.Required)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()

		s, err := schema.New(reflect.TypeOf(struct{}{}))
		require.NoError(t, err)
		assert.Equal(t, "object", s.Parameters.Type)
		assert.Equal(t, 0, s.Parameters.Properties.Len())
	})

	t.Run("Unsupported", func(t *testing.T) {
		t.Parallel()

		_, err := schema.New(reflect.TypeOf("string"))
		assert.EqualError(t, err, "unsupported type string: only structs can describe tool parameters")

		_, err = schema.New(nil)
		assert.EqualError(t, err, "type is required")
	})
}

func TestFromAny(t *testing.T) {
	s, err := schema.FromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"query"},
	})
	require.NoError(t, err)
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"query"}, s.Required)
	q, ok := s.Properties.Get("query")
	require.True(t, ok)
	assert.Equal(t, "string", q.Type)

	_, err = schema.FromAny(func() {})
	assert.Error(t, err)
}
