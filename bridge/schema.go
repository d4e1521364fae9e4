package bridge

import (
	"slices"

	"github.com/effective-security/utcpbridge/catalog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Parameters is the JSON schema of the tool parameters.
// It is always an object schema with `properties` and `required`,
// even when the tool has no inputs.
type Parameters struct {
	Type       string                              `json:"type" yaml:"type"`
	Properties *orderedmap.OrderedMap[string, any] `json:"properties" yaml:"properties"`
	Required   []string                            `json:"required" yaml:"required"`
}

// ProjectSchema returns the parameters schema of the tool inputs.
// The property schemas are copied as declared, in the declared order.
func ProjectSchema(inputs *catalog.Schema) *Parameters {
	p := &Parameters{
		Type:       "object",
		Properties: orderedmap.New[string, any](),
		Required:   []string{},
	}
	if inputs == nil || inputs.Properties == nil || inputs.Properties.Len() == 0 {
		return p
	}

	for pair := inputs.Properties.Oldest(); pair != nil; pair = pair.Next() {
		p.Properties.Set(pair.Key, pair.Value)
	}
	if len(inputs.Required) > 0 {
		p.Required = slices.Clone(inputs.Required)
	}
	return p
}

// PropertyNames returns the names of the properties in the declared order
func (p *Parameters) PropertyNames() []string {
	names := make([]string, 0, p.Properties.Len())
	for pair := p.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
