package bridge

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/utcpbridge/client"
)

// Adapt returns one bridged tool per catalog tool,
// all sharing the client
func Adapt(c client.Client, list []*catalog.Tool, opts ...Option) []*Tool {
	o := newOptions(opts)
	res := make([]*Tool, 0, len(list))
	for _, t := range list {
		if t == nil {
			continue
		}
		res = append(res, newTool(t, c, o))
	}
	return res
}

// FromProvider lists the tools of the provider and adapts them
func FromProvider(ctx context.Context, p catalog.Provider, c client.Client, opts ...Option) ([]*Tool, error) {
	list, err := p.ListTools(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to list tools")
	}
	return Adapt(c, list, opts...), nil
}
