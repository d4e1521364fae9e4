package bridge

import "github.com/effective-security/utcpbridge/tools"

// Option configures the bridged tools
type Option func(*options)

type options struct {
	namePrefix string
	callback   tools.Callback
}

func newOptions(opts []Option) *options {
	o := &options{
		namePrefix: DefaultNamePrefix,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithNamePrefix overrides the prefix of the names that do not start
// with an alphanumeric character
func WithNamePrefix(prefix string) Option {
	return func(o *options) {
		o.namePrefix = SanitizeName(prefix)
	}
}

// WithCallback sets the handler of the tool events
func WithCallback(cb tools.Callback) Option {
	return func(o *options) {
		o.callback = cb
	}
}
