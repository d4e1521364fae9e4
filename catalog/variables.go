package catalog

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// Variables resolves the `${VAR}` and `$VAR` references in the call templates.
//
// A variable is looked up by the key namespaced with the manual name first,
// then by the plain key, in the explicit values and then in the environment.
// The namespaced key is the manual name with `_` doubled, followed by `_` and the variable:
// `service_catalog` and `TOKEN` resolve `service__catalog_TOKEN`.
type Variables struct {
	values    map[string]string
	lookupEnv func(string) (string, bool)
}

// NewVariables returns Variables with explicit values,
// falling back to the process environment
func NewVariables(values map[string]string) *Variables {
	return &Variables{
		values:    values,
		lookupEnv: os.LookupEnv,
	}
}

// WithLookupEnv replaces the environment lookup, used in tests
func (v *Variables) WithLookupEnv(fn func(string) (string, bool)) *Variables {
	v.lookupEnv = fn
	return v
}

// NamespacedKey returns the variable key for the manual
func NamespacedKey(manual, name string) string {
	if manual == "" {
		return name
	}
	return strings.ReplaceAll(manual, "_", "__") + "_" + name
}

// Get returns the value of the variable
func (v *Variables) Get(manual, name string) (string, error) {
	keys := []string{NamespacedKey(manual, name), name}
	if manual == "" {
		keys = keys[1:]
	}

	if v != nil {
		for _, key := range keys {
			if val, ok := v.values[key]; ok {
				return val, nil
			}
		}
	}

	lookup := os.LookupEnv
	if v != nil && v.lookupEnv != nil {
		lookup = v.lookupEnv
	}
	for _, key := range keys {
		if val, ok := lookup(key); ok {
			return val, nil
		}
	}
	return "", errors.Errorf("variable %s referenced in manual %q is not defined", name, manual)
}

// Substitute replaces the variable references in s
func (v *Variables) Substitute(manual, s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var firstErr error
	res := os.Expand(s, func(name string) string {
		val, err := v.Get(manual, name)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return res, nil
}

// SubstituteMap returns a copy of m with the values substituted
func (v *Variables) SubstituteMap(manual string, m map[string]string) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	res := make(map[string]string, len(m))
	for k, val := range m {
		sub, err := v.Substitute(manual, val)
		if err != nil {
			return nil, errors.WithMessagef(err, "header %s", k)
		}
		res[k] = sub
	}
	return res, nil
}
