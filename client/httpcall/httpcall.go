// Package httpcall executes the tools with the `http` call template.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/utcpbridge/pkg/llmutils"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/utcpbridge", "httpcall")

const (
	// MaxResponseSize is the limit of the response body
	MaxResponseSize = 16 << 20
	// maxErrorBody is the length of the response body included in the error
	maxErrorBody = 512
)

// Transport calls the HTTP endpoints described by the call templates
type Transport struct {
	client *http.Client
	vars   *catalog.Variables
}

// New returns the HTTP Transport
func New(client *http.Client, vars *catalog.Variables) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{
		client: client,
		vars:   vars,
	}
}

// CallTool executes the HTTP request built from the tool call template.
//
// Arguments are consumed in order: `{param}` segments of the URL,
// the `header_fields`, the `body_field`.
// The remaining arguments are sent as the JSON body for the methods with a body,
// or as the query parameters otherwise.
func (t *Transport) CallTool(ctx context.Context, tool *catalog.Tool, args map[string]any) (any, error) {
	tmpl := tool.CallTemplate
	if tmpl == nil || tmpl.Type != catalog.TemplateHTTP {
		return nil, errors.Errorf("tool %s: http call template is required", tool.Name)
	}
	manual := tool.ManualName

	remaining := make(map[string]any, len(args))
	for k, v := range args {
		remaining[k] = v
	}

	rawURL, err := t.vars.Substitute(manual, tmpl.URL)
	if err != nil {
		return nil, err
	}
	rawURL, err = substitutePath(rawURL, remaining)
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s", tool.Name)
	}

	method := http.MethodGet
	if tmpl.HTTPMethod != "" {
		method = strings.ToUpper(tmpl.HTTPMethod)
	}

	headers, err := t.vars.SubstituteMap(manual, tmpl.Headers)
	if err != nil {
		return nil, err
	}
	fieldHeaders := map[string]string{}
	for _, name := range tmpl.HeaderFields {
		if v, ok := remaining[name]; ok {
			fieldHeaders[name] = stringify(v)
			delete(remaining, name)
		}
	}

	var body any
	hasBody := false
	if tmpl.BodyField != "" {
		if v, ok := remaining[tmpl.BodyField]; ok {
			body = v
			hasBody = true
			delete(remaining, tmpl.BodyField)
		}
	} else if methodHasBody(method) {
		body = remaining
		hasBody = true
		remaining = nil
	}

	contentType := tmpl.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	var reader io.Reader
	if hasBody {
		payload, err := encodeBody(body, contentType)
		if err != nil {
			return nil, errors.WithMessagef(err, "tool %s", tool.Name)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "tool %s: failed to create request", tool.Name)
	}
	if len(remaining) > 0 {
		q := req.URL.Query()
		for _, k := range sortedKeys(remaining) {
			addQuery(q, k, remaining[k])
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range fieldHeaders {
		req.Header.Set(k, v)
	}
	if hasBody {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.8")
	}
	if err = tmpl.Auth.Apply(req, manual, t.vars); err != nil {
		return nil, errors.WithMessagef(err, "tool %s", tool.Name)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "tool %s: request failed", tool.Name)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, errors.Wrapf(err, "tool %s: failed to read response", tool.Name)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "response",
		"tool", tool.Name,
		"method", method,
		"url", req.URL.Redacted(),
		"code", resp.StatusCode,
		"size", len(data),
	)

	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("tool %s: HTTP %s: %s",
			tool.Name, resp.Status, llmutils.Truncate(strings.TrimSpace(string(data)), maxErrorBody))
	}

	return decodeResponse(resp.Header.Get("Content-Type"), data)
}

func methodHasBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// substitutePath replaces `{name}` segments with the escaped argument values,
// the used arguments are removed from args
func substitutePath(raw string, args map[string]any) (string, error) {
	var sb strings.Builder
	for {
		start := strings.IndexByte(raw, '{')
		if start < 0 {
			sb.WriteString(raw)
			break
		}
		end := strings.IndexByte(raw[start:], '}')
		if end < 0 {
			sb.WriteString(raw)
			break
		}
		end += start

		name := raw[start+1 : end]
		v, ok := args[name]
		if !ok {
			return "", errors.Errorf("missing path parameter: %s", name)
		}
		delete(args, name)

		sb.WriteString(raw[:start])
		sb.WriteString(url.PathEscape(stringify(v)))
		raw = raw[end+1:]
	}
	return sb.String(), nil
}

func encodeBody(body any, contentType string) ([]byte, error) {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mt == "application/x-www-form-urlencoded":
		m, ok := body.(map[string]any)
		if !ok {
			return []byte(stringify(body)), nil
		}
		form := url.Values{}
		for _, k := range sortedKeys(m) {
			addQuery(form, k, m[k])
		}
		return []byte(form.Encode()), nil
	case strings.HasPrefix(mt, "text/"):
		return []byte(stringify(body)), nil
	default:
		if s, ok := body.(string); ok && !strings.Contains(mt, "json") {
			return []byte(s), nil
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode body")
		}
		return payload, nil
	}
}

func decodeResponse(contentType string, data []byte) (any, error) {
	mt, _, _ := mime.ParseMediaType(contentType)
	if mt == "application/json" || strings.HasSuffix(mt, "+json") {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var res any
		if err := dec.Decode(&res); err != nil {
			return nil, errors.Wrap(err, "failed to decode JSON response")
		}
		return res, nil
	}
	return string(data), nil
}

func addQuery(q url.Values, k string, v any) {
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			q.Add(k, stringify(item))
		}
	default:
		q.Set(k, stringify(v))
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case map[string]any, []any:
		return llmutils.ToJSON(val)
	default:
		return fmt.Sprint(val)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
