// Package exchttp adapts net/http hosts to the exceptional capture core:
// a RequestSnapshot implementation over *http.Request and a panic-capture
// middleware that records faults with full request context.
package exchttp

import (
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/ashleyglee/exceptional/pkg/exceptional"
)

// Snapshot wraps an in-flight request as a capture snapshot. status is the
// response status at the moment of capture (0 if not yet written).
func Snapshot(r *http.Request, status int) exceptional.RequestSnapshot {
	return &httpSnapshot{r: r, status: status}
}

type httpSnapshot struct {
	r      *http.Request
	status int
}

func (s *httpSnapshot) StatusCode() int { return s.status }

// QueryString parses the raw query in wire order, so repeated parameters
// keep their original sequence.
func (s *httpSnapshot) QueryString() (exceptional.Pairs, error) {
	return parseQueryOrdered(s.r.URL.RawQuery)
}

// Form returns the POST/PUT body fields. Keys are emitted in sorted order
// (the parsed form is a map and has no wire order); values under one key
// keep their submitted order.
func (s *httpSnapshot) Form() (exceptional.Pairs, error) {
	if err := s.r.ParseForm(); err != nil {
		return nil, err
	}
	return pairsFromValues(s.r.PostForm), nil
}

func (s *httpSnapshot) Cookies() (exceptional.Pairs, error) {
	cookies := s.r.Cookies()
	out := make(exceptional.Pairs, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, exceptional.NameValue{Name: c.Name, Value: c.Value})
	}
	return out, nil
}

// Headers returns the request headers with the Cookie header already
// excluded; cookies travel in their own collection.
func (s *httpSnapshot) Headers() (exceptional.Pairs, error) {
	var out exceptional.Pairs
	for _, name := range sortedKeys(s.r.Header) {
		if strings.EqualFold(name, "Cookie") {
			continue
		}
		for _, v := range s.r.Header[name] {
			out = append(out, exceptional.NameValue{Name: name, Value: v})
		}
	}
	return out, nil
}

// ServerVariables exposes the host lookup the core derives Host, URL,
// HTTPMethod and IPAddress from.
func (s *httpSnapshot) ServerVariables() (exceptional.Pairs, error) {
	r := s.r
	vars := exceptional.Pairs{
		{Name: "HTTP_HOST", Value: r.Host},
		{Name: "URL", Value: r.URL.Path},
		{Name: "REQUEST_METHOD", Value: r.Method},
		{Name: "QUERY_STRING", Value: r.URL.RawQuery},
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		vars = append(vars, exceptional.NameValue{Name: "REMOTE_ADDR", Value: ip})
	} else if r.RemoteAddr != "" {
		vars = append(vars, exceptional.NameValue{Name: "REMOTE_ADDR", Value: r.RemoteAddr})
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		vars = append(vars, exceptional.NameValue{Name: "HTTP_X_FORWARDED_FOR", Value: fwd})
	}
	return vars, nil
}

// parseQueryOrdered is url.ParseQuery without the map, preserving the wire
// order of every parameter including repeats of the same name.
func parseQueryOrdered(query string) (exceptional.Pairs, error) {
	var out exceptional.Pairs
	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return nil, err
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		out = append(out, exceptional.NameValue{Name: n, Value: v})
	}
	return out, nil
}

func pairsFromValues(values url.Values) exceptional.Pairs {
	var out exceptional.Pairs
	for _, name := range sortedKeys(values) {
		for _, v := range values[name] {
			out = append(out, exceptional.NameValue{Name: name, Value: v})
		}
	}
	return out
}

func sortedKeys[M ~map[string][]string](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
