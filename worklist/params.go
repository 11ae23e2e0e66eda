package worklist

import (
	"net/url"
	"sort"
	"strings"
)

const (
	IncludeField    = "includefield"
	IncludeFieldAll = "all"
)

// Params is a multimap of query parameters. Each key holds a set of values:
// adding a value that is already present has no effect.
type Params map[string]map[string]struct{}

func (p Params) Add(key, value string) {
	values, ok := p[key]
	if !ok {
		values = make(map[string]struct{})
		p[key] = values
	}
	values[value] = struct{}{}
}

func (p Params) Has(key, value string) bool {
	_, ok := p[key][value]
	return ok
}

// Values returns the values of key in sorted order.
func (p Params) Values(key string) []string {
	values := make([]string, 0, len(p[key]))
	for v := range p[key] {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of key/value pairs.
func (p Params) Len() int {
	n := 0
	for _, values := range p {
		n += len(values)
	}
	return n
}

// Encode renders the parameters as a URL query string. The values of a key
// are joined with commas into a single occurrence of that key.
func (p Params) Encode() string {
	query := url.Values{}
	for _, k := range p.Keys() {
		query.Set(k, strings.Join(p.Values(k), ","))
	}
	return query.Encode()
}
