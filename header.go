package wirehttp

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/widaT/httparse"
)

// Header maps lowercase header names to their values. Only the last value
// written for a name is kept.
type Header httparse.Header

func NewHeader() Header {
	return make(Header)
}

func (h Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup reports the value for name and whether the header is present.
func (h Header) Lookup(name string) (string, bool) {
	vv := httparse.Header(h).Values(strings.ToLower(name))
	if len(vv) == 0 {
		return "", false
	}
	return string(vv[len(vv)-1]), true
}

func (h Header) Set(name, value string) {
	httparse.Header(h).Set(strings.ToLower(name), []byte(value))
}

func (h Header) Has(name string) bool {
	return httparse.Header(h).Values(strings.ToLower(name)) != nil
}

func (h Header) Del(name string) {
	httparse.Header(h).Del(strings.ToLower(name))
}

func (h Header) Len() int {
	return len(h)
}

// Keys returns the header names in sorted order.
func (h Header) Keys() []string {
	keys := lo.Keys(map[string][][]byte(h))
	sort.Strings(keys)
	return keys
}

// Tokens splits a comma separated header value into trimmed, lowercase
// tokens. Empty tokens are dropped.
func (h Header) Tokens(name string) []string {
	parts := strings.Split(h.Get(name), ",")
	return lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		p = strings.ToLower(strings.TrimSpace(p))
		return p, p != ""
	})
}

func (h Header) Clone() Header {
	c := make(httparse.Header, len(h))
	for _, k := range h.Keys() {
		for _, v := range httparse.Header(h).Values(k) {
			c.Add(k, v)
		}
	}
	return Header(c)
}
