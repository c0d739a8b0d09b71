package wirehttp

// RequestConfig selects the default headers NewRequest adds.
type RequestConfig struct {
	// AcceptEncoding advertises gzip and chunked support through
	// accept-encoding and te.
	AcceptEncoding bool
	// KeepAlive asks the peer to keep the connection open.
	KeepAlive bool
}

// DefaultRequestConfig enables every default header.
func DefaultRequestConfig() RequestConfig {
	return RequestConfig{AcceptEncoding: true, KeepAlive: true}
}

type Request struct {
	message
	Method string
	Query  string
}

// NewRequest builds an outgoing request. An empty query becomes "/".
func NewRequest(method, query string, cfg RequestConfig) *Request {
	if query == "" {
		query = "/"
	}
	r := &Request{
		message: newMessage(),
		Method:  method,
		Query:   query,
	}
	if cfg.AcceptEncoding {
		r.header.Set(HeaderAcceptEncoding, "gzip,identity")
		r.header.Set(HeaderTE, "chunked,gzip,identity")
	}
	if cfg.KeepAlive {
		r.header.Set(HeaderConnection, tokenKeepAlive)
	}
	return r
}

func (r *Request) Kind() Kind { return KindRequest }

// ShouldClose reports whether the request asks for the connection to be
// closed after the exchange.
func (r *Request) ShouldClose() bool {
	return !isKeepAlive(r.Header())
}
