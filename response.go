package wirehttp

type Response struct {
	message
	// StatusCode is the raw status, code and reason phrase, e.g. "200 OK".
	StatusCode string
}

func NewResponse(statusCode string) *Response {
	return &Response{
		message:    newMessage(),
		StatusCode: statusCode,
	}
}

func (r *Response) Kind() Kind { return KindResponse }

// Code returns the numeric part of StatusCode, or -1 when it has none.
func (r *Response) Code() int {
	if len(r.StatusCode) < 3 {
		return -1
	}
	n := 0
	for _, c := range []byte(r.StatusCode[:3]) {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	if len(r.StatusCode) > 3 && r.StatusCode[3] != ' ' {
		return -1
	}
	return n
}

// SetClose marks the response as the last one on its connection.
func (r *Response) SetClose(b bool) {
	if b {
		r.Header().Set(HeaderConnection, tokenClose)
		return
	}
	r.Header().Set(HeaderConnection, tokenKeepAlive)
}
