package wirehttp

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Kind tags the two message variants.
type Kind uint8

const (
	KindRequest Kind = iota + 1
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Message is either a *Request or a *Response.
//
// A parsed message's body is a lazy, read-once stream backed by the
// connection it arrived on. It must not be read concurrently with the next
// parse on that connection.
type Message interface {
	Kind() Kind
	Header() Header
	Body() io.Reader
	SetBody(b []byte)
	SetBodyString(s string)
	SetBodyStream(r io.Reader)
	ReadBody() ([]byte, error)
	Close() error
	Connection() *Connection

	base() *message
}

type message struct {
	header Header
	body   io.Reader
	conn   *Connection
}

func newMessage() message {
	return message{header: NewHeader()}
}

func (m *message) base() *message { return m }

func (m *message) Header() Header {
	if m.header == nil {
		m.header = NewHeader()
	}
	return m.header
}

// Body returns the body stream, or nil when the message has none.
func (m *message) Body() io.Reader {
	return m.body
}

func (m *message) SetBody(b []byte) {
	m.body = bytes.NewReader(b)
}

func (m *message) SetBodyString(s string) {
	m.body = strings.NewReader(s)
}

func (m *message) SetBodyStream(r io.Reader) {
	m.body = r
}

// ReadBody drains the body stream.
func (m *message) ReadBody() ([]byte, error) {
	if m.body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(m.body)
	if err != nil {
		return b, errors.WithStack(err)
	}
	return b, nil
}

// Close releases the body stream. For a parsed message this skips whatever
// body bytes are left so the connection can carry the next message.
func (m *message) Close() error {
	if cl, ok := m.body.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// Connection returns the connection the message was read from, if any.
func (m *message) Connection() *Connection {
	return m.conn
}
