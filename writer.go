package wirehttp

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

var headBufferPool bytebufferpool.Pool

// Writer serializes messages. Bodies are copied verbatim: the caller
// supplies wire-ready bytes matching the framing headers it set.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 4096)}
}

func (wr *Writer) WriteMessage(m Message) error {
	head := headBufferPool.Get()
	defer headBufferPool.Put(head)

	head.B = appendGreeting(head.B, m)
	h := m.Header()
	for _, k := range h.Keys() {
		head.B = appendLine(head.B, k, h.Get(k))
	}
	head.B = append(head.B, byteCRLF...)

	if _, err := wr.w.Write(head.B); err != nil {
		return errors.WithStack(err)
	}
	if err := wr.w.Flush(); err != nil {
		return errors.WithStack(err)
	}
	if err := wr.writeBody(m); err != nil {
		return err
	}
	return errors.WithStack(wr.w.Flush())
}

func (wr *Writer) writeBody(m Message) error {
	body := m.Body()
	if body == nil {
		return nil
	}
	if _, err := bufCopy(wr.w, body); err != nil {
		return errors.WithStack(err)
	}
	if cl, ok := body.(io.Closer); ok {
		return errors.WithStack(cl.Close())
	}
	return nil
}

func appendGreeting(dst []byte, m Message) []byte {
	switch msg := m.(type) {
	case *Request:
		dst = append(dst, msg.Method...)
		dst = append(dst, byteSpace...)
		dst = append(dst, msg.Query...)
		dst = append(dst, byteSpace...)
		dst = append(dst, byteHTTP11...)
	case *Response:
		dst = append(dst, byteHTTP11...)
		dst = append(dst, byteSpace...)
		dst = append(dst, msg.StatusCode...)
	}
	return append(dst, byteCRLF...)
}

func appendLine(dst []byte, key, value string) []byte {
	dst = append(dst, key...)
	dst = append(dst, byteColonSpace...)
	dst = append(dst, value...)
	return append(dst, byteCRLF...)
}
