package wirehttp

import (
	"io"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

var lineBufferPool bytebufferpool.Pool

// LineReader reads CRLF terminated lines from a byte stream one byte at a
// time, so bytes following the terminator stay in the stream for the body
// decoders.
type LineReader struct {
	r         io.Reader
	br        io.ByteReader
	one       [1]byte
	maxLength int
}

// NewLineReader returns a LineReader over r. A maxLength of zero or less
// disables the line length check.
func NewLineReader(r io.Reader, maxLength int) *LineReader {
	lr := &LineReader{r: r, maxLength: maxLength}
	if br, ok := r.(io.ByteReader); ok {
		lr.br = br
	}
	return lr
}

// ReadLine returns the next line without its terminator.
//
// ok is false only when the stream ended before any byte of the line was
// read. A stream that ends in the middle of a line yields the partial
// content with ok set.
func (lr *LineReader) ReadLine() (line string, ok bool, err error) {
	buf := lineBufferPool.Get()
	defer lineBufferPool.Put(buf)

	read := 0
	pendingCR := false
	for {
		b, err := lr.readByte()
		if err != nil {
			if err != io.EOF {
				return "", false, errors.WithStack(err)
			}
			if read == 0 {
				return "", false, nil
			}
			if pendingCR {
				buf.WriteByte('\r')
			}
			return string(buf.B), true, nil
		}
		read++

		if pendingCR {
			if b == '\n' {
				return string(buf.B), true, nil
			}
			buf.WriteByte('\r')
			pendingCR = false
		}
		if b == '\r' {
			pendingCR = true
			continue
		}
		buf.WriteByte(b)
		if lr.maxLength > 0 && buf.Len() > lr.maxLength {
			return "", true, ErrLineTooLong
		}
	}
}

func (lr *LineReader) readByte() (byte, error) {
	if lr.br != nil {
		return lr.br.ReadByte()
	}
	for {
		n, err := lr.r.Read(lr.one[:])
		if n == 1 {
			return lr.one[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
