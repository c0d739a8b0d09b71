package wirehttp

import (
	"compress/gzip"
	"io"
	"strings"

	"github.com/pingcap/errors"
)

// TransferEncoding is the wire framing of a message body.
type TransferEncoding uint8

const (
	TransferIdentity TransferEncoding = iota
	TransferChunked
	TransferGzip
)

func (e TransferEncoding) String() string {
	switch e {
	case TransferIdentity:
		return tokenIdentity
	case TransferChunked:
		return tokenChunked
	case TransferGzip:
		return tokenGzip
	default:
		return "unknown"
	}
}

// TransferEncodingFromHeader maps a transfer-encoding header value to its
// decoder variant. An empty value means identity.
func TransferEncodingFromHeader(value string) (TransferEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", tokenIdentity:
		return TransferIdentity, nil
	case tokenChunked:
		return TransferChunked, nil
	case tokenGzip:
		return TransferGzip, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedTransferEncoding, "%q", value)
	}
}

// NewTransferDecoder removes the wire framing of enc from r. A negative
// contentLength means the length is unknown.
//
// Closing the decoder never closes r.
func NewTransferDecoder(r io.Reader, enc TransferEncoding, contentLength int64) (io.ReadCloser, error) {
	switch enc {
	case TransferIdentity:
		return newIdentityTransfer(r, contentLength), nil
	case TransferChunked:
		return newChunkedTransfer(r), nil
	case TransferGzip:
		return newGzipTransfer(r, contentLength), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedTransferEncoding, "%s", enc)
	}
}

type identityTransfer struct {
	r        io.Reader
	remain   int64 // -1 when unknown
	finished bool
}

func newIdentityTransfer(r io.Reader, contentLength int64) *identityTransfer {
	if contentLength < 0 {
		contentLength = -1
	}
	return &identityTransfer{r: r, remain: contentLength, finished: contentLength == 0}
}

func (t *identityTransfer) Read(p []byte) (int, error) {
	if t.finished {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if t.remain > 0 && int64(len(p)) > t.remain {
		p = p[:t.remain]
	}
	n, err := t.r.Read(p)
	if t.remain > 0 {
		t.remain -= int64(n)
		if t.remain == 0 {
			t.finished = true
			if err == io.EOF {
				err = nil
			}
		}
	}
	if err == io.EOF {
		t.finished = true
		if t.remain > 0 {
			return n, io.ErrUnexpectedEOF
		}
	}
	return n, err
}

// Close skips the rest of the body. A body delimited by the end of the
// stream is read until the stream ends.
func (t *identityTransfer) Close() error {
	if t.finished {
		return nil
	}
	return drain(t)
}

type chunkedTransfer struct {
	r        io.Reader
	lines    *LineReader
	remain   int64
	finished bool
}

func newChunkedTransfer(r io.Reader) *chunkedTransfer {
	return &chunkedTransfer{r: r, lines: NewLineReader(r, defaultMaxLineLength)}
}

func (c *chunkedTransfer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && !c.finished {
		if c.remain == 0 {
			size, err := c.readChunkSize()
			if err != nil {
				return n, err
			}
			if size == 0 {
				if err := c.readTrailer(); err != nil {
					return n, err
				}
				c.finished = true
				break
			}
			c.remain = size
		}

		want := p[n:]
		if int64(len(want)) > c.remain {
			want = want[:c.remain]
		}
		m, err := c.r.Read(want)
		n += m
		c.remain -= int64(m)
		if c.remain == 0 && m > 0 {
			if err := c.expectCRLF(); err != nil {
				return n, err
			}
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return n, errors.WithStack(err)
		}
		if m == 0 {
			break
		}
	}
	if n == 0 && c.finished {
		return 0, io.EOF
	}
	return n, nil
}

func (c *chunkedTransfer) Close() error {
	if c.finished {
		return nil
	}
	return drain(c)
}

func (c *chunkedTransfer) readChunkSize() (int64, error) {
	line, ok, err := c.lines.ReadLine()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.WithStack(io.ErrUnexpectedEOF)
	}
	line = strings.TrimSpace(removeChunkExtension(line))
	if line == "" {
		return 0, errors.Wrap(ErrMalformedChunk, "empty chunk size")
	}
	size, err := parseHexUint(line)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedChunk, "chunk size %q: %v", line, err)
	}
	return size, nil
}

func (c *chunkedTransfer) expectCRLF() error {
	line, ok, err := c.lines.ReadLine()
	if err != nil {
		return err
	}
	if !ok {
		return errors.WithStack(io.ErrUnexpectedEOF)
	}
	if line != "" {
		return errors.Wrap(ErrMalformedChunk, "cannot find crlf at the end of chunk")
	}
	return nil
}

// readTrailer consumes the lines after the last chunk up to and including
// the blank line. Trailer fields are discarded.
func (c *chunkedTransfer) readTrailer() error {
	for {
		line, ok, err := c.lines.ReadLine()
		if err != nil {
			return err
		}
		if !ok || line == "" {
			return nil
		}
	}
}

type gzipTransfer struct {
	src      io.Reader
	zr       *gzip.Reader
	finished bool
}

func newGzipTransfer(r io.Reader, contentLength int64) *gzipTransfer {
	src := r
	if contentLength >= 0 {
		src = io.LimitReader(r, contentLength)
	}
	return &gzipTransfer{src: src, finished: contentLength == 0}
}

func (g *gzipTransfer) Read(p []byte) (int, error) {
	if g.finished {
		return 0, io.EOF
	}
	if g.zr == nil {
		zr, err := newSingleGzipReader(g.src)
		if err != nil {
			g.finished = true
			return 0, err
		}
		g.zr = zr
	}
	n, err := g.zr.Read(p)
	if err == io.EOF {
		g.release()
		if lr, ok := g.src.(*io.LimitedReader); ok && lr.N > 0 {
			if derr := drain(lr); derr != nil {
				return n, derr
			}
		}
	}
	return n, err
}

func (g *gzipTransfer) Close() error {
	if g.finished {
		return nil
	}
	if lr, ok := g.src.(*io.LimitedReader); ok {
		g.release()
		return drain(lr)
	}
	g.release()
	return nil
}

func (g *gzipTransfer) release() {
	g.finished = true
	if g.zr != nil {
		g.zr.Close()
		g.zr = nil
	}
}

// newSingleGzipReader reads exactly one gzip member so that no byte after
// it is taken from r.
func newSingleGzipReader(r io.Reader) (*gzip.Reader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.WithStack(err)
	}
	zr.Multistream(false)
	return zr, nil
}
