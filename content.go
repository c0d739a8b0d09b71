package wirehttp

import (
	"compress/gzip"
	"io"
	"strings"

	"github.com/pingcap/errors"
)

// ContentEncoding is the compression applied to a message body.
type ContentEncoding uint8

const (
	ContentIdentity ContentEncoding = iota
	ContentGzip
	// ContentUnsupported marks a content-encoding the engine cannot decode.
	// Its bytes are passed through undecoded.
	ContentUnsupported
)

func (e ContentEncoding) String() string {
	switch e {
	case ContentIdentity:
		return tokenIdentity
	case ContentGzip:
		return tokenGzip
	default:
		return "unsupported"
	}
}

// ContentEncodingFromHeader maps a content-encoding header value to its
// decoder variant. It never fails; unknown values map to ContentUnsupported.
func ContentEncodingFromHeader(value string) ContentEncoding {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", tokenIdentity:
		return ContentIdentity
	case tokenGzip, "x-gzip":
		return ContentGzip
	default:
		return ContentUnsupported
	}
}

// NewContentDecoder decompresses the transfer decoded stream r.
// ContentUnsupported is decoded as identity.
func NewContentDecoder(r io.ReadCloser, enc ContentEncoding) (io.ReadCloser, error) {
	switch enc {
	case ContentIdentity, ContentUnsupported:
		return &identityContent{r: r}, nil
	case ContentGzip:
		return &gzipContent{r: r}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedContentEncoding, "%s", enc)
	}
}

type identityContent struct {
	r io.ReadCloser
}

func (c *identityContent) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *identityContent) Close() error {
	return c.r.Close()
}

// Transfer returns the transfer decoder underneath.
func (c *identityContent) Transfer() io.Reader { return c.r }

type gzipContent struct {
	r        io.ReadCloser
	zr       *gzip.Reader
	finished bool
}

func (c *gzipContent) Read(p []byte) (int, error) {
	if c.finished {
		return 0, io.EOF
	}
	if c.zr == nil {
		zr, err := newSingleGzipReader(c.r)
		if err != nil {
			c.finished = true
			return 0, err
		}
		c.zr = zr
	}
	n, err := c.zr.Read(p)
	if err == io.EOF {
		c.finished = true
		c.zr.Close()
		c.zr = nil
		// the gzip trailer may end before the transfer framing does
		if cerr := c.r.Close(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

// Close releases the decompressor and closes the transfer decoder, which
// skips whatever framed bytes are left.
func (c *gzipContent) Close() error {
	c.finished = true
	if c.zr != nil {
		c.zr.Close()
		c.zr = nil
	}
	return c.r.Close()
}

func (c *gzipContent) Transfer() io.Reader { return c.r }
