package wirehttp

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var bufPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 4096)
	},
}

func bufCopy(w io.Writer, r io.Reader) (int64, error) {
	b := bufPool.Get().([]byte)
	n, err := io.CopyBuffer(w, r, b)
	bufPool.Put(b)
	return n, err
}

// drain reads r to its end and discards the bytes.
func drain(r io.Reader) error {
	_, err := bufCopy(io.Discard, r)
	return err
}

func parseContentLength(cl string) (int64, bool) {
	cl = strings.TrimSpace(cl)
	if cl == "" {
		return -1, false
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n < 0 {
		return -1, false
	}
	return n, true
}

// parseHexUint parses a chunk size. Leading zeros do not count towards the
// 15 digit limit.
func parseHexUint(v string) (n int64, err error) {
	digits := 0
	for i := 0; i < len(v); i++ {
		b := v[i]
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errors.New("invalid byte in chunk length")
		}
		if n == 0 && b == 0 {
			continue
		}
		if digits == 15 {
			return 0, errors.New("http chunk length too large")
		}
		digits++
		n <<= 4
		n |= int64(b)
	}
	return
}

func removeChunkExtension(line string) string {
	if semi := strings.IndexByte(line, ';'); semi != -1 {
		return line[:semi]
	}
	return line
}

func isKeepAlive(h Header) bool {
	for _, token := range h.Tokens(HeaderConnection) {
		if token == tokenKeepAlive {
			return true
		}
	}
	return false
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// WriteChunked copies r to w framed as a chunked body, ending with the
// zero size chunk. Each chunk is one read of r.
func WriteChunked(w io.Writer, r io.Reader) error {
	buf := bufPool.Get().([]byte)
	defer bufPool.Put(buf)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := writeChunkBlock(w, buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			_, werr := w.Write(byteLastChunk)
			return errors.WithStack(werr)
		}
		if err != nil {
			return errors.WithStack(err)
		}
	}
}

func writeChunkBlock(w io.Writer, b []byte) error {
	if _, err := fmt.Fprintf(w, "%x\r\n", len(b)); err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write(b); err != nil {
		return errors.WithStack(err)
	}
	_, err := w.Write(byteCRLF)
	return errors.WithStack(err)
}
