package wirehttp

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader counts Read calls on the wrapped reader.
type countingReader struct {
	r     io.Reader
	calls int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.calls++
	return c.r.Read(p)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func chunkedBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteChunked(&buf, bytes.NewReader(data)))
	return buf.Bytes()
}

func TestTransferEncodingFromHeader(t *testing.T) {
	for value, want := range map[string]TransferEncoding{
		"":          TransferIdentity,
		"identity":  TransferIdentity,
		"chunked":   TransferChunked,
		" Chunked ": TransferChunked,
		"gzip":      TransferGzip,
	} {
		got, err := TransferEncodingFromHeader(value)
		require.NoError(t, err, value)
		assert.Equal(t, want, got, value)
	}

	_, err := TransferEncodingFromHeader("compress")
	assert.Equal(t, ErrUnsupportedTransferEncoding, errors.Cause(err))

	_, err = NewTransferDecoder(strings.NewReader(""), TransferEncoding(99), -1)
	assert.Equal(t, ErrUnsupportedTransferEncoding, errors.Cause(err))
}

func TestIdentityTransfer_ContentLength(t *testing.T) {
	src := strings.NewReader("helloWORLD")
	dec, err := NewTransferDecoder(src, TransferIdentity, 5)
	require.NoError(t, err)

	buf := make([]byte, 3)
	n, err := dec.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hel", string(buf[:n]))

	rest, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "lo", string(rest))

	left, _ := io.ReadAll(src)
	assert.Equal(t, "WORLD", string(left))
}

func TestIdentityTransfer_NoReadAfterFinish(t *testing.T) {
	src := &countingReader{r: strings.NewReader("abcdef")}
	dec, err := NewTransferDecoder(src, TransferIdentity, 3)
	require.NoError(t, err)

	b, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
	calls := src.calls

	n, err := dec.Read(make([]byte, 8))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, calls, src.calls)
}

func TestIdentityTransfer_UnknownLength(t *testing.T) {
	dec, err := NewTransferDecoder(strings.NewReader("until the end"), TransferIdentity, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "until the end", string(b))
}

func TestIdentityTransfer_ShortStream(t *testing.T) {
	dec, err := NewTransferDecoder(strings.NewReader("abc"), TransferIdentity, 10)
	require.NoError(t, err)
	_, err = io.ReadAll(dec)
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
}

func TestIdentityTransfer_CloseSkipsRest(t *testing.T) {
	src := bufio.NewReader(strings.NewReader("0123456789NEXT"))
	dec, err := NewTransferDecoder(src, TransferIdentity, 10)
	require.NoError(t, err)
	_, err = dec.Read(make([]byte, 2))
	require.NoError(t, err)
	require.NoError(t, dec.Close())

	left, _ := io.ReadAll(src)
	assert.Equal(t, "NEXT", string(left))
}

func TestChunkedTransfer(t *testing.T) {
	for name, tc := range map[string]struct {
		raw, body string
	}{
		"single byte": {"1\r\nx\r\n0\r\n\r\n", "x"},
		"empty":       {"0\r\n\r\n", ""},
		"many chunks": {"3\r\nhey\r\n2\r\n!!\r\n0\r\n\r\n", "hey!!"},
		"hex size":    {"a\r\n0123456789\r\n0\r\n\r\n", "0123456789"},
		"extension":   {"1;name=value\r\nx\r\n0\r\n\r\n", "x"},
		"trailers":    {"1\r\nx\r\n0\r\nX-Checksum: 1\r\n\r\n", "x"},
		"zero padded": {"0000000000000001\r\nx\r\n00000000000000000\r\n\r\n", "x"},
	} {
		t.Run(name, func(t *testing.T) {
			src := bufio.NewReader(strings.NewReader(tc.raw + "NEXT"))
			dec, err := NewTransferDecoder(src, TransferChunked, -1)
			require.NoError(t, err)

			b, err := io.ReadAll(dec)
			require.NoError(t, err)
			assert.Equal(t, tc.body, string(b))

			left, _ := io.ReadAll(src)
			assert.Equal(t, "NEXT", string(left))
		})
	}
}

func TestChunkedTransfer_ReadSpansChunks(t *testing.T) {
	dec, err := NewTransferDecoder(strings.NewReader("3\r\nabc\r\n2\r\nde\r\n0\r\n\r\n"), TransferChunked, -1)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := dec.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(buf[:n]))

	n, err = dec.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	// finished for good
	n, err = dec.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestChunkedTransfer_Malformed(t *testing.T) {
	for name, tc := range map[string]struct {
		raw  string
		want error
	}{
		"bad size":       {"zz\r\nx\r\n0\r\n\r\n", ErrMalformedChunk},
		"empty size":     {"\r\n", ErrMalformedChunk},
		"no separator":   {"1\r\nxY\r\n0\r\n\r\n", ErrMalformedChunk},
		"size too large": {"1000000000000000\r\n", ErrMalformedChunk},
		"truncated":      {"5\r\nab", io.ErrUnexpectedEOF},
		"no terminator":  {"1\r\nx\r\n", io.ErrUnexpectedEOF},
	} {
		t.Run(name, func(t *testing.T) {
			dec, err := NewTransferDecoder(strings.NewReader(tc.raw), TransferChunked, -1)
			require.NoError(t, err)
			_, err = io.ReadAll(dec)
			assert.Equal(t, tc.want, errors.Cause(err))
		})
	}
}

func TestParseHexUint(t *testing.T) {
	for in, want := range map[string]int64{
		"0":                  0,
		"ff":                 255,
		"FF":                 255,
		"000000000000000001": 1,
		"fffffffffffffff":    0xfffffffffffffff,
		"00fffffffffffffff":  0xfffffffffffffff,
	} {
		n, err := parseHexUint(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, n, in)
	}

	for _, in := range []string{"1000000000000000", "g", "1 "} {
		_, err := parseHexUint(in)
		assert.Error(t, err, in)
	}
}

func TestGzipTransfer(t *testing.T) {
	payload := []byte(strings.Repeat("compressed framing ", 50))
	gz := gzipBytes(t, payload)

	for name, length := range map[string]int64{"known length": int64(len(gz)), "unknown length": -1} {
		t.Run(name, func(t *testing.T) {
			src := bufio.NewReader(bytes.NewReader(append(append([]byte{}, gz...), "NEXT"...)))
			dec, err := NewTransferDecoder(src, TransferGzip, length)
			require.NoError(t, err)

			b, err := io.ReadAll(dec)
			require.NoError(t, err)
			assert.Equal(t, payload, b)

			left, _ := io.ReadAll(src)
			assert.Equal(t, "NEXT", string(left))
		})
	}
}

func TestGzipTransfer_LazyHeader(t *testing.T) {
	src := &countingReader{r: strings.NewReader("not gzip at all")}
	dec, err := NewTransferDecoder(src, TransferGzip, -1)
	require.NoError(t, err)
	assert.Zero(t, src.calls)

	_, err = io.ReadAll(dec)
	assert.Error(t, err)
}

func TestContentEncodingFromHeader(t *testing.T) {
	assert.Equal(t, ContentIdentity, ContentEncodingFromHeader(""))
	assert.Equal(t, ContentIdentity, ContentEncodingFromHeader("identity"))
	assert.Equal(t, ContentGzip, ContentEncodingFromHeader("GZIP"))
	assert.Equal(t, ContentUnsupported, ContentEncodingFromHeader("br"))

	_, err := NewContentDecoder(io.NopCloser(strings.NewReader("")), ContentEncoding(99))
	assert.Equal(t, ErrUnsupportedContentEncoding, errors.Cause(err))
}

func TestContentGzip_OverChunked(t *testing.T) {
	payload := []byte("two layers of decoding")
	body := chunkedBytes(t, gzipBytes(t, payload))

	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nContent-Encoding: gzip\r\n\r\n" +
		string(body) +
		"HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n"
	p := NewParser(bufio.NewReader(strings.NewReader(raw)), ParserConfig{})

	first, err := p.ParseMessage()
	require.NoError(t, err)
	content, ok := first.Body().(*gzipContent)
	require.True(t, ok)
	assert.IsType(t, &chunkedTransfer{}, content.Transfer())
	assert.Equal(t, string(payload), readBody(t, first))

	second, err := p.ParseMessage()
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "204 No Content", second.(*Response).StatusCode)
}

func TestContentGzip_OverGzipTransfer(t *testing.T) {
	payload := []byte("compressed twice")
	twice := gzipBytes(t, gzipBytes(t, payload))

	msg := mustParse(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: gzip\r\nContent-Encoding: gzip\r\n\r\n"+string(twice))
	assert.Equal(t, string(payload), readBody(t, msg))
}

func TestWriteChunked(t *testing.T) {
	assert.Equal(t, "5\r\nhello\r\n0\r\n\r\n", string(chunkedBytes(t, []byte("hello"))))
	assert.Equal(t, "0\r\n\r\n", string(chunkedBytes(t, nil)))
}
