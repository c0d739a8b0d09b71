package wirehttp

const (
	HeaderConnection       = "connection"
	HeaderContentLength    = "content-length"
	HeaderContentEncoding  = "content-encoding"
	HeaderTransferEncoding = "transfer-encoding"
	HeaderAcceptEncoding   = "accept-encoding"
	HeaderTE               = "te"
	HeaderHost             = "host"
)

const (
	tokenIdentity  = "identity"
	tokenChunked   = "chunked"
	tokenGzip      = "gzip"
	tokenKeepAlive = "keep-alive"
	tokenClose     = "close"
)

const defaultMaxLineLength = 8192

var (
	byteCRLF       = []byte("\r\n")
	byteColonSpace = []byte(": ")
	byteSpace      = []byte(" ")
	byteHTTP11     = []byte("HTTP/1.1")
	byteLastChunk  = []byte("0\r\n\r\n")
)
