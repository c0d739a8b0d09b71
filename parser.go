package wirehttp

import (
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	requestGreeting  = regexp.MustCompile(`^([A-Z]+) ([A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]*) HTTP/1\.[01]$`)
	responseGreeting = regexp.MustCompile(`^HTTP/1\.[01] ([0-9]{3} [^\r\n]*)$`)
	headerLine       = regexp.MustCompile(`^([A-Za-z0-9\-]+)[ \t]*:[ \t]*(.*)$`)
)

// ParserConfig tunes message parsing.
type ParserConfig struct {
	// MaxLineLength caps greeting and header lines. Zero disables the cap.
	MaxLineLength int
	// StrictContentEncoding rejects unknown content-encoding values instead
	// of passing the body through undecoded.
	StrictContentEncoding bool
}

// Parser reads messages from a byte stream. Body decoders read from the
// same stream, so a message's body must be consumed or closed before the
// next ParseMessage call.
type Parser struct {
	r      io.Reader
	lines  *LineReader
	conn   *Connection
	config ParserConfig
}

func NewParser(r io.Reader, cfg ParserConfig) *Parser {
	return &Parser{
		r:      r,
		lines:  NewLineReader(r, cfg.MaxLineLength),
		config: cfg,
	}
}

// ReadMessage parses one message from r with the default configuration.
func ReadMessage(r io.Reader) (Message, error) {
	return NewParser(r, DefaultConfig().ParserConfig()).ParseMessage()
}

// ParseMessage reads one message. It returns a nil message and a nil error
// when the stream ends before the greeting starts.
func (p *Parser) ParseMessage() (Message, error) {
	msg, err := p.readGreeting()
	if err != nil || msg == nil {
		return nil, err
	}
	m := msg.base()
	m.conn = p.conn

	if err := p.readHeaders(m.header); err != nil {
		return nil, err
	}
	untilEOF, err := p.attachBody(msg)
	if err != nil {
		return nil, err
	}
	if p.conn != nil {
		// nothing can follow a body that runs to the end of the stream
		p.conn.keepAlive.Store(isKeepAlive(m.header) && !untilEOF)
	}
	return msg, nil
}

func (p *Parser) readGreeting() (Message, error) {
	line, ok, err := p.lines.ReadLine()
	if err != nil {
		if errors.Cause(err) == ErrLineTooLong {
			return nil, errors.Wrap(ErrMalformedGreeting, "greeting too long")
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if !isPrintableASCII(line) {
		return nil, errors.Wrapf(ErrMalformedGreeting, "%q", line)
	}

	if match := requestGreeting.FindStringSubmatch(line); match != nil {
		return &Request{
			message: newMessage(),
			Method:  match[1],
			Query:   match[2],
		}, nil
	}
	if match := responseGreeting.FindStringSubmatch(line); match != nil {
		return &Response{
			message:    newMessage(),
			StatusCode: match[1],
		}, nil
	}
	return nil, errors.Wrapf(ErrUnrecognizedGreeting, "%q", line)
}

// readHeaders reads header lines up to the blank line. Lines that are not
// "Name: Value" are skipped.
func (p *Parser) readHeaders(h Header) error {
	for {
		line, ok, err := p.lines.ReadLine()
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrap(io.ErrUnexpectedEOF, "headers not terminated")
		}
		if line == "" {
			return nil
		}
		match := headerLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		h.Set(match[1], strings.TrimRight(match[2], " \t"))
	}
}

// attachBody installs the body decoders and reports whether the body is
// delimited only by the end of the stream.
func (p *Parser) attachBody(msg Message) (bool, error) {
	h := msg.Header()

	contentLength, known := parseContentLength(h.Get(HeaderContentLength))
	te := h.Get(HeaderTransferEncoding)
	if !known && te == "" && msg.Kind() == KindRequest {
		// a request without framing headers has no body
		contentLength = 0
	}

	transferEncoding, err := TransferEncodingFromHeader(te)
	if err != nil {
		return false, err
	}
	transfer, err := NewTransferDecoder(p.r, transferEncoding, contentLength)
	if err != nil {
		return false, err
	}

	ce := h.Get(HeaderContentEncoding)
	contentEncoding := ContentEncodingFromHeader(ce)
	if contentEncoding == ContentUnsupported && p.config.StrictContentEncoding {
		return false, errors.Wrapf(ErrUnsupportedContentEncoding, "%q", ce)
	}
	body, err := NewContentDecoder(transfer, contentEncoding)
	if err != nil {
		return false, err
	}
	msg.SetBodyStream(body)
	return transferEncoding == TransferIdentity && contentLength < 0, nil
}
