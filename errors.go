package wirehttp

import "github.com/pkg/errors"

var (
	ErrLineTooLong                 = errors.New("line too long")
	ErrMalformedGreeting           = errors.New("malformed greeting")
	ErrUnrecognizedGreeting        = errors.New("greeting not understood")
	ErrUnsupportedTransferEncoding = errors.New("unsupported transfer encoding")
	ErrUnsupportedContentEncoding  = errors.New("unsupported content encoding")
	ErrMalformedChunk              = errors.New("malformed chunk")
	ErrListenerClosed              = errors.New("listener closed")
	ErrUnexpectedMessage           = errors.New("unexpected message kind")
)
