package errors

// Error codes. Transport and protocol failures get distinct codes so callers
// can decide whether a failure is retryable (transport) or fatal for the
// connection (protocol).
const (
	ERR_UNKNOWN            ERR = 0
	ERR_INVALID_ARGUMENT   ERR = 1
	ERR_NOT_FOUND          ERR = 2
	ERR_PROCESSING         ERR = 3
	ERR_CONFIGURATION      ERR = 4
	ERR_SERVICE_ERROR      ERR = 5
	ERR_CONTEXT_CANCELED   ERR = 6
	ERR_TRANSPORT          ERR = 10
	ERR_PAYLOAD_TOO_LARGE  ERR = 11
	ERR_CHECKSUM_MISMATCH  ERR = 12
	ERR_RESYNC_LIMIT       ERR = 13
	ERR_MALFORMED_MESSAGE  ERR = 14
	ERR_UNEXPECTED_MESSAGE ERR = 15
	ERR_HANDSHAKE          ERR = 16
	ERR_RPC                ERR = 20
	ERR_COINBASE_PAYLOAD   ERR = 21
	ERR_ENGINE             ERR = 22
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	2:  "NOT_FOUND",
	3:  "PROCESSING",
	4:  "CONFIGURATION",
	5:  "SERVICE_ERROR",
	6:  "CONTEXT_CANCELED",
	10: "TRANSPORT",
	11: "PAYLOAD_TOO_LARGE",
	12: "CHECKSUM_MISMATCH",
	13: "RESYNC_LIMIT",
	14: "MALFORMED_MESSAGE",
	15: "UNEXPECTED_MESSAGE",
	16: "HANDSHAKE",
	20: "RPC",
	21: "COINBASE_PAYLOAD",
	22: "ENGINE",
}

var (
	ErrUnknown           = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument   = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrNotFound          = New(ERR_NOT_FOUND, "not found")
	ErrProcessing        = New(ERR_PROCESSING, "error processing")
	ErrConfiguration     = New(ERR_CONFIGURATION, "configuration error")
	ErrServiceError      = New(ERR_SERVICE_ERROR, "service error")
	ErrContextCanceled   = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrTransport         = New(ERR_TRANSPORT, "transport error")
	ErrPayloadTooLarge   = New(ERR_PAYLOAD_TOO_LARGE, "payload too large")
	ErrChecksumMismatch  = New(ERR_CHECKSUM_MISMATCH, "checksum mismatch")
	ErrResyncLimit       = New(ERR_RESYNC_LIMIT, "resync limit exceeded")
	ErrMalformedMessage  = New(ERR_MALFORMED_MESSAGE, "malformed message")
	ErrUnexpectedMessage = New(ERR_UNEXPECTED_MESSAGE, "unexpected message")
	ErrHandshake         = New(ERR_HANDSHAKE, "handshake failed")
	ErrRPC               = New(ERR_RPC, "rpc error")
	ErrCoinbasePayload   = New(ERR_COINBASE_PAYLOAD, "coinbase payload error")
	ErrEngine            = New(ERR_ENGINE, "engine error")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewTransportError(message string, params ...interface{}) error {
	return New(ERR_TRANSPORT, message, params...)
}
func NewPayloadTooLargeError(message string, params ...interface{}) error {
	return New(ERR_PAYLOAD_TOO_LARGE, message, params...)
}
func NewChecksumMismatchError(message string, params ...interface{}) error {
	return New(ERR_CHECKSUM_MISMATCH, message, params...)
}
func NewResyncLimitError(message string, params ...interface{}) error {
	return New(ERR_RESYNC_LIMIT, message, params...)
}
func NewMalformedMessageError(message string, params ...interface{}) error {
	return New(ERR_MALFORMED_MESSAGE, message, params...)
}
func NewUnexpectedMessageError(message string, params ...interface{}) error {
	return New(ERR_UNEXPECTED_MESSAGE, message, params...)
}
func NewHandshakeError(message string, params ...interface{}) error {
	return New(ERR_HANDSHAKE, message, params...)
}
func NewRPCError(message string, params ...interface{}) error {
	return New(ERR_RPC, message, params...)
}
func NewCoinbasePayloadError(message string, params ...interface{}) error {
	return New(ERR_COINBASE_PAYLOAD, message, params...)
}
func NewEngineError(message string, params ...interface{}) error {
	return New(ERR_ENGINE, message, params...)
}
