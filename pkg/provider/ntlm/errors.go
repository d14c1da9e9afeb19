package ntlm

// Error is the type of the package's sentinel errors.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrMessageTooShort is returned when the buffer is too small for the message type.
	ErrMessageTooShort Error = "ntlm: message too short"

	// ErrInvalidSignature is returned when the NTLMSSP signature is missing or invalid.
	ErrInvalidSignature Error = "ntlm: invalid signature"

	// ErrWrongMessageType is returned when parsing a message of unexpected type.
	ErrWrongMessageType Error = "ntlm: wrong message type"

	// ErrFieldOutOfRange is returned when a payload field points past the message.
	ErrFieldOutOfRange Error = "ntlm: payload field out of range"

	// ErrInvalidAvPair is returned for a malformed TargetInfo list.
	ErrInvalidAvPair Error = "ntlm: malformed AV_PAIR list"

	// ErrResponseTooShort is returned for an NTLMv2 response without a client blob.
	ErrResponseTooShort Error = "ntlm: NTLMv2 response too short"

	// ErrInvalidContextBlob is returned when an imported context cannot be decoded.
	ErrInvalidContextBlob Error = "ntlm: invalid packed context"
)
