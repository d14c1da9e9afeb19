package protocol

import "fmt"

// Status is the 32-bit outcome code carried in every response header. The
// core passes it through unchanged; the constants below are the values the
// reference provider and the server loop produce.
type Status uint32

const (
	StatusOK                     Status = 0x00000000
	StatusContinueNeeded         Status = 0x00090312
	StatusCompleteNeeded         Status = 0x00090313
	StatusCompleteAndContinue    Status = 0x00090314
	StatusInsufficientMemory     Status = 0x80090300
	StatusInvalidHandle          Status = 0x80090301
	StatusUnsupportedFunction    Status = 0x80090302
	StatusTargetUnknown          Status = 0x80090303
	StatusInternalError          Status = 0x80090304
	StatusSecPkgNotFound         Status = 0x80090305
	StatusNotOwner               Status = 0x80090306
	StatusInvalidToken           Status = 0x80090308
	StatusCannotPack             Status = 0x80090309
	StatusQOPNotSupported        Status = 0x8009030A
	StatusNoImpersonation        Status = 0x8009030B
	StatusLogonDenied            Status = 0x8009030C
	StatusUnknownCredentials     Status = 0x8009030D
	StatusNoCredentials          Status = 0x8009030E
	StatusMessageAltered         Status = 0x8009030F
	StatusOutOfSequence          Status = 0x80090310
	StatusContextExpired         Status = 0x80090317
	StatusIncompleteMessage      Status = 0x80090318
	StatusBufferTooSmall         Status = 0x80090321
	StatusWrongPrincipal         Status = 0x80090322
	StatusUnsupportedAttribute   Status = 0x80090325
	StatusSecurityQOSFailed      Status = 0x80090332
	StatusInvalidParameter       Status = 0x8009035D
	StatusAlgorithmMismatch      Status = 0x80090331
	StatusNoAuthenticatingAuthor Status = 0x80090311
)

var statusNames = map[Status]string{
	StatusOK:                     "SEC_E_OK",
	StatusContinueNeeded:         "SEC_I_CONTINUE_NEEDED",
	StatusCompleteNeeded:         "SEC_I_COMPLETE_NEEDED",
	StatusCompleteAndContinue:    "SEC_I_COMPLETE_AND_CONTINUE",
	StatusInsufficientMemory:     "SEC_E_INSUFFICIENT_MEMORY",
	StatusInvalidHandle:          "SEC_E_INVALID_HANDLE",
	StatusUnsupportedFunction:    "SEC_E_UNSUPPORTED_FUNCTION",
	StatusTargetUnknown:          "SEC_E_TARGET_UNKNOWN",
	StatusInternalError:          "SEC_E_INTERNAL_ERROR",
	StatusSecPkgNotFound:         "SEC_E_SECPKG_NOT_FOUND",
	StatusNotOwner:               "SEC_E_NOT_OWNER",
	StatusInvalidToken:           "SEC_E_INVALID_TOKEN",
	StatusCannotPack:             "SEC_E_CANNOT_PACK",
	StatusQOPNotSupported:        "SEC_E_QOP_NOT_SUPPORTED",
	StatusNoImpersonation:        "SEC_E_NO_IMPERSONATION",
	StatusLogonDenied:            "SEC_E_LOGON_DENIED",
	StatusUnknownCredentials:     "SEC_E_UNKNOWN_CREDENTIALS",
	StatusNoCredentials:          "SEC_E_NO_CREDENTIALS",
	StatusMessageAltered:         "SEC_E_MESSAGE_ALTERED",
	StatusOutOfSequence:          "SEC_E_OUT_OF_SEQUENCE",
	StatusContextExpired:         "SEC_E_CONTEXT_EXPIRED",
	StatusIncompleteMessage:      "SEC_E_INCOMPLETE_MESSAGE",
	StatusBufferTooSmall:         "SEC_E_BUFFER_TOO_SMALL",
	StatusWrongPrincipal:         "SEC_E_WRONG_PRINCIPAL",
	StatusUnsupportedAttribute:   "SEC_E_UNSUPPORTED_ATTRIBUTE",
	StatusSecurityQOSFailed:      "SEC_E_SECURITY_QOS_FAILED",
	StatusInvalidParameter:       "SEC_E_INVALID_PARAMETER",
	StatusAlgorithmMismatch:      "SEC_E_ALGORITHM_MISMATCH",
	StatusNoAuthenticatingAuthor: "SEC_E_NO_AUTHENTICATING_AUTHORITY",
}

// IsError reports whether the severity bit is set.
func (s Status) IsError() bool {
	return s&0x80000000 != 0
}

// IsContinue reports whether the handshake expects another round trip.
func (s Status) IsContinue() bool {
	return s == StatusContinueNeeded || s == StatusCompleteAndContinue
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(s))
}
