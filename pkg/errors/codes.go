package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeCancelled          ErrorCode = "COMMON_017"
	ErrCodeStorageError       ErrorCode = "COMMON_018"
	ErrCodeMessagingError     ErrorCode = "COMMON_019"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Fragment Module Error Codes
const (
	ErrCodeStructureParseFailed   ErrorCode = "FRAG_001"
	ErrCodeCanonicalizationFailed ErrorCode = "FRAG_002"
	ErrCodeEmptyMolecule          ErrorCode = "FRAG_003"
	ErrCodeInvalidRadius          ErrorCode = "FRAG_004"
	ErrCodeNormalizationFailed    ErrorCode = "FRAG_005"
	ErrCodeEnvironmentFailed      ErrorCode = "FRAG_006"
	ErrCodeMoleculeTooLarge       ErrorCode = "FRAG_007"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeCancelled:          http.StatusRequestTimeout,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeStructureParseFailed:   http.StatusUnprocessableEntity,
	ErrCodeCanonicalizationFailed: http.StatusUnprocessableEntity,
	ErrCodeEmptyMolecule:          http.StatusUnprocessableEntity,
	ErrCodeInvalidRadius:          http.StatusBadRequest,
	ErrCodeNormalizationFailed:    http.StatusUnprocessableEntity,
	ErrCodeEnvironmentFailed:      http.StatusUnprocessableEntity,
	ErrCodeMoleculeTooLarge:       http.StatusRequestEntityTooLarge,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeCancelled:          "operation cancelled",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "message broker error",

	ErrCodeStructureParseFailed:   "structure could not be parsed",
	ErrCodeCanonicalizationFailed: "fragment could not be canonicalized",
	ErrCodeEmptyMolecule:          "molecule has no atoms",
	ErrCodeInvalidRadius:          "radius must be non-negative",
	ErrCodeNormalizationFailed:    "hydrogen removal failed",
	ErrCodeEnvironmentFailed:      "atom environment lookup failed",
	ErrCodeMoleculeTooLarge:       "molecule exceeds the atom limit",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
