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
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeExternalService    ErrorCode = "COMMON_011"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_012"
)

// Sentinel pseudo-codes used by GetCode.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Business Calendar Error Codes
const (
	ErrCodeHolidayFetchFailed   ErrorCode = "CAL_001"
	ErrCodeCalendarRangeInvalid ErrorCode = "CAL_002"
)

// Internment Module Error Codes
const (
	ErrCodeInternmentNotFound  ErrorCode = "INT_001"
	ErrCodeInvalidTransition   ErrorCode = "INT_002"
	ErrCodeInternmentFinalized ErrorCode = "INT_003"
	ErrCodeExtensionNotFound   ErrorCode = "INT_004"
	ErrCodeExtensionNotPending ErrorCode = "INT_005"
	ErrCodeAuditNotOpen        ErrorCode = "INT_006"
)

// Medication Module Error Codes
const (
	ErrCodeRequestNotFound     ErrorCode = "MED_001"
	ErrCodeRequestStateInvalid ErrorCode = "MED_002"
	ErrCodeQuotationNotFound   ErrorCode = "MED_003"
	ErrCodeQuotationNotQuoted  ErrorCode = "MED_004"
	ErrCodeQuotationsPending   ErrorCode = "MED_005"
	ErrCodeQuotationExpired    ErrorCode = "MED_006"
	ErrCodeTokenNotFound       ErrorCode = "MED_007"
	ErrCodeTokenConsumed       ErrorCode = "MED_008"
	ErrCodeItemNotFound        ErrorCode = "MED_009"
)

// Notification Module Error Codes
const (
	ErrCodeNotificationNotFound ErrorCode = "NTF_001"
	ErrCodeNotificationDelivery ErrorCode = "NTF_002"
)

// Scheduled Job Error Codes
const (
	ErrCodeJobAlreadyRunning ErrorCode = "JOB_001"
	ErrCodeJobFailed         ErrorCode = "JOB_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeHolidayFetchFailed:   http.StatusBadGateway,
	ErrCodeCalendarRangeInvalid: http.StatusBadRequest,

	ErrCodeInternmentNotFound:  http.StatusNotFound,
	ErrCodeInvalidTransition:   http.StatusConflict,
	ErrCodeInternmentFinalized: http.StatusConflict,
	ErrCodeExtensionNotFound:   http.StatusNotFound,
	ErrCodeExtensionNotPending: http.StatusConflict,
	ErrCodeAuditNotOpen:        http.StatusConflict,

	ErrCodeRequestNotFound:     http.StatusNotFound,
	ErrCodeRequestStateInvalid: http.StatusConflict,
	ErrCodeQuotationNotFound:   http.StatusNotFound,
	ErrCodeQuotationNotQuoted:  http.StatusConflict,
	ErrCodeQuotationsPending:   http.StatusBadRequest,
	ErrCodeQuotationExpired:    http.StatusConflict,
	ErrCodeTokenNotFound:       http.StatusNotFound,
	ErrCodeTokenConsumed:       http.StatusNotFound,
	ErrCodeItemNotFound:        http.StatusNotFound,

	ErrCodeNotificationNotFound: http.StatusNotFound,
	ErrCodeNotificationDelivery: http.StatusInternalServerError,

	ErrCodeJobAlreadyRunning: http.StatusConflict,
	ErrCodeJobFailed:         http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeServiceUnavailable: "service unavailable",

	ErrCodeHolidayFetchFailed:   "failed to fetch holiday calendar",
	ErrCodeCalendarRangeInvalid: "invalid calendar range",

	ErrCodeInternmentNotFound:  "internment not found",
	ErrCodeInvalidTransition:   "invalid internment status transition",
	ErrCodeInternmentFinalized: "internment already finalized",
	ErrCodeExtensionNotFound:   "extension request not found",
	ErrCodeExtensionNotPending: "extension request already resolved",
	ErrCodeAuditNotOpen:        "internment is not under audit",

	ErrCodeRequestNotFound:     "medication request not found",
	ErrCodeRequestStateInvalid: "medication request state does not allow this operation",
	ErrCodeQuotationNotFound:   "quotation not found",
	ErrCodeQuotationNotQuoted:  "quotation has not been submitted",
	ErrCodeQuotationsPending:   "quotations still pending",
	ErrCodeQuotationExpired:    "quotation deadline has passed",
	ErrCodeTokenNotFound:       "quotation token not found",
	ErrCodeTokenConsumed:       "quotation token already used",
	ErrCodeItemNotFound:        "medication item not found",

	ErrCodeNotificationNotFound: "notification not found",
	ErrCodeNotificationDelivery: "failed to deliver notification",

	ErrCodeJobAlreadyRunning: "job is already running",
	ErrCodeJobFailed:         "scheduled job failed",
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

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
