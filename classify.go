package wrengo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
)

const (
	// GenericErrorMessage is the fallback for failures with no usable message
	GenericErrorMessage = "An unexpected error occurred"
	// NetworkErrorMessage is the fallback for transport failures with no response
	NetworkErrorMessage = "Unable to reach the server"
)

// ErrorRecord is the normalized form of an arbitrary failure value. A
// StatusCode of 0 means no HTTP response was available. Network marks
// transport-layer failures as opposed to application-level values.
type ErrorRecord struct {
	StatusCode int
	Message    string
	Data       any
	Network    bool
}

// Classify normalizes any failure value into an ErrorRecord. It is total:
// nil, empty strings, and unrecognized shapes all resolve to the generic
// fallback record rather than panicking.
func Classify(v any) ErrorRecord {
	switch val := v.(type) {
	case nil:
		return ErrorRecord{Message: GenericErrorMessage}

	case *Error:
		if val == nil {
			return ErrorRecord{Message: GenericErrorMessage}
		}
		return classifyError(val)

	case error:
		return classifyGoError(val)

	case string:
		if val == "" {
			return ErrorRecord{Message: GenericErrorMessage}
		}
		return ErrorRecord{Message: val}

	case map[string]any:
		return classifyMap(val)

	default:
		return ErrorRecord{Message: GenericErrorMessage}
	}
}

// classifyError maps the library's own structured error type.
func classifyError(wErr *Error) ErrorRecord {
	if wErr.Type == ErrorTypeNetwork {
		msg := wErr.Message
		if msg == "" {
			msg = NetworkErrorMessage
		}
		return ErrorRecord{Message: msg, Network: true}
	}

	rec := ErrorRecord{
		StatusCode: wErr.StatusCode,
		Message:    wErr.Message,
		Data:       wErr.Data,
	}
	if rec.Message == "" {
		rec.Message = GenericErrorMessage
	}
	return rec
}

// classifyGoError maps plain Go errors, recognizing transport-layer failures
// by their standard wrappers.
func classifyGoError(err error) ErrorRecord {
	var wErr *Error
	if errors.As(err, &wErr) {
		return classifyError(wErr)
	}

	if isTransportError(err) {
		msg := err.Error()
		if msg == "" {
			msg = NetworkErrorMessage
		}
		return ErrorRecord{Message: msg, Network: true}
	}

	msg := err.Error()
	if msg == "" {
		msg = GenericErrorMessage
	}
	return ErrorRecord{Message: msg}
}

// classifyMap opportunistically extracts message/statusCode/data fields from
// a loosely structured value; missing fields keep their defaults.
func classifyMap(m map[string]any) ErrorRecord {
	rec := ErrorRecord{Message: GenericErrorMessage}

	if msg, ok := m["message"].(string); ok && msg != "" {
		rec.Message = msg
	}
	switch code := m["statusCode"].(type) {
	case int:
		rec.StatusCode = code
	case float64:
		rec.StatusCode = int(code)
	}
	if data, ok := m["data"]; ok {
		rec.Data = data
	}

	return rec
}

// isTransportError reports whether err is a network/timeout class failure.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsNetworkError reports a transport-layer failure with no HTTP response.
func (r ErrorRecord) IsNetworkError() bool {
	return r.StatusCode == 0 && r.Network
}

// IsAuthError reports an authentication failure (401).
func (r ErrorRecord) IsAuthError() bool {
	return r.StatusCode == http.StatusUnauthorized
}

// IsAuthorizationError reports a permission failure (403).
func (r ErrorRecord) IsAuthorizationError() bool {
	return r.StatusCode == http.StatusForbidden
}

// IsValidationError reports a request validation failure (422).
func (r ErrorRecord) IsValidationError() bool {
	return r.StatusCode == http.StatusUnprocessableEntity
}

// IsServerError reports a server-side failure (5xx).
func (r ErrorRecord) IsServerError() bool {
	return r.StatusCode >= 500
}

// UserMessage derives a human-readable sentence for the record, checking the
// classification predicates in priority order and falling back to the raw
// message when none match.
func (r ErrorRecord) UserMessage() string {
	switch {
	case r.IsNetworkError():
		return "Cannot connect to the server. Please check your connection."
	case r.IsAuthError():
		return "Your session has expired. Please log in again."
	case r.IsAuthorizationError():
		return "You do not have permission to perform this action."
	case r.IsValidationError():
		return "Some of the submitted values are invalid."
	case r.IsServerError():
		return "The server encountered an error. Please try again later."
	default:
		return r.Message
	}
}
