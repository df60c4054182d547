package facebook

import "fmt"

// APIError the Graph API answered with an error object (or a non-200 status).
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       int
	Subcode    int
	TraceID    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("facebook api error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// RemoteMessage message as reported by the remote service.
func (e *APIError) RemoteMessage() string {
	return e.Message
}

// RateLimited codes 4, 17, 32 and 613 are the Graph API throttling family.
func (e *APIError) RateLimited() bool {
	switch e.Code {
	case 4, 17, 32, 613:
		return true
	}
	return false
}

// RequestError the call never produced a usable response (transport or decoding failure).
type RequestError struct {
	AccountID string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("facebook request for %s failed: %v", e.AccountID, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// MappingError a single insights row could not be turned into a cached metric.
type MappingError struct {
	Field  string
	Value  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
