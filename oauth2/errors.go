package oauth2

// OAuth 2.0 error codes surfaced to clients as error/error_description pairs
// (RFC 6749 §5.2, RFC 6750 §3.1). Validation failures are reported at the
// boundary where they are first observed; record absence and record expiry
// are deliberately indistinguishable to callers.
const (
	ErrorInvalidRequest          = "invalid_request"
	ErrorUnauthorizedClient      = "unauthorized_client"
	ErrorUnsupportedResponseType = "unsupported_response_type"
	ErrorUnsupportedGrantType    = "unsupported_grant_type"
	ErrorInvalidScope            = "invalid_scope"
	ErrorInvalidGrant            = "invalid_grant"
	ErrorInvalidClient           = "invalid_client"
	ErrorInvalidToken            = "invalid_token"
	ErrorInsufficientScope       = "insufficient_scope"
	ErrorServerError             = "server_error"
)

// Error is an OAuth protocol error carrying the standard code and a
// human-readable description. Handlers decide, per endpoint, whether it is
// rendered as a redirect query string or a JSON body.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// NewError builds a protocol error with the given code and description.
func NewError(code, description string) *Error {
	return &Error{Code: code, Description: description}
}
