package authbridge

import "github.com/goliatone/go-errors"

// TextCodes surfaced to relying parties through the error-page redirect.
const (
	TextCodeMissingParameter = "REQUIRED_PARAMETER_MISSING"
	TextCodeInvalidRegCode   = "INVALID_REGCODE"
	TextCodeSessionMissing   = "SESSION_ID_MISSING"
	TextCodePendingNotFound  = "PENDING_REDIRECT_NOT_FOUND"
	TextCodeInvalidURL       = "INVALID_URL"
	TextCodePostbackFailed   = "POSTBACK_FAILED"
	TextCodeRedirectFailed   = "REDIRECT_FAILED"
)

// ErrMissingParameter is returned when a required query parameter is absent.
var ErrMissingParameter = errors.New("required parameter is missing", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingParameter).
	WithCode(errors.CodeBadRequest)

// ErrInvalidRegCode covers unknown, already redeemed, and malformed codes.
var ErrInvalidRegCode = errors.New("registration code is invalid or already used", errors.CategoryNotFound).
	WithTextCode(TextCodeInvalidRegCode).
	WithCode(errors.CodeNotFound)

// ErrSessionMissing is returned when the session cookie is absent.
var ErrSessionMissing = errors.New("session cookie is required", errors.CategoryAuth).
	WithTextCode(TextCodeSessionMissing).
	WithCode(errors.CodeUnauthorized)

// ErrSessionNotFound is returned when the cookie names no known session.
var ErrSessionNotFound = errors.New("session not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrPendingRedirectNotFound covers both missing and expired pending redirects.
var ErrPendingRedirectNotFound = errors.New("no pending redirect for this session", errors.CategoryNotFound).
	WithTextCode(TextCodePendingNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidURL is returned when a stored redirect or postback URL does
// not parse as an absolute URI.
var ErrInvalidURL = errors.New("redirectUrl or postbackUrl is not an absolute URL", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidURL).
	WithCode(errors.CodeBadRequest)

// ErrPostbackFailed covers transport failure, timeout, and non-2xx
// responses from the postback target.
var ErrPostbackFailed = errors.New("failed to deliver token to the postback URL", errors.CategoryOperation).
	WithTextCode(TextCodePostbackFailed)

// ErrRedirectFailed is the catch-all for resumption failures that are
// neither a missing redirect nor a postback problem.
var ErrRedirectFailed = errors.New("failed to process redirect", errors.CategoryInternal).
	WithTextCode(TextCodeRedirectFailed).
	WithCode(errors.CodeInternal)

// Key material errors are fatal at boot: the process must not serve
// requests without a usable signing key.
var (
	ErrUnsupportedKeySize = errors.New("unsupported RSA key size", errors.CategoryBadInput)
	ErrUnsupportedCurve   = errors.New("unsupported EC named curve", errors.CategoryBadInput)
	ErrUnsupportedKeyType = errors.New("unsupported key type", errors.CategoryBadInput)
)

// flowErrorMessages maps machine codes to the human message carried by
// the error-page redirect. Detail stays technical and comes from the
// underlying error.
var flowErrorMessages = map[string]string{
	TextCodeMissingParameter: "A required parameter is missing.",
	TextCodeInvalidRegCode:   "The registration code is invalid.",
	TextCodeSessionMissing:   "Your session could not be found.",
	TextCodePendingNotFound:  "There is no sign-in to resume.",
	TextCodeInvalidURL:       "The destination URL is invalid.",
	TextCodePostbackFailed:   "We could not reach the requesting service.",
	TextCodeRedirectFailed:   "The redirect could not be completed.",
}
