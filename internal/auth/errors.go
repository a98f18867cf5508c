package auth

import "errors"

// Error taxonomy of the authorization layer. Verification failures surface
// the literal reason to the caller; the HTTP edge maps each sentinel to a
// status code. NotFound and Conflict are answered as 400, matching the
// behavior existing platforms integrate against.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid client credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrIdentityMismatch   = errors.New("user id does not match token subject")
	ErrSubjectMismatch    = errors.New("client subject mismatch")
	ErrMalformed          = errors.New("malformed authorization token")
	ErrInternal           = errors.New("internal error")
)
