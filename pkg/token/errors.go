package token

import "errors"

var (
	// ErrInvalidToken indicates the token is malformed or undecodable.
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrSignatureInvalid indicates the signature does not match the payload.
	ErrSignatureInvalid = errors.New("token: signature mismatch")
)
