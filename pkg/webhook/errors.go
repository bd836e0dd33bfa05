package webhook

import "errors"

var (
	ErrInvalidURL           = errors.New("webhook: invalid URL")
	ErrInvalidPayload       = errors.New("webhook: invalid payload")
	ErrInvalidConfiguration = errors.New("webhook: invalid configuration")
	ErrSignatureInvalid     = errors.New("webhook: signature verification failed")
	ErrDeliveryFailed       = errors.New("webhook: delivery failed")
	ErrPermanentFailure     = errors.New("webhook: permanent delivery failure")
)
