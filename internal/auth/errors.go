package auth

import "fmt"

// ExchangeError reports a failed grant against the identity provider's
// token endpoint. It is fatal to the sign-in or refresh attempt that
// produced it and is never retried.
type ExchangeError struct {
	Grant      string // "authorization_code" or "refresh_token"
	HTTPStatus int    // 0 when the request never produced a response
	Code       string // provider "error" field, when present
	Message    string
}

func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token exchange (%s) failed: %s: %s", e.Grant, e.Code, e.Message)
	}
	return fmt.Sprintf("token exchange (%s) failed: %s", e.Grant, e.Message)
}

// DerivationError reports a failed identity-pool credential derivation.
// It is fatal to the session: the caller must force a signed-out state.
type DerivationError struct {
	Step    string // "resolve identity", "exchange credentials" or "verify credentials"
	Message string
	Err     error
}

func (e *DerivationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential derivation failed at %s: %s: %v", e.Step, e.Message, e.Err)
	}
	return fmt.Sprintf("credential derivation failed at %s: %s", e.Step, e.Message)
}

func (e *DerivationError) Unwrap() error { return e.Err }
