package widevine

import "fmt"

// CryptoError is returned when the signing key or IV cannot be used.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("widevine: sign request: %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }
func (e *CryptoError) Cause() error  { return e.Err }

// RequestError is returned when the key server answers with anything but 200.
// It wraps nothing, so errors.Cause stops at it.
type RequestError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("widevine: request failed with status code %d: %s", e.StatusCode, e.Body)
}

// DecodeError is returned when the key server body is not the expected
// base64 wrapped JSON.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("widevine: decode response: %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
func (e *DecodeError) Cause() error  { return e.Err }
