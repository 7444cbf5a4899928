package classifier

import "fmt"

// TransportError means no complete response came back from the classification API.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classification request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError is a non-2xx answer from the classification API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

// MalformedResponseError is a 2xx body that is not a chat completion at all.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed classification response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
