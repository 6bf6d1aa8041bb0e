package transcriber

import "fmt"

// RequestError reports a rejected or undeliverable submission. Status is 0
// when no response was received.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	return fmt.Sprintf("HTTP error! status: %d - %s", e.Status, msg)
}

func (e *RequestError) Unwrap() error { return e.Err }

// FetchError reports a failed note-list retrieval. Status is 0 for transport
// and decoding failures.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	}
	return fmt.Sprintf("fetching notes: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
