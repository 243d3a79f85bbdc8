package transport

import "fmt"

// ValidationError rejects a request client-side before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Message)
}

// NetworkError wraps a transport-level failure (refused connection, DNS,
// timeout). The request may or may not have reached the server.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a 4xx/5xx response or a success=false envelope.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (%d)", e.Status)
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// UploadError rejects an attachment, either by the client-side size/type
// pre-check or by the server during upload.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload: %s", e.Message)
}
