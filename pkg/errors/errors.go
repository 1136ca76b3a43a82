package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the different failure classes of a batch run
type ErrorType string

const (
	ErrorTypeCorruptCheckpoint ErrorType = "corrupt_checkpoint"
	ErrorTypeInvalidRecord     ErrorType = "invalid_record"
	ErrorTypeNavigation        ErrorType = "navigation"
	ErrorTypeImageNotFound     ErrorType = "image_not_found"
	ErrorTypeDownload          ErrorType = "download"
	ErrorTypeWrite             ErrorType = "write"
	ErrorTypeUnhandled         ErrorType = "unhandled"
)

// Error is a classified failure. Err holds the underlying cause, if any.
type Error struct {
	Type    ErrorType
	Message string
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.URL != "" {
		return fmt.Sprintf("%s error (%s): %s", e.Type, e.URL, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(t ErrorType, url string, message string, cause error) *Error {
	return &Error{Type: t, Message: message, URL: url, Err: cause}
}

// CorruptCheckpoint reports an unreadable checkpoint or failure file
func CorruptCheckpoint(path string, cause error) *Error {
	return &Error{Type: ErrorTypeCorruptCheckpoint, Message: "cannot parse " + path, Err: cause}
}

// Navigation reports a failure loading the photo page
func Navigation(url string, cause error) *Error {
	return &Error{Type: ErrorTypeNavigation, URL: url, Err: cause}
}

// ImageNotFound reports a rendered page without an image element
func ImageNotFound(url string) *Error {
	return &Error{Type: ErrorTypeImageNotFound, URL: url, Message: "no image element found on page"}
}

// Download reports a failure retrieving the resolved image bytes
func Download(url string, cause error) *Error {
	return &Error{Type: ErrorTypeDownload, URL: url, Err: cause}
}

// Write reports a failure persisting the image to disk
func Write(path string, cause error) *Error {
	return &Error{Type: ErrorTypeWrite, URL: path, Err: cause}
}

// TypeOf returns the classification of err, or ErrorTypeUnhandled
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnhandled
}

// IsRecordFailure reports whether err is confined to a single manifest record
// and must be recorded rather than abort the run.
func IsRecordFailure(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNavigation, ErrorTypeImageNotFound, ErrorTypeDownload, ErrorTypeWrite:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err must terminate the run
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	t := TypeOf(err)
	return t == ErrorTypeCorruptCheckpoint || t == ErrorTypeUnhandled
}

// Reason returns the message stored in the failure log: the underlying cause's
// message when there is one, otherwise the classified message.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Err != nil {
			return e.Err.Error()
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return err.Error()
}
