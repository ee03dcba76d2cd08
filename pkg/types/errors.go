package types

import (
	"errors"
	"fmt"
)

// FailureCode classifies the precondition and setup failures that abort a
// run. UI-timing uncertainty inside the submit loop is absorbed by retries
// and never carries a code.
type FailureCode string

const (
	CodeBrowserNotFound        FailureCode = "BrowserNotFound"
	CodeLaunchTimeout          FailureCode = "LaunchTimeout"
	CodeDownloadFailed         FailureCode = "DownloadFailed"
	CodeInvalidEncoding        FailureCode = "InvalidEncoding"
	CodeImageNotFound          FailureCode = "ImageNotFound"
	CodeNavigationTimeout      FailureCode = "NavigationTimeout"
	CodeLoginTimeout           FailureCode = "LoginTimeout"
	CodeUploadElementMissing   FailureCode = "UploadElementMissing"
	CodePublishControlNotFound FailureCode = "PublishControlNotFound"
)

// FailureError is a coded failure. It aborts the run immediately and
// surfaces as a Failure outcome carrying its message.
type FailureError struct {
	Code FailureCode
	Msg  string
	Err  error
}

func (e *FailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying error.
func (e *FailureError) Unwrap() error {
	return e.Err
}

// Failf builds a coded failure from a format string.
func Failf(code FailureCode, format string, args ...any) *FailureError {
	return &FailureError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapFailure attaches a code and context to an underlying error.
func WrapFailure(code FailureCode, err error, format string, args ...any) *FailureError {
	return &FailureError{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the failure code from an error chain.
func CodeOf(err error) (FailureCode, bool) {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}
