package errs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes
const (
	CodeFormatMismatch      = "FORMAT_MISMATCH"
	CodeKeyNotFound         = "KEY_NOT_FOUND"
	CodeDecryptionFailed    = "DECRYPTION_FAILED"
	CodeKeyResolutionFailed = "KEY_RESOLUTION_FAILED"
	CodeScriptNotFound      = "SCRIPT_NOT_FOUND"
	CodePayloadNotFound     = "PAYLOAD_NOT_FOUND"
	CodeNoImages            = "NO_IMAGES"
)

var sentinels = map[string]error{
	CodeFormatMismatch:      ErrFormat,
	CodeKeyNotFound:         ErrKeyNotFound,
	CodeDecryptionFailed:    ErrDecryption,
	CodeKeyResolutionFailed: ErrKeyResolution,
	CodeScriptNotFound:      ErrScriptNotFound,
	CodePayloadNotFound:     ErrPayloadNotFound,
	CodeNoImages:            ErrNoImages,
}

// Error represents a structured error with code and details
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Details)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel for the code and the underlying cause,
// so errors.Is works against either.
func (e *Error) Unwrap() []error {
	var out []error
	if s, ok := sentinels[e.Code]; ok {
		out = append(out, s)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// MarshalJSON implements json.Marshaler
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	return json.Marshal(&struct {
		*Alias
		Error string `json:"error"`
	}{
		Alias: (*Alias)(e),
		Error: e.Error(),
	})
}

// New creates a new Error with the given code and message
func New(code string, message string, details ...any) *Error {
	e := &Error{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

// Wrap is like New but records cause as the underlying error.
func Wrap(cause error, code string, message string, details ...any) *Error {
	e := New(code, message, details...)
	e.cause = cause
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsFormat reports whether err signals an obfuscation or encoding mismatch.
func IsFormat(err error) bool { return errors.Is(err, ErrFormat) }

// IsKeyNotFound reports whether err signals a missing script variable.
func IsKeyNotFound(err error) bool { return errors.Is(err, ErrKeyNotFound) }

// IsDecryption reports whether err signals a payload decryption failure.
func IsDecryption(err error) bool { return errors.Is(err, ErrDecryption) }

// IsKeyResolution reports whether err signals a per-image key failure.
func IsKeyResolution(err error) bool { return errors.Is(err, ErrKeyResolution) }

// IsScriptNotFound reports whether err signals a page without chapter.js.
func IsScriptNotFound(err error) bool { return errors.Is(err, ErrScriptNotFound) }

// IsPayloadNotFound reports whether err signals a page without imgsrcs.
func IsPayloadNotFound(err error) bool { return errors.Is(err, ErrPayloadNotFound) }

// IsNoImages reports whether err signals an empty image list.
func IsNoImages(err error) bool { return errors.Is(err, ErrNoImages) }

// IsFatal reports whether err means the site changed and retrying the same
// deterministic transform cannot succeed.
func IsFatal(err error) bool {
	return IsFormat(err) || IsKeyNotFound(err) || IsDecryption(err)
}
