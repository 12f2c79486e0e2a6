package media

import (
	"errors"
	"fmt"
)

var (
	ErrAborted           = errors.New("media playback aborted")
	ErrNetwork           = errors.New("media network error")
	ErrDecode            = errors.New("media decode error")
	ErrFormatUnsupported = errors.New("media format unsupported")
)

type ErrorCode string

const (
	CodeAborted           ErrorCode = "aborted"
	CodeNetwork           ErrorCode = "network"
	CodeDecode            ErrorCode = "decode"
	CodeFormatUnsupported ErrorCode = "format_unsupported"
)

var sentinels = map[ErrorCode]error{
	CodeAborted:           ErrAborted,
	CodeNetwork:           ErrNetwork,
	CodeDecode:            ErrDecode,
	CodeFormatUnsupported: ErrFormatUnsupported,
}

// CodeFromHTML maps a MediaError.code value reported by a browser.
func CodeFromHTML(code int) ErrorCode {
	switch code {
	case 1:
		return CodeAborted
	case 2:
		return CodeNetwork
	case 3:
		return CodeDecode
	case 4:
		return CodeFormatUnsupported
	default:
		return CodeDecode
	}
}

// ParseCode accepts either a code name or an unknown value, which is treated as a
// decode failure.
func ParseCode(s string) ErrorCode {
	code := ErrorCode(s)
	if _, ok := sentinels[code]; ok {
		return code
	}

	return CodeDecode
}

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

func NewError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("media error: %s", e.Code)
	}

	return fmt.Sprintf("media error: %s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	return sentinels[e.Code] == target
}

// Recoverable reports whether playback may be retried from the last position.
func (e *Error) Recoverable() bool {
	return e.Code != CodeFormatUnsupported
}

func (e *Error) Fatal() bool {
	return !e.Recoverable()
}

// AsError extracts a *Error from err, classifying anything else as a decode failure.
func AsError(err error) *Error {
	var me *Error
	if errors.As(err, &me) {
		return me
	}

	return NewError(CodeDecode, err.Error())
}
