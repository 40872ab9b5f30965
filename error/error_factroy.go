package error

import (
	"errors"
	"fmt"
)

var (
	VersionMismatch = errors.New("version mismatch: signature does not match at candidate base")
	NotScanned      = errors.New("base address not scanned")
	UnknownVersion  = errors.New("unknown game version")
	SignatureWidth  = errors.New("signature width does not match table")
	FieldNotFound   = errors.New("field not found in offset table")
	NoTrampoline    = errors.New("version has no trampoline layout")
	FeatureNotFound = errors.New("feature not found")
	InvalidHandle   = errors.New("invalid process handle")
)

// Unsupported is the message shown to users when a build cannot be resolved.
const Unsupported = "this game version is not supported"

// AccessError is a failed read or write against the target process. It is
// transient: the caller skips the frame and tries again on the next one.
type AccessError struct {
	Op   string
	Addr uint64
	Err  error
}

func (a *AccessError) Error() string {
	return fmt.Sprintf("%s 0x%08x: %v", a.Op, a.Addr, a.Err)
}

func (a *AccessError) Unwrap() error {
	return a.Err
}

// IsTransient reports whether err is a memory access failure. A joined
// error is transient only if every error in it is.
func IsTransient(err error) bool {
	switch x := err.(type) {
	case *AccessError:
		return true
	case interface{ Unwrap() []error }:
		errs := x.Unwrap()
		for _, err := range errs {
			if !IsTransient(err) {
				return false
			}
		}
		return len(errs) > 0
	case interface{ Unwrap() error }:
		return IsTransient(x.Unwrap())
	}
	return false
}

// IsResolution reports whether err means the running build cannot be used.
func IsResolution(err error) bool {
	return errors.Is(err, VersionMismatch) ||
		errors.Is(err, NotScanned) ||
		errors.Is(err, UnknownVersion)
}

// UserMessage renders err the way it should be presented to a user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsResolution(err) {
		return Unsupported
	}
	return err.Error()
}
