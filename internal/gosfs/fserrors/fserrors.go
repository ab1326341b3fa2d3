// Package fserrors defines the closed set of error codes GOSFS operations
// surface to callers, mirroring the GeekOS error codes the engine was
// distilled from.
package fserrors

import "errors"

// Code is one of the closed set of GOSFS error codes.
type Code int

const (
	// InvalidArgument covers a null/relative path, a path missing its
	// leading slash, or an attempt to take the parent of root.
	InvalidArgument Code = iota + 1
	// NotFound covers any path component that does not exist.
	NotFound
	// NoMemory covers caller allocation failures.
	NoMemory
	// NoSpace covers exhaustion of free inodes or free blocks.
	NoSpace
	// AccessDenied covers permission violations: reading a handle opened
	// without O_READ, writing one opened without O_WRITE, deleting a
	// non-empty directory, or deleting a file that is still open.
	AccessDenied
	// InvalidFS covers a superblock magic mismatch at mount.
	InvalidFS
	// Unspecified covers everything else, including propagated cache and
	// block-device errors.
	Unspecified
)

func (c Code) String() string {
	switch c {
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case NotFound:
		return "NOT_FOUND"
	case NoMemory:
		return "NO_MEMORY"
	case NoSpace:
		return "NO_SPACE"
	case AccessDenied:
		return "ACCESS_DENIED"
	case InvalidFS:
		return "INVALID_FS"
	default:
		return "UNSPECIFIED"
	}
}

// Error is the error type every GOSFS operation returns on failure. It
// carries the op that failed (for log correlation, same convention as the
// teacher's fmt.Errorf("%s: %w", op, err) wrapping) and the closed-set code.
type Error struct {
	Op      string
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Op + ": " + e.Message
	}
	return e.Op + ": " + e.Code.String()
}

// GetCode mirrors the teacher's ServiceError.GetCode, used by the HTTP
// layer to map a domain error onto a wire response code.
func (e *Error) GetCode() Code {
	return e.Code
}

// New builds a *Error for op with the given code and message.
func New(op string, code Code, message string) *Error {
	return &Error{Op: op, Code: code, Message: message}
}

// CodeOf extracts the Code from err, defaulting to Unspecified for any
// error that isn't a *Error (e.g. a propagated cache/device error).
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Code
	}
	return Unspecified
}
