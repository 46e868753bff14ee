package meta

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errno is a POSIX-style error code carried on every filesystem error.
// The set is closed and intentionally small: it mirrors only the errnos
// the inode filesystem actually raises (see the error policy table).
type Errno string

const (
	ENOENT   Errno = "ENOENT"
	EEXIST   Errno = "EEXIST"
	ENOTDIR  Errno = "ENOTDIR"
	EISDIR   Errno = "EISDIR"
	ENOTEMPTY Errno = "ENOTEMPTY"
	EINVAL   Errno = "EINVAL"
	EPERM    Errno = "EPERM"
	ENOSYS   Errno = "ENOSYS"
	EIO      Errno = "EIO"
)

// Error is the structured filesystem error record: {code, syscall, path, message}.
type Error struct {
	Code    Errno
	Syscall string
	Path    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s '%s': %s", e.Syscall, e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s '%s'", e.Syscall, e.Code, e.Path)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(code Errno, syscall, path, message string) *Error {
	return &Error{Code: code, Syscall: syscall, Path: path, Message: message}
}

// wrapErr attaches a lower-level (store) error as the cause while keeping
// the POSIX-shaped error the caller actually matches on. The cause is
// wrapped with github.com/pkg/errors so the root cause (and its stack
// trace) survives a rolled-back transaction all the way to callers that
// print with "%+v".
func wrapErr(code Errno, syscall, path string, cause error) *Error {
	e := newErr(code, syscall, path, "")
	if cause != nil {
		e.Message = cause.Error()
		e.cause = errors.Wrapf(cause, "%s %s", syscall, path)
	}
	return e
}

func errNoEnt(syscall, path string) *Error  { return newErr(ENOENT, syscall, path, "no such file or directory") }
func errExist(syscall, path string) *Error  { return newErr(EEXIST, syscall, path, "file exists") }
func errNotDir(syscall, path string) *Error { return newErr(ENOTDIR, syscall, path, "not a directory") }
func errIsDir(syscall, path string) *Error  { return newErr(EISDIR, syscall, path, "is a directory") }
func errNotEmpty(syscall, path string) *Error {
	return newErr(ENOTEMPTY, syscall, path, "directory not empty")
}
func errInval(syscall, path, message string) *Error { return newErr(EINVAL, syscall, path, message) }
func errPerm(syscall, path string) *Error           { return newErr(EPERM, syscall, path, "operation not permitted") }
func errNoSys(syscall, path, message string) *Error { return newErr(ENOSYS, syscall, path, message) }

// asErr normalizes any error returned from a resolver/lookup call into the
// structured shape a caller expects: a *Error gets its syscall/path
// stamped with the operation that actually failed; anything else (a raw
// store error) is wrapped as EIO so callers only ever match on Errno.
func asErr(err error, syscall, path string) error {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*Error); ok {
		fe.Syscall = syscall
		fe.Path = path
		return fe
	}
	return wrapErr(EIO, syscall, path, err)
}

// normalizeStoreErr is the boundary guard every exported InodeFS/Handle
// method defers: an already-structured *Error was stamped with the right
// syscall/path at the call site that actually produced it and is returned
// as-is, while anything else (a raw store error that slipped through
// unwrapped) is wrapped as EIO via wrapErr, so no caller ever sees a bare
// store-layer error.
func normalizeStoreErr(err error, syscall, path string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return wrapErr(EIO, syscall, path, err)
}
