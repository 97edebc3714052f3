package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// Kind classifies an error for display and for outcome records.
type Kind string

const (
	NotFound         Kind = "not_found"
	PermissionDenied Kind = "permission_denied"
	IsDirectory      Kind = "is_directory"
	Codec            Kind = "codec"
	IO               Kind = "io"
	InvalidOption    Kind = "invalid_option"
)

// AppError is the error type used across the application. It carries a
// classification kind, the operation that failed and the affected path.
type AppError struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *AppError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap returns an AppError with the given kind, or nil if err is nil.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Kind: kind, Op: op, Path: path, Err: err}
}

// New returns an AppError built from a plain message.
func New(kind Kind, op, path, msg string) error {
	return &AppError{Kind: kind, Op: op, Path: path, Err: errors.New(msg)}
}

// Classify maps an underlying filesystem or codec error to a Kind.
func Classify(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, fs.ErrNotExist), os.IsNotExist(err):
		return NotFound
	case errors.Is(err, fs.ErrPermission), os.IsPermission(err):
		return PermissionDenied
	case errors.Is(err, syscall.EISDIR):
		return IsDirectory
	default:
		return IO
	}
}

// KindOf returns the Kind of err, or IO when err carries no classification.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Classify(err)
}

// UserMessage returns a short message suitable for non-verbose output.
// The full underlying error stays behind the verbose flag.
func UserMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	switch appErr.Kind {
	case NotFound:
		return fmt.Sprintf("file not found: %s", appErr.Path)
	case PermissionDenied:
		return fmt.Sprintf("permission denied: %s", appErr.Path)
	case IsDirectory:
		return fmt.Sprintf("path is a directory: %s", appErr.Path)
	case Codec:
		return fmt.Sprintf("image processing failed: %s", appErr.Path)
	case InvalidOption:
		return fmt.Sprintf("invalid option: %v", appErr.Err)
	default:
		return fmt.Sprintf("i/o error: %s", appErr.Path)
	}
}
