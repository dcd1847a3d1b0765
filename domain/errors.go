package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers compare against these with errors.Is; storage
// and job-level errors that carry extra context wrap one of these.
var (
	// Storage-port errors.
	ErrNotFound      = errors.New("jobfire: not found")
	ErrAlreadyExists = errors.New("jobfire: already exists")
	ErrInternal      = errors.New("jobfire: internal storage error")

	// Job-level errors that become a terminal Failed state.
	ErrJobImplBuildFailed = errors.New("jobfire: job implementation build failed")
	ErrPolicyNotFound     = errors.New("jobfire: policy not found")
	ErrPolicyShortCircuit = errors.New("jobfire: policy short-circuited the run")

	// User errors, fatal to the Manager operation that produced them.
	ErrServiceMissing   = errors.New("jobfire: required service missing")
	ErrAlreadyScheduled = errors.New("jobfire: job already scheduled")
	ErrJobNotFound      = errors.New("jobfire: job not found")
	ErrInvalidSettings  = errors.New("jobfire: invalid settings")

	// Worker lifecycle errors.
	ErrStopFailed     = errors.New("jobfire: worker failed to stop")
	ErrChannelClosed  = errors.New("jobfire: command channel closed")
	ErrAlreadyStopped = errors.New("jobfire: worker already stopped")
	ErrNotStopped     = errors.New("jobfire: worker not stopped")
)

// StorageKind classifies a StorageError as NotFound, AlreadyExists,
// Internal, or a backend-specific Custom message.
type StorageKind int

const (
	StorageNotFound StorageKind = iota
	StorageAlreadyExists
	StorageInternal
	StorageCustom
)

// StorageError is returned by every repository method. Kind is always one
// of the four StorageKind values; Message carries backend-specific detail
// (e.g. a driver error string) and is required when Kind is StorageCustom.
type StorageError struct {
	Kind    StorageKind
	Message string
	Cause   error
}

func (e *StorageError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("jobfire: storage: %s", e.Message)
	}
	return e.sentinel().Error()
}

func (e *StorageError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.sentinel()
}

// Is reports whether target is the sentinel matching e.Kind, so errors.Is
// matches the sentinel even when Unwrap yields a backend Cause.
func (e *StorageError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *StorageError) sentinel() error {
	switch e.Kind {
	case StorageNotFound:
		return ErrNotFound
	case StorageAlreadyExists:
		return ErrAlreadyExists
	default:
		return ErrInternal
	}
}

// NewNotFoundError wraps an optional cause as a StorageError of kind NotFound.
func NewNotFoundError(cause error) error {
	return &StorageError{Kind: StorageNotFound, Cause: cause}
}

// NewAlreadyExistsError wraps an optional cause as a StorageError of kind
// AlreadyExists.
func NewAlreadyExistsError(cause error) error {
	return &StorageError{Kind: StorageAlreadyExists, Cause: cause}
}

// NewInternalError wraps a backend error as a StorageError of kind Internal.
func NewInternalError(message string, cause error) error {
	return &StorageError{Kind: StorageInternal, Message: message, Cause: cause}
}

// NewCustomStorageError builds a StorageError of kind Custom with a
// human-readable message, for backend conditions that don't map cleanly to
// the other three kinds.
func NewCustomStorageError(message string) error {
	return &StorageError{Kind: StorageCustom, Message: message}
}

// ServiceMissingError names the service a Manager construction could not
// find while verifying the locator.
type ServiceMissingError struct {
	Name string
}

func (e *ServiceMissingError) Error() string {
	return fmt.Sprintf("jobfire: service missing: %s", e.Name)
}

func (e *ServiceMissingError) Unwrap() error { return ErrServiceMissing }

// CustomJobError is a job body's own failure reason, distinct from the
// runner's structural errors (JobImplBuildFailed, PolicyNotFound,
// PolicyShortCircuit).
type CustomJobError struct {
	Message string
}

func (e *CustomJobError) Error() string { return e.Message }

// NewCustomJobError builds a CustomJobError, formatting like fmt.Errorf.
func NewCustomJobError(format string, args ...any) error {
	return &CustomJobError{Message: fmt.Sprintf(format, args...)}
}
