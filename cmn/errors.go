package cmn

import "fmt"

// Kind identifies one of the error taxonomy members from spec.md §7.
// Callers that need the HTTP status for a synchronous path type-assert to
// the *Error below rather than matching on Kind directly.
type Kind string

const (
	KindTokenInvalid        Kind = "TokenInvalid"
	KindTokenExpired        Kind = "TokenExpired"
	KindItemNotFound        Kind = "ItemNotFound"
	KindJobNotFound         Kind = "JobNotFound"
	KindFileNotFound        Kind = "FileNotFound"
	KindContainerNotFound   Kind = "ContainerNotFound"
	KindEmptySelection      Kind = "EmptySelection"
	KindResourceLocked      Kind = "ResourceLocked"
	KindObjectNotFound      Kind = "ObjectNotFound"
	KindObjectStoreError    Kind = "ObjectStoreError"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
)

// statusByKind mirrors the table in spec.md §7. Worker-side-only kinds
// (ResourceLocked, ObjectNotFound, ObjectStoreError) are never returned to
// an HTTP caller directly, but still carry a status for logging/metrics
// consistency.
var statusByKind = map[Kind]int{
	KindTokenInvalid:        400,
	KindTokenExpired:        401,
	KindItemNotFound:        404,
	KindJobNotFound:         404,
	KindFileNotFound:        404,
	KindContainerNotFound:   404,
	KindEmptySelection:      400,
	KindResourceLocked:      500,
	KindObjectNotFound:      500,
	KindObjectStoreError:    500,
	KindUpstreamUnavailable: 500,
}

// Error is the one error type every package in this module returns for
// domain failures; adapter packages (objstore, metadata, lockclient, ...)
// wrap transport errors into one of these via the New<Kind> constructors
// below so that downloadmgr never has to inspect driver-specific error
// types to decide how a job should terminate.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status a synchronous caller should surface.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return 500
}

func newErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func NewErrTokenInvalid(format string, args ...interface{}) *Error {
	return newErr(KindTokenInvalid, nil, format, args...)
}

func NewErrTokenExpired(format string, args ...interface{}) *Error {
	return newErr(KindTokenExpired, nil, format, args...)
}

func NewErrItemNotFound(id string) *Error {
	return newErr(KindItemNotFound, nil, "item %q does not exist", id)
}

func NewErrJobNotFound(prefix string) *Error {
	return newErr(KindJobNotFound, nil, "no job record under prefix %q", prefix)
}

func NewErrFileNotFound(path string) *Error {
	return newErr(KindFileNotFound, nil, "file %q does not exist", path)
}

func NewErrContainerNotFound(code string) *Error {
	return newErr(KindContainerNotFound, nil, "container %q does not exist", code)
}

func NewErrEmptySelection() *Error {
	return newErr(KindEmptySelection, nil, "[Invalid file amount] must greater than 0")
}

func NewErrResourceLocked(cause error, keys []string) *Error {
	return newErr(KindResourceLocked, cause, "resources already in use: %v", keys)
}

func NewErrObjectNotFound(cause error, bucket, objectPath string) *Error {
	return newErr(KindObjectNotFound, cause, "object %s/%s not found", bucket, objectPath)
}

func NewErrObjectStoreError(cause error, bucket, objectPath string) *Error {
	return newErr(KindObjectStoreError, cause, "object store error for %s/%s", bucket, objectPath)
}

func NewErrUpstreamUnavailable(cause error, upstream string) *Error {
	return newErr(KindUpstreamUnavailable, cause, "%s unavailable", upstream)
}

// IsKind reports whether the first *Error found along err's Unwrap chain
// has the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
