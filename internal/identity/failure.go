package identity

import (
	"errors"
	"fmt"
)

// Kind tags a Failure with the policy the caller should apply.
type Kind string

const (
	// KindValidation marks malformed local input; no network was attempted.
	KindValidation Kind = "validation"
	// KindNetwork marks a transport failure or a malformed payload.
	KindNetwork Kind = "network"
	// KindAuth marks server-rejected credentials or session; Detail carries
	// the server's human-readable message.
	KindAuth Kind = "auth"
	// KindPermission marks an authenticated user lacking the administrator
	// flag on a privileged capability.
	KindPermission Kind = "permission"
)

// Failure is the only error type that crosses this package's boundary.
// Every rejection path produces exactly one Failure.
type Failure struct {
	Kind   Kind
	Detail string
	Status int // HTTP status carried by the failure, 0 when no response arrived
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", f.Kind, f.Detail, f.Status)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// AsFailure unwraps err into a *Failure if one is present.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	if f, ok := AsFailure(err); ok {
		return f.Kind == kind
	}
	return false
}
