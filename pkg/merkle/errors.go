package merkle

import (
	"errors"
	"fmt"
)

// Terminal outcomes of proof building and verification. Every error returned
// by BuildProof, Verify and ComputeListHash matches one of these via errors.Is.
var (
	// ErrIndexOutOfRange is returned when an index is not below the list length.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrMissingNode is returned when a proof lacks a hash needed to reach the root.
	ErrMissingNode = errors.New("missing node")

	// ErrUnexpectedNode is returned when a proof carries hashes or entries that
	// the verification never consumes, or that are malformed or out of order.
	ErrUnexpectedNode = errors.New("unexpected node")

	// ErrRootMismatch is returned when a well-formed proof does not hash to the
	// expected list hash.
	ErrRootMismatch = errors.New("root hash mismatch")

	// ErrInvalidRange is returned for a range proof request with from > to.
	ErrInvalidRange = errors.New("invalid range")
)

// ProofError describes why a proof was rejected.
type ProofError struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Key is the offending node, when the failure is tied to one.
	Key *ProofListKey
	// Detail is a human readable explanation.
	Detail string
}

func (e *ProofError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%v at %s: %s", e.Kind, e.Key, e.Detail)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

func (e *ProofError) Unwrap() error {
	return e.Kind
}

func newProofError(kind error, format string, args ...interface{}) *ProofError {
	return &ProofError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func newNodeError(kind error, key ProofListKey, format string, args ...interface{}) *ProofError {
	return &ProofError{Kind: kind, Key: &key, Detail: fmt.Sprintf(format, args...)}
}

// ErrorKind returns the short name of the terminal outcome err belongs to, or
// an empty string when err is not a proof error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, ErrMissingNode):
		return "missing_node"
	case errors.Is(err, ErrUnexpectedNode):
		return "unexpected_node"
	case errors.Is(err, ErrRootMismatch):
		return "root_mismatch"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	default:
		return ""
	}
}
