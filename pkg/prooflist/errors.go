package prooflist

import "errors"

var (
	// ErrInvalidListName is returned for names outside [A-Za-z0-9_.-]{1,128}.
	ErrInvalidListName = errors.New("invalid list name")

	// ErrHasherMismatch is returned when a stored list is opened with a
	// different hasher than the one its node hashes were computed with.
	ErrHasherMismatch = errors.New("hasher mismatch")

	// ErrCorrupted is returned when the store lacks an element or a node
	// hash that the list length says must exist.
	ErrCorrupted = errors.New("list storage corrupted")

	// ErrListDeleted is returned for writes through a handle obtained before
	// the list was deleted from its Group. Get a new handle instead.
	ErrListDeleted = errors.New("list deleted")
)
