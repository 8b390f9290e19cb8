package cache

import (
	"errors"
	"fmt"
)

// Errors reported when a cache cannot be built or used.
var (
	ErrNonPositive     = errors.New("dimension must be positive")
	ErrNotPowerOfTwo   = errors.New("dimension must be a power of two")
	ErrNonMultipleSize = errors.New("size must be a multiple of line size times associativity")
	ErrAllocation      = errors.New("cannot allocate cache storage")
	ErrUnknownPolicy   = errors.New("unknown replacement policy")
	ErrDestroyed       = errors.New("cache has been destroyed")
)

// A ConstructionError reports which geometry invariant a construction or a
// resize violated.
type ConstructionError struct {
	Field string
	Value int64
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("invalid cache geometry: %s %d: %v",
		e.Field, e.Value, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// An UnknownPolicyError reports a replacement policy name that is not
// supported.
type UnknownPolicyError struct {
	Name string
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownPolicy, e.Name)
}

func (e *UnknownPolicyError) Is(target error) bool {
	return target == ErrUnknownPolicy
}

// An AllocationError reports a geometry whose storage cannot be obtained.
type AllocationError struct {
	Blocks uint64
	Bytes  uint64
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("%v: %d lines need %d bytes, at most %d allowed",
		ErrAllocation, e.Blocks, e.Bytes, MaxStorageBytes)
}

func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocation
}
