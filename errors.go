package dircache

import "errors"

var (
	// ErrInvalidArgument is returned for arguments that can never succeed,
	// such as an inconsistent table list or an invalidation of a path that
	// is not cached. Callers should not retry.
	ErrInvalidArgument = errors.New("invalid argument")
)
