package store

import "errors"

// Typed store errors. Implementations return these (wrapped or bare) so
// the protocol layer can translate them to wire statuses without knowing
// which backend is underneath.
var (
	ErrNotFound     = errors.New("store: no such file or directory")
	ErrExist        = errors.New("store: file already exists")
	ErrNotDir       = errors.New("store: not a directory")
	ErrIsDir        = errors.New("store: is a directory")
	ErrNotEmpty     = errors.New("store: directory not empty")
	ErrInvalid      = errors.New("store: invalid argument")
	ErrPermission   = errors.New("store: permission denied")
	ErrNoSpace      = errors.New("store: no space left on device")
	ErrFileTooLarge = errors.New("store: file too large")
	ErrReadOnly     = errors.New("store: read-only file system")
	ErrNotSupported = errors.New("store: operation not supported")
)
