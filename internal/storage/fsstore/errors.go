package fsstore

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageDirNotFound is returned by Open when the root is missing or not a directory.
	ErrStorageDirNotFound = errors.New("fsstore: storage directory not found")
	// ErrIgnoringHiddenName is returned when a hidden name is read while hidden entries are ignored.
	ErrIgnoringHiddenName = errors.New("fsstore: name refers to a hidden entry")
	// ErrPathNotValidUnicode is returned when a walked path cannot be used as a page name.
	ErrPathNotValidUnicode = errors.New("fsstore: path is not valid unicode")
	// ErrInvalidName is returned for empty, absolute or root-escaping page names.
	ErrInvalidName = errors.New("fsstore: invalid page name")
)

// WalkError reports a failure to list a directory during iteration.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("fsstore: walk %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// StripPrefixError reports a walked path that does not live under the root.
type StripPrefixError struct {
	Path string
	Root string
}

func (e *StripPrefixError) Error() string {
	return fmt.Sprintf("fsstore: path %s is not under root %s", e.Path, e.Root)
}
