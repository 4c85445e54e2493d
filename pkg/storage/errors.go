package storage

import (
	"errors"
	"fmt"
)

// ErrPageNotFound matches every PageNotFoundError through errors.Is.
var ErrPageNotFound = errors.New("storage: page not found")

// Done is returned by Iterator.Next when no pages remain.
var Done = errors.New("storage: no more pages")

// PageNotFoundError reports that no resource exists for the given page name.
type PageNotFoundError struct {
	Name string
}

func (e *PageNotFoundError) Error() string {
	return fmt.Sprintf("storage: page %q not found", e.Name)
}

// Is lets errors.Is(err, ErrPageNotFound) match.
func (e *PageNotFoundError) Is(target error) bool {
	return target == ErrPageNotFound
}

// ImplError wraps a backend specific failure (I/O, parsing, path handling).
type ImplError struct {
	Backend string
	Op      string
	Name    string
	Err     error
}

func (e *ImplError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("storage %s %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s %q: %v", e.Backend, e.Op, e.Name, e.Err)
}

func (e *ImplError) Unwrap() error {
	return e.Err
}

// NotFound builds a PageNotFoundError for name.
func NotFound(name string) error {
	return &PageNotFoundError{Name: name}
}

// WrapImpl wraps err into an ImplError. A nil err stays nil and errors that
// already belong to the storage taxonomy are returned unchanged.
func WrapImpl(backend, op, name string, err error) error {
	if err == nil {
		return nil
	}
	var impl *ImplError
	if errors.As(err, &impl) || errors.Is(err, ErrPageNotFound) {
		return err
	}
	return &ImplError{
		Backend: backend,
		Op:      op,
		Name:    name,
		Err:     err,
	}
}

// IsNotFound reports whether err is a page-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPageNotFound)
}
