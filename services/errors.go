package services

import "errors"

var (
	// ErrNotFound is returned by Get for an id that was never assigned.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidDate marks a date that is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrPhotoTooLarge is returned when an attached photo exceeds the upload limit.
	ErrPhotoTooLarge = errors.New("photo exceeds the upload size limit")
)

// PersistError wraps a failed insert. The transaction has already been
// rolled back when it is returned.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return "save item: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
