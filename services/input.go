package services

import (
	"fmt"
	"io"
	"time"

	"github.com/cppla/lostfound/models"
)

// dateLayout accepts zero-padded and bare month/day numbers ("2024-03-05", "2024-3-5").
const dateLayout = "2006-1-2"

// Photo is an attachment as received from the client.
type Photo struct {
	Filename string
	Content  io.Reader
}

// CreateInput is a validated report submission. Nil text fields are stored
// as NULL.
type CreateInput struct {
	Kind        models.Kind
	Title       *string
	Description *string
	Contact     *string
	Location    *string
	// OccurredOn is a calendar date at midnight UTC; nil means "now".
	OccurredOn *time.Time
	Photo      *Photo
}

// ParseOccurredOn converts the optional form date into a midnight UTC time.
// Empty text yields nil.
func ParseOccurredOn(text string) (*time.Time, error) {
	if text == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, text, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}
	return &t, nil
}
