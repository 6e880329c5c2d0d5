package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lostfound/models"
	"github.com/cppla/lostfound/services"
)

// itemForm is the submission shared by /add-lost and /add-found. Fields the
// client leaves out stay nil and are stored as NULL.
type itemForm struct {
	Title       *string `form:"title"`
	Description *string `form:"description"`
	Contact     *string `form:"contact"`
	Location    *string `form:"location"`
	DateLF      string  `form:"date_lf"`
}

func (f itemForm) toInput(kind models.Kind) (services.CreateInput, error) {
	occurredOn, err := services.ParseOccurredOn(f.DateLF)
	if err != nil {
		return services.CreateInput{}, err
	}
	return services.CreateInput{
		Kind:        kind,
		Title:       f.Title,
		Description: f.Description,
		Contact:     f.Contact,
		Location:    f.Location,
		OccurredOn:  occurredOn,
	}, nil
}

// openPhoto returns the uploaded "photo" part, or nil when none was sent.
// The returned closer is always safe to call.
func openPhoto(c *gin.Context) (*services.Photo, io.Closer, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nopCloser{}, nil
		}
		return nil, nopCloser{}, err
	}
	if fh.Filename == "" {
		return nil, nopCloser{}, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nopCloser{}, err
	}
	return &services.Photo{Filename: fh.Filename, Content: f}, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
