package models

import (
	"fmt"
	"time"
)

// Kind tags a report as a lost or a found item.
type Kind string

const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// ParseKind maps a raw value onto a known Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLost, KindFound:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown item kind %q", s)
	}
}

// Label is the capitalised form used in page titles and flashes.
func (k Kind) Label() string {
	switch k {
	case KindLost:
		return "Lost"
	case KindFound:
		return "Found"
	default:
		return string(k)
	}
}

// Item is a single lost/found report. Reports are written once and never
// updated, so every field is effectively immutable after Create.
//
// Title and Contact are required by the schema but kept as pointers: a form
// that omits them stores NULL and the insert is rejected by the column.
type Item struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Kind          Kind      `gorm:"column:item_type;size:20;not null" json:"kind"`
	Title         *string   `gorm:"size:100;not null" json:"title"`
	Description   *string   `gorm:"type:text" json:"description"`
	Contact       *string   `gorm:"size:100;not null" json:"contact"`
	Location      *string   `gorm:"size:100" json:"location"`
	OccurredAt    time.Time `gorm:"column:date_lost_found" json:"occurred_at"`
	PhotoFilename *string   `gorm:"column:image_filename;size:100" json:"photo_filename,omitempty"`
}

// TableName keeps the table name used by earlier deployments of the board.
func (Item) TableName() string {
	return "item"
}

// HasPhoto reports whether a stored photo is attached.
func (i *Item) HasPhoto() bool {
	return i.PhotoFilename != nil && *i.PhotoFilename != ""
}
