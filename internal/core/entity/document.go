package entity

import (
	"context"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
)

// Document is a numbered business record (work order, sale, settlement).
type Document struct {
	BaseDocument

	// Number is assigned by the numerator and unique per document type.
	Number string    `db:"number" json:"number"`
	Date   time.Time `db:"date" json:"date"`
	Notes  string    `db:"notes" json:"notes,omitempty"`
}

func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
	}
}

func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

func (d *Document) GetID() id.ID {
	return d.ID
}

// NeedsNumber reports whether the numerator still has to assign a number.
func (d *Document) NeedsNumber() bool {
	return d.Number == ""
}
