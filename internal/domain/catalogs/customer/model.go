// Package customer provides the customer catalog. Customers own vehicles
// and are billed through sales.
package customer

import (
	"context"
	"regexp"
	"strings"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
)

var (
	digitsOnlyRE = regexp.MustCompile(`^\d+$`)
	emailRE      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// DocumentType is the Colombian identification document kind.
type DocumentType string

const (
	DocCC       DocumentType = "CC"  // cedula de ciudadania
	DocNIT      DocumentType = "NIT" // company tax id
	DocCE       DocumentType = "CE"  // cedula de extranjeria
	DocPassport DocumentType = "PAS"
	DocTI       DocumentType = "TI" // tarjeta de identidad
)

type Customer struct {
	entity.Catalog

	DocumentType   DocumentType `db:"document_type" json:"documentType"`
	DocumentNumber *string      `db:"document_number" json:"documentNumber,omitempty"`
	// VerificationDigit is the DIAN check digit, NIT only.
	VerificationDigit *int    `db:"verification_digit" json:"verificationDigit,omitempty"`
	Phone             *string `db:"phone" json:"phone,omitempty"`
	Email             *string `db:"email" json:"email,omitempty"`
	Address           *string `db:"address" json:"address,omitempty"`
	City              *string `db:"city" json:"city,omitempty"`
	Notes             *string `db:"notes" json:"notes,omitempty"`
}

func NewCustomer(code, name string, docType DocumentType) *Customer {
	return &Customer{
		Catalog:      entity.NewCatalog(code, name),
		DocumentType: docType,
	}
}

func (c *Customer) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}
	if c.DocumentType == "" {
		c.DocumentType = DocCC
	}
	if !isValidDocumentType(c.DocumentType) {
		return apperror.NewValidation("invalid document type").
			WithDetail("field", "documentType").
			WithDetail("value", string(c.DocumentType))
	}

	if c.DocumentNumber != nil && *c.DocumentNumber != "" {
		num := strings.NewReplacer(".", "", " ", "", "-", "").Replace(*c.DocumentNumber)
		c.DocumentNumber = &num
		if c.DocumentType != DocPassport && !digitsOnlyRE.MatchString(num) {
			return apperror.NewValidation("document number must contain only digits").
				WithDetail("field", "documentNumber")
		}
		if c.DocumentType == DocNIT {
			dv := NITCheckDigit(num)
			if c.VerificationDigit != nil && *c.VerificationDigit != dv {
				return apperror.NewValidation("NIT verification digit does not match").
					WithDetail("field", "verificationDigit").
					WithDetail("expected", dv)
			}
			c.VerificationDigit = &dv
		}
	}

	if c.Email != nil && *c.Email != "" && !emailRE.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}
	return nil
}

var nitWeights = []int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// NITCheckDigit computes the DIAN verification digit. Digits are weighted
// from the right; numbers longer than fifteen digits use the first fifteen weights.
func NITCheckDigit(nit string) int {
	sum := 0
	for i := 0; i < len(nit) && i < len(nitWeights); i++ {
		d := int(nit[len(nit)-1-i] - '0')
		sum += d * nitWeights[i]
	}
	r := sum % 11
	if r > 1 {
		return 11 - r
	}
	return r
}

func isValidDocumentType(t DocumentType) bool {
	switch t {
	case DocCC, DocNIT, DocCE, DocPassport, DocTI:
		return true
	}
	return false
}
