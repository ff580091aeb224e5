package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	"taller/internal/core/numerator"
	"taller/internal/core/tenant"
	"taller/internal/core/tx"
	"taller/internal/domain/domaintest"
)

type memRepo struct {
	*domaintest.CatalogRepo[*Customer]
}

func (m memRepo) GetByDocument(ctx context.Context, docType DocumentType, number string) (*Customer, error) {
	c, ok := m.Find(func(c *Customer) bool {
		return c.DocumentType == docType && c.DocumentNumber != nil && *c.DocumentNumber == number
	})
	if !ok {
		return nil, apperror.NewNotFound("customer", number)
	}
	return c, nil
}

func strPtr(s string) *string { return &s }

func TestNITCheckDigit(t *testing.T) {
	assert.Equal(t, 3, NITCheckDigit("900373115"))
	assert.Equal(t, 4, NITCheckDigit("860002964"))
	assert.Equal(t, 4, NITCheckDigit("800197268"))
}

func TestValidateNormalizesDocument(t *testing.T) {
	c := NewCustomer("", "Transportes SAS", DocNIT)
	c.DocumentNumber = strPtr("900.373.115")
	require.NoError(t, c.Validate(context.Background()))
	assert.Equal(t, "900373115", *c.DocumentNumber)
	require.NotNil(t, c.VerificationDigit)
	assert.Equal(t, 3, *c.VerificationDigit)

	wrong := 7
	c.VerificationDigit = &wrong
	assert.Error(t, c.Validate(context.Background()))
}

func TestValidateRejects(t *testing.T) {
	ctx := context.Background()

	c := NewCustomer("", "Ana", DocCC)
	c.DocumentNumber = strPtr("12A45")
	assert.Error(t, c.Validate(ctx))

	c = NewCustomer("", "Ana", DocCC)
	c.Email = strPtr("not-an-email")
	assert.Error(t, c.Validate(ctx))

	c = NewCustomer("", "Ana", "XX")
	assert.Error(t, c.Validate(ctx))

	c = NewCustomer("", "Ana", "")
	require.NoError(t, c.Validate(ctx))
	assert.Equal(t, DocCC, c.DocumentType)
}

func TestServiceGeneratesCodeAndKeepsDocumentsUnique(t *testing.T) {
	repo := memRepo{domaintest.NewCatalogRepo[*Customer]("customer")}
	svc := NewService(repo, &numerator.MockGenerator{})
	ctx := tenant.WithTxManager(context.Background(), tx.Passthrough{})

	first := NewCustomer("", "Ana Ruiz", DocCC)
	first.DocumentNumber = strPtr("1020304050")
	require.NoError(t, svc.Create(ctx, first))
	assert.NotEmpty(t, first.Code)

	second := NewCustomer("", "Ana R.", DocCC)
	second.DocumentNumber = strPtr("1020304050")
	err := svc.Create(ctx, second)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
}
