package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taller/internal/core/entity"
	"taller/internal/core/id"
)

type plateCatalog struct {
	entity.Catalog
	Brand   string `db:"brand"`
	Ignored string `db:"-"`
	Loaded  []string
}

func TestExtractDBColumnsFollowsEmbedding(t *testing.T) {
	cols := ExtractDBColumns[plateCatalog]()
	assert.Equal(t, []string{"id", "deletion_mark", "version", "code", "name", "brand"}, cols)

	// pointer types resolve to the same columns
	assert.Equal(t, cols, ExtractDBColumns[*plateCatalog]())
}

func TestStructToMap(t *testing.T) {
	v := plateCatalog{Catalog: entity.NewCatalog("ABC123", "Mazda 3"), Brand: "Mazda"}
	v.Version = 4

	m := StructToMap(&v)
	assert.Equal(t, v.ID, m["id"])
	assert.IsType(t, id.ID{}, m["id"])
	assert.Equal(t, 4, m["version"])
	assert.Equal(t, "ABC123", m["code"])
	assert.Equal(t, "Mazda", m["brand"])
	assert.NotContains(t, m, "Ignored")
	assert.Nil(t, StructToMap(42))
}

func TestWithout(t *testing.T) {
	assert.Equal(t, []string{"code", "name"}, Without([]string{"id", "code", "name", "version"}, "id", "version"))
}
