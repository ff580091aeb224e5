package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditCompressionThreshold(t *testing.T) {
	s, err := NewAuditService()
	require.NoError(t, err)

	small := []byte(`{"status":"listo"}`)
	plain, packed, algo := s.compress(small)
	assert.Equal(t, CompressionNone, algo)
	assert.Equal(t, small, plain)
	assert.Nil(t, packed)

	large := bytes.Repeat([]byte(`{"item":"filtro"},`), 1000)
	plain, packed, algo = s.compress(large)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, plain)
	assert.Less(t, len(packed), len(large))

	e := AuditEntry{ChangesCompressed: packed, CompressionAlgo: algo}
	require.NoError(t, s.decompress(&e))
	assert.Equal(t, large, []byte(e.Changes))
}

func TestOutboxBackoff(t *testing.T) {
	assert.Equal(t, OutboxBackoff(1), OutboxBackoff(0))
	assert.Greater(t, OutboxBackoff(3), OutboxBackoff(2))
}
