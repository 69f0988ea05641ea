package adapters

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func Test_normalizeValue(t *testing.T) {
	assert.Equal(t, "text", normalizeValue([]byte("text")))
	assert.Equal(t, int64(3), normalizeValue(int64(3)))
	assert.Nil(t, normalizeValue(nil))
}

func Test_normalizePGXValue(t *testing.T) {
	var numeric pgtype.Numeric
	assert.NoError(t, numeric.Scan("12.5"))

	assert.Equal(t, 12.5, normalizePGXValue(numeric))
	assert.Nil(t, normalizePGXValue(pgtype.Numeric{}))
	assert.Equal(t, "x", normalizePGXValue("x"))
}
