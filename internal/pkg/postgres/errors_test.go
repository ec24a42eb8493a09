package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintErrors(t *testing.T) {
	unique := fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsCheckViolation(errors.New("plain")))
}

func TestCalcBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    string
	}{
		{1, "1s"},
		{2, "2s"},
		{4, "8s"},
		{6, "16s"},
		{10, "16s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffFor(tt.attempt).String())
	}
}
