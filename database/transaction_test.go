package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableTxError(t *testing.T) {
	assert.True(t, IsRetryableTxError(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryableTxError(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsRetryableTxError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryableTxError(errors.New("connection refused")))
	assert.False(t, IsRetryableTxError(nil))
}
