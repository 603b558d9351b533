package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// SerializableTxOptions is used for every unit of work that mutates auctions or ledgers
var SerializableTxOptions = pgx.TxOptions{IsoLevel: pgx.Serializable}

// IsRetryableTxError reports whether err is a serialization conflict that
// succeeds when the whole transaction is replayed.
func IsRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}
