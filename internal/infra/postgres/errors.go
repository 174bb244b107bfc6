package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"

	"moneyrank-service/internal/domain"
)

// storageErr classifies a driver failure. A *pgconn.PgError means the server
// was reachable and rejected the statement, so it passes through wrapped as
// is; anything else (dial failures, closed pools, broken connections) is an
// outage and wraps domain.ErrStorageUnavailable so transports answer 503
// instead of a generic 500.
func storageErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}
