package postgres

import (
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgconn"

	"moneyrank-service/internal/domain"
)

func TestStorageErrClassification(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	if err := storageErr("load challenge", dial); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable for a dial failure, got %v", err)
	}

	pgErr := &pgconn.PgError{Code: uniqueViolation}
	err := storageErr("save attempt", pgErr)
	if errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("server-side errors must not read as outages: %v", err)
	}
	var got *pgconn.PgError
	if !errors.As(err, &got) {
		t.Fatalf("expected the PgError preserved in the chain, got %v", err)
	}
}
