package redis

import (
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	"moneyrank-service/internal/domain"
)

// storageErr classifies a client failure. Closed clients and network-level
// errors mean Redis is unreachable and wrap domain.ErrStorageUnavailable so
// transports answer 503; command errors (wrong type, script failure) pass
// through wrapped as is.
func storageErr(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, redis.ErrClosed) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
