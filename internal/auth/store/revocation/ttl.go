package revocation

import (
	"fmt"
	"time"

	"modzero/pkg/platform/sentinel"
)

// Revocation TTLs come from the remaining lifetime of the token being
// revoked. A non-positive TTL means the token already expired and there
// is nothing left to revoke.
func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("revocation ttl %v must be positive: %w", ttl, sentinel.ErrInvalidState)
	}
	return nil
}
