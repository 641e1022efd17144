// Package shared holds cross-cutting persistence helpers and the error
// taxonomy common to the stock, shipment and adjustment modules.
package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates a referenced ledger/shipment/adjustment record
	// does not exist. Fatal to the operation; the transaction aborts.
	ErrNotFound = errors.New("referenced record not found")
	// ErrInsufficientStock indicates a debit would drive a ledger entry
	// negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrIllegalTransition indicates a status-gated mutation was attempted
	// out of order. Always reported with the blocking condition.
	ErrIllegalTransition = errors.New("illegal state transition")
	// ErrInvalidCommand indicates a command that is structurally wrong
	// independent of record state, such as a line bound to no shipment.
	ErrInvalidCommand = errors.New("invalid command")
)

// DuplicateTrackingNumberError reports a tracking number already used
// within the shipping organisation. The owning org is surfaced so callers
// can display who holds the number.
type DuplicateTrackingNumberError struct {
	OrgID      int64
	TrackingNo string
}

func (e *DuplicateTrackingNumberError) Error() string {
	return fmt.Sprintf("tracking number %s is already used by organisation %d", e.TrackingNo, e.OrgID)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
