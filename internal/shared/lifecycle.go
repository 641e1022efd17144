package shared

// Lifecycle is the explicit record lifecycle replacing the original
// soft-delete flag, so tests and callers can assert on it directly.
type Lifecycle string

const (
	// LifecycleActive marks a live record.
	LifecycleActive Lifecycle = "ACTIVE"
	// LifecycleVoid marks a record retired in place. Tracking lines are
	// voided (quantity zeroed, stock restored) instead of removed.
	LifecycleVoid Lifecycle = "VOID"
)

// LabelNone is the sentinel returned by Represent lookups when the record
// does not exist.
const LabelNone = "-"
