package enums

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// GrantsAccess reports whether a record in this status unlocks content.
func (s PurchaseStatus) GrantsAccess() bool {
	return s == PurchaseStatusCompleted
}
