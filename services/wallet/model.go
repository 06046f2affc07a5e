package wallet

import "time"

type Balance struct {
	UserUID       string
	AmountInCents int64
	LastModified  *time.Time
}

// Adjustment is the audit trail entry kept for every committed delta.
type Adjustment struct {
	AdjustmentUID string
	UserUID       string
	Delta         int64
	Reason        string
	CreatedAt     time.Time
}
