package notification

import "time"

// Notification is the user-facing message produced for every terminal saga
// outcome.
type Notification struct {
	NotificationUID string
	UserUID         string
	RunUID          string
	OrderUID        string
	Kind            Kind
	Message         string
	CreatedAt       time.Time
}

type Kind string

const (
	KindOrderConfirmed         Kind = "orderConfirmed"
	KindOrderFailed            Kind = "orderFailed"
	KindWalletToppedUp         Kind = "walletToppedUp"
	KindReconciliationRequired Kind = "reconciliationRequired"
)
