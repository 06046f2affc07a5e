package order

import "time"

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAwaiting  OrderStatus = "awaiting"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusDeleted   OrderStatus = "deleted"
)

type OrderRecord struct {
	OrderUID      string
	UserUID       string
	Status        OrderStatus
	PaymentMethod string
	FinalAmount   int64
	Currency      string
	AddressUID    string
	IsSelfPickup  bool
	DeliveryTip   int64
	CreatedAt     time.Time
	LastModified  *time.Time
}

type TransactionType string

const (
	TransactionTypeOrder  TransactionType = "transaction"
	TransactionTypeWallet TransactionType = "wallet"
)

// TransactionRecord is append-only: written exactly once per successful
// payment attempt, never updated or removed.
type TransactionRecord struct {
	TransactionUID string
	OrderUID       string // empty for wallet top-ups
	AttemptUID     string
	Type           TransactionType
	Gateway        string
	ExternalTxnUID string
	AmountInCents  int64
	Currency       string
	Status         string
	Message        string
	CreatedAt      time.Time
}
