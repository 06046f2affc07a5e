package order

import "context"

// Service is the system of record for orders. The saga coordinator is its
// only writer.
type Service interface {
	CreateOrder(c context.Context, order OrderRecord) (string, error)
	FinalizeOrder(c context.Context, orderUID string, status OrderStatus) error
	DeleteOrder(c context.Context, orderUID string) error
	GetOrder(c context.Context, orderUID string) (OrderRecord, bool, error)
}

type TransactionRecorder interface {
	AddTransaction(c context.Context, txn TransactionRecord) error
	ListTransactions(c context.Context, orderUID string) ([]TransactionRecord, error)
}
