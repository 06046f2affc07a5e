package order

import (
	"fmt"

	"context"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
	"github.com/MinhChien3980/foodease-backend/lib/myuuid"
)

type service struct {
	orderStore mystore.Store[OrderRecord]
	txnStore   mystore.Store[TransactionRecord]
	nower      mytime.Nower
	uuider     myuuid.UUIDer
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(orderStore mystore.Store[OrderRecord], txnStore mystore.Store[TransactionRecord], nower mytime.Nower, uuider myuuid.UUIDer) *service {
	return &service{
		orderStore: orderStore,
		txnStore:   txnStore,
		nower:      nower,
		uuider:     uuider,
		logger:     mylog.New("order"),
	}
}

func (s *service) CreateOrder(c context.Context, order OrderRecord) (string, error) {
	if order.UserUID == "" {
		return "", myerrors.NewInvalidInputErrorf("missing userUID")
	}
	if order.FinalAmount <= 0 {
		return "", myerrors.NewInvalidInputErrorf("invalid amount %d", order.FinalAmount)
	}

	if order.OrderUID == "" {
		order.OrderUID = s.uuider.Create()
	}
	if order.Status == "" {
		order.Status = OrderStatusDraft
	}
	order.CreatedAt = s.nower.Now()

	err := s.orderStore.Put(c, order.OrderUID, order)
	if err != nil {
		return "", myerrors.NewInternalError(fmt.Errorf("error storing order: %s", err))
	}

	s.logger.Log(c, order.OrderUID, mylog.SeverityInfo, "Created order %s (%s) for user %s", order.OrderUID, order.Status, order.UserUID)

	return order.OrderUID, nil
}

func (s *service) FinalizeOrder(c context.Context, orderUID string, status OrderStatus) error {
	now := s.nower.Now()

	return s.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		order, found, err := s.orderStore.Get(c, orderUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching order with uid %s: %s", orderUID, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
		}
		if order.Status == OrderStatusDeleted {
			return myerrors.NewConflictError(fmt.Errorf("order with uid %s is deleted", orderUID))
		}

		order.Status = status
		order.LastModified = &now

		err = s.orderStore.Put(c, orderUID, order)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		s.logger.Log(c, orderUID, mylog.SeverityInfo, "Finalized order %s -> %s", orderUID, status)

		return nil
	})
}

// DeleteOrder soft-deletes: the record stays behind with status deleted so
// that compensation is idempotent and auditable.
func (s *service) DeleteOrder(c context.Context, orderUID string) error {
	now := s.nower.Now()

	return s.orderStore.RunInTransaction(c, func(c context.Context) error {
		order, found, err := s.orderStore.Get(c, orderUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching order with uid %s: %s", orderUID, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
		}
		if order.Status == OrderStatusDeleted {
			// already done
			return nil
		}

		order.Status = OrderStatusDeleted
		order.LastModified = &now

		err = s.orderStore.Put(c, orderUID, order)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		s.logger.Log(c, orderUID, mylog.SeverityInfo, "Deleted order %s", orderUID)

		return nil
	})
}

func (s *service) GetOrder(c context.Context, orderUID string) (OrderRecord, bool, error) {
	return s.orderStore.Get(c, orderUID)
}

func (s *service) ListOrders(c context.Context, userUID string) ([]OrderRecord, error) {
	return s.orderStore.Query(c, []mystore.Filter{
		{Field: "UserUID", Compare: "=", Value: userUID},
	}, "CreatedAt")
}

func (s *service) AddTransaction(c context.Context, txn TransactionRecord) error {
	if txn.Gateway == "" || txn.AmountInCents <= 0 {
		return myerrors.NewInvalidInputErrorf("incomplete transaction record")
	}

	if txn.TransactionUID == "" {
		txn.TransactionUID = s.uuider.Create()
	}
	txn.CreatedAt = s.nower.Now()

	return s.txnStore.RunInTransaction(c, func(c context.Context) error {
		_, exists, err := s.txnStore.Get(c, txn.TransactionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if exists {
			return myerrors.NewConflictError(fmt.Errorf("transaction %s already recorded", txn.TransactionUID))
		}

		if txn.AttemptUID != "" {
			existing, err := s.txnStore.Query(c, []mystore.Filter{
				{Field: "AttemptUID", Compare: "=", Value: txn.AttemptUID},
			}, "")
			if err != nil {
				return myerrors.NewInternalError(err)
			}
			if len(existing) > 0 {
				return myerrors.NewConflictError(fmt.Errorf("attempt %s already has a transaction", txn.AttemptUID))
			}
		}

		err = s.txnStore.Put(c, txn.TransactionUID, txn)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing transaction: %s", err))
		}

		s.logger.Log(c, txn.TransactionUID, mylog.SeverityInfo, "Recorded %s transaction %s via %s (%d)", txn.Type, txn.TransactionUID, txn.Gateway, txn.AmountInCents)

		return nil
	})
}

func (s *service) ListTransactions(c context.Context, orderUID string) ([]TransactionRecord, error) {
	return s.txnStore.Query(c, []mystore.Filter{
		{Field: "OrderUID", Compare: "=", Value: orderUID},
	}, "CreatedAt")
}
