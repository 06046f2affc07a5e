package wallet

import (
	"context"
	"fmt"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
	"github.com/MinhChien3980/foodease-backend/lib/myuuid"
)

// Ledger is the seam the saga coordinator uses. Wallet funds are only ever
// committed together with a successful run, never tentatively deducted.
type Ledger interface {
	ApplyAdjustment(c context.Context, userUID string, delta int64, reason string) error
	GetBalance(c context.Context, userUID string) (int64, error)
}

type service struct {
	balanceStore    mystore.Store[Balance]
	adjustmentStore mystore.Store[Adjustment]
	nower           mytime.Nower
	uuider          myuuid.UUIDer
	logger          mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(balanceStore mystore.Store[Balance], adjustmentStore mystore.Store[Adjustment], nower mytime.Nower, uuider myuuid.UUIDer) *service {
	return &service{
		balanceStore:    balanceStore,
		adjustmentStore: adjustmentStore,
		nower:           nower,
		uuider:          uuider,
		logger:          mylog.New("wallet"),
	}
}

func (s *service) ApplyAdjustment(c context.Context, userUID string, delta int64, reason string) error {
	if userUID == "" {
		return myerrors.NewInvalidInputErrorf("missing userUID")
	}
	if delta == 0 {
		return myerrors.NewInvalidInputErrorf("zero adjustment")
	}

	now := s.nower.Now()

	return s.balanceStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		balance, found, err := s.balanceStore.Get(c, userUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching balance of user %s: %s", userUID, err))
		}
		if !found {
			balance = Balance{UserUID: userUID}
		}

		if balance.AmountInCents+delta < 0 {
			return myerrors.NewInvalidInputErrorf("insufficient wallet balance for user %s: have %d, need %d", userUID, balance.AmountInCents, -delta)
		}

		balance.AmountInCents += delta
		balance.LastModified = &now

		err = s.balanceStore.Put(c, userUID, balance)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		adjustmentUID := s.uuider.Create()
		err = s.adjustmentStore.Put(c, adjustmentUID, Adjustment{
			AdjustmentUID: adjustmentUID,
			UserUID:       userUID,
			Delta:         delta,
			Reason:        reason,
			CreatedAt:     now,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		s.logger.Log(c, userUID, mylog.SeverityInfo, "Adjusted wallet of user %s by %d (%s) -> %d", userUID, delta, reason, balance.AmountInCents)

		return nil
	})
}

func (s *service) GetBalance(c context.Context, userUID string) (int64, error) {
	balance, found, err := s.balanceStore.Get(c, userUID)
	if err != nil {
		return 0, myerrors.NewInternalError(err)
	}
	if !found {
		return 0, nil
	}
	return balance.AmountInCents, nil
}

func (s *service) ListAdjustments(c context.Context, userUID string) ([]Adjustment, error) {
	return s.adjustmentStore.Query(c, []mystore.Filter{
		{Field: "UserUID", Compare: "=", Value: userUID},
	}, "CreatedAt")
}
