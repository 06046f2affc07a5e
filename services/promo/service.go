package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
)

// Redemption ties a promo code to a saga run. Compensation releases it so the
// shopper can use the code again.
type Redemption struct {
	RedemptionUID string // promoCode + runUID
	PromoCode     string
	RunUID        string
	UserUID       string
	Discount      int64
	Released      bool
	CreatedAt     time.Time
}

type Registry interface {
	Redeem(c context.Context, promoCode string, runUID string, userUID string, discount int64) error
	Release(c context.Context, promoCode string, runUID string) error
}

type service struct {
	store  mystore.Store[Redemption]
	nower  mytime.Nower
	logger mylog.Logger
}

func NewService(store mystore.Store[Redemption], nower mytime.Nower) *service {
	return &service{
		store:  store,
		nower:  nower,
		logger: mylog.New("promo"),
	}
}

func redemptionUID(promoCode, runUID string) string {
	return promoCode + "_" + runUID
}

func (s *service) Redeem(c context.Context, promoCode string, runUID string, userUID string, discount int64) error {
	if promoCode == "" || runUID == "" {
		return myerrors.NewInvalidInputErrorf("missing promoCode or runUID")
	}

	err := s.store.Put(c, redemptionUID(promoCode, runUID), Redemption{
		RedemptionUID: redemptionUID(promoCode, runUID),
		PromoCode:     promoCode,
		RunUID:        runUID,
		UserUID:       userUID,
		Discount:      discount,
		CreatedAt:     s.nower.Now(),
	})
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing redemption: %s", err))
	}

	s.logger.Log(c, runUID, mylog.SeverityInfo, "Redeemed promo %s for run %s", promoCode, runUID)

	return nil
}

// Release is idempotent: releasing an unknown or already-released redemption
// is a no-op.
func (s *service) Release(c context.Context, promoCode string, runUID string) error {
	return s.store.RunInTransaction(c, func(c context.Context) error {
		redemption, found, err := s.store.Get(c, redemptionUID(promoCode, runUID))
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found || redemption.Released {
			return nil
		}

		redemption.Released = true
		err = s.store.Put(c, redemption.RedemptionUID, redemption)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		s.logger.Log(c, runUID, mylog.SeverityInfo, "Released promo %s for run %s", promoCode, runUID)

		return nil
	})
}

func (s *service) Get(c context.Context, promoCode string, runUID string) (Redemption, bool, error) {
	return s.store.Get(c, redemptionUID(promoCode, runUID))
}
