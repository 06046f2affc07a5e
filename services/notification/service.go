package notification

import (
	"context"
	"fmt"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/myhttp"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/mypubsub"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
	"github.com/MinhChien3980/foodease-backend/lib/myuuid"
	"github.com/MinhChien3980/foodease-backend/services/orderevents"
)

type service struct {
	store      mystore.Store[Notification]
	subscriber mypubsub.PubSub
	nower      mytime.Nower
	uuider     myuuid.UUIDer
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[Notification], subscriber mypubsub.PubSub, nower mytime.Nower, uuider myuuid.UUIDer) *service {
	return &service{
		store:      store,
		subscriber: subscriber,
		nower:      nower,
		uuider:     uuider,
		logger:     mylog.New("notification"),
	}
}

func (s *service) Subscribe(c context.Context) error {
	err := s.subscriber.CreateTopic(c, orderevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", orderevents.TopicName, err)
	}

	err = s.subscriber.Subscribe(c, orderevents.TopicName, myhttp.GuessHostnameWithScheme()+"/notifications/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", orderevents.TopicName, err)
	}

	return nil
}

func (s *service) OnOrderSagaStarted(c context.Context, topic string, event orderevents.OrderSagaStarted) error {
	// nothing to tell the user yet
	return nil
}

func (s *service) OnOrderConfirmed(c context.Context, topic string, event orderevents.OrderConfirmed) error {
	return s.add(c, Notification{
		UserUID:  event.UserUID,
		RunUID:   event.RunUID,
		OrderUID: event.OrderUID,
		Kind:     KindOrderConfirmed,
		Message:  fmt.Sprintf("Your order %s is confirmed", event.OrderUID),
	})
}

func (s *service) OnOrderCompensated(c context.Context, topic string, event orderevents.OrderCompensated) error {
	message := "Your payment did not complete, the order was not placed"
	if event.Reason != "" {
		message = fmt.Sprintf("%s: %s", message, event.Reason)
	}

	return s.add(c, Notification{
		UserUID:  event.UserUID,
		RunUID:   event.RunUID,
		OrderUID: event.OrderUID,
		Kind:     KindOrderFailed,
		Message:  message,
	})
}

func (s *service) OnReconciliationRequired(c context.Context, topic string, event orderevents.ReconciliationRequired) error {
	s.logger.Log(c, event.RunUID, mylog.SeverityWarn, "Run %s flagged for reconciliation: %s", event.RunUID, event.Reason)

	return s.add(c, Notification{
		UserUID:  event.UserUID,
		RunUID:   event.RunUID,
		OrderUID: event.OrderUID,
		Kind:     KindReconciliationRequired,
		Message:  "We are verifying your payment, you will hear from us shortly",
	})
}

func (s *service) OnWalletToppedUp(c context.Context, topic string, event orderevents.WalletToppedUp) error {
	return s.add(c, Notification{
		UserUID: event.UserUID,
		RunUID:  event.RunUID,
		Kind:    KindWalletToppedUp,
		Message: fmt.Sprintf("Your wallet was topped up with %d cents", event.AmountInCents),
	})
}

func (s *service) add(c context.Context, notification Notification) error {
	notification.NotificationUID = s.uuider.Create()
	notification.CreatedAt = s.nower.Now()

	err := s.store.Put(c, notification.NotificationUID, notification)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing notification: %s", err))
	}

	s.logger.Log(c, notification.RunUID, mylog.SeverityInfo, "Notified user %s: %s", notification.UserUID, notification.Message)

	return nil
}

func (s *service) ListForUser(c context.Context, userUID string) ([]Notification, error) {
	return s.store.Query(c, []mystore.Filter{
		{Field: "UserUID", Compare: "=", Value: userUID},
	}, "CreatedAt")
}
