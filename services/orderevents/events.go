package orderevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/myevents"
)

const (
	TopicName                  = "order"
	sagaStartedName            = TopicName + ".sagaStarted"
	orderConfirmedName         = TopicName + ".confirmed"
	orderCompensatedName       = TopicName + ".compensated"
	reconciliationRequiredName = TopicName + ".reconciliationRequired"
	walletToppedUpName         = TopicName + ".walletToppedUp"
)

type OrderEventService interface {
	Subscribe(c context.Context) error
	OnOrderSagaStarted(c context.Context, topic string, event OrderSagaStarted) error
	OnOrderConfirmed(c context.Context, topic string, event OrderConfirmed) error
	OnOrderCompensated(c context.Context, topic string, event OrderCompensated) error
	OnReconciliationRequired(c context.Context, topic string, event ReconciliationRequired) error
	OnWalletToppedUp(c context.Context, topic string, event WalletToppedUp) error
}

func DispatchEvent(c context.Context, reader io.Reader, service OrderEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case sagaStartedName:
		{
			event := OrderSagaStarted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderSagaStarted(c, envelope.Topic, event)
		}
	case orderConfirmedName:
		{
			event := OrderConfirmed{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderConfirmed(c, envelope.Topic, event)
		}
	case orderCompensatedName:
		{
			event := OrderCompensated{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderCompensated(c, envelope.Topic, event)
		}
	case reconciliationRequiredName:
		{
			event := ReconciliationRequired{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnReconciliationRequired(c, envelope.Topic, event)
		}
	case walletToppedUpName:
		{
			event := WalletToppedUp{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnWalletToppedUp(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("%s", envelope.EventTypeName))
	}
}

type OrderSagaStarted struct {
	RunUID        string
	UserUID       string
	OrderUID      string
	Gateway       string
	AmountInCents int64
	Currency      string
}

func (e OrderSagaStarted) GetEventTypeName() string {
	return sagaStartedName
}

func (e OrderSagaStarted) GetAggregateName() string {
	return e.RunUID
}

type OrderConfirmed struct {
	RunUID           string
	UserUID          string
	OrderUID         string
	Gateway          string
	ExternalTxnUID   string
	AmountInCents    int64
	WalletAmountUsed int64
}

func (e OrderConfirmed) GetEventTypeName() string {
	return orderConfirmedName
}

func (e OrderConfirmed) GetAggregateName() string {
	return e.RunUID
}

type OrderCompensated struct {
	RunUID   string
	UserUID  string
	OrderUID string
	Gateway  string
	Reason   string
}

func (e OrderCompensated) GetEventTypeName() string {
	return orderCompensatedName
}

func (e OrderCompensated) GetAggregateName() string {
	return e.RunUID
}

// ReconciliationRequired marks a run where the external charge may have
// succeeded but the internal outcome is unknown (recording failure or poll
// timeout). These runs need manual follow-up, never auto-compensation.
type ReconciliationRequired struct {
	RunUID   string
	UserUID  string
	OrderUID string
	Gateway  string
	Reason   string
}

func (e ReconciliationRequired) GetEventTypeName() string {
	return reconciliationRequiredName
}

func (e ReconciliationRequired) GetAggregateName() string {
	return e.RunUID
}

type WalletToppedUp struct {
	RunUID         string
	UserUID        string
	Gateway        string
	ExternalTxnUID string
	AmountInCents  int64
}

func (e WalletToppedUp) GetEventTypeName() string {
	return walletToppedUpName
}

func (e WalletToppedUp) GetAggregateName() string {
	return e.RunUID
}
