package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/MinhChien3980/foodease-backend/lib/mypublisher"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
	"github.com/MinhChien3980/foodease-backend/lib/myuuid"
	"github.com/MinhChien3980/foodease-backend/services/orderevents"
)

type fakePubSub struct {
	topics        []string
	subscriptions map[string]string
}

func newFakePubSub() *fakePubSub {
	return &fakePubSub{
		subscriptions: map[string]string{},
	}
}

func (p *fakePubSub) Publish(c context.Context, topic string, data string) error {
	return nil
}

func (p *fakePubSub) CreateTopic(c context.Context, topic string) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *fakePubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	p.subscriptions[topic] = urlToPostTo
	return nil
}

func setup(t *testing.T) (*service, *fakePubSub, func()) {
	c := context.TODO()

	store, clean, err := mystore.NewInMemoryStore[Notification](c)
	assert.NoError(t, err)

	pubsub := newFakePubSub()
	svc := newService(store, pubsub, mytime.RealNower{}, myuuid.RealUUIDer{})

	return svc, pubsub, clean
}

func TestSubscribeRegistersOrderTopic(t *testing.T) {
	c := context.TODO()
	svc, pubsub, clean := setup(t)
	defer clean()

	err := svc.Subscribe(c)
	assert.NoError(t, err)

	assert.Equal(t, []string{orderevents.TopicName}, pubsub.topics)
	assert.Contains(t, pubsub.subscriptions[orderevents.TopicName], "/notifications/event")
}

func TestNotifiesOnOrderConfirmed(t *testing.T) {
	c := context.TODO()
	svc, _, clean := setup(t)
	defer clean()

	err := svc.OnOrderConfirmed(c, orderevents.TopicName, orderevents.OrderConfirmed{
		RunUID:        "run-1",
		UserUID:       "user-1",
		OrderUID:      "order-1",
		Gateway:       "stripe",
		AmountInCents: 500,
	})
	assert.NoError(t, err)

	notifications, err := svc.ListForUser(c, "user-1")
	assert.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, KindOrderConfirmed, notifications[0].Kind)
	assert.Equal(t, "order-1", notifications[0].OrderUID)
	assert.Contains(t, notifications[0].Message, "order-1")
	assert.NotEmpty(t, notifications[0].NotificationUID)
	assert.False(t, notifications[0].CreatedAt.IsZero())
}

func TestNotifiesOnCompensationWithReason(t *testing.T) {
	c := context.TODO()
	svc, _, clean := setup(t)
	defer clean()

	err := svc.OnOrderCompensated(c, orderevents.TopicName, orderevents.OrderCompensated{
		RunUID:   "run-2",
		UserUID:  "user-2",
		OrderUID: "order-2",
		Reason:   "payment was cancelled",
	})
	assert.NoError(t, err)

	notifications, err := svc.ListForUser(c, "user-2")
	assert.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, KindOrderFailed, notifications[0].Kind)
	assert.Contains(t, notifications[0].Message, "payment was cancelled")
}

func TestNotifiesOnReconciliationRequired(t *testing.T) {
	c := context.TODO()
	svc, _, clean := setup(t)
	defer clean()

	err := svc.OnReconciliationRequired(c, orderevents.TopicName, orderevents.ReconciliationRequired{
		RunUID:   "run-3",
		UserUID:  "user-3",
		OrderUID: "order-3",
		Reason:   "error storing transaction",
	})
	assert.NoError(t, err)

	notifications, err := svc.ListForUser(c, "user-3")
	assert.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, KindReconciliationRequired, notifications[0].Kind)
}

func TestSagaStartedIsSilent(t *testing.T) {
	c := context.TODO()
	svc, _, clean := setup(t)
	defer clean()

	err := svc.OnOrderSagaStarted(c, orderevents.TopicName, orderevents.OrderSagaStarted{
		RunUID:  "run-4",
		UserUID: "user-4",
	})
	assert.NoError(t, err)

	notifications, err := svc.ListForUser(c, "user-4")
	assert.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestListOnlyReturnsOwnNotifications(t *testing.T) {
	c := context.TODO()
	svc, _, clean := setup(t)
	defer clean()

	err := svc.OnWalletToppedUp(c, orderevents.TopicName, orderevents.WalletToppedUp{
		RunUID:        "run-5",
		UserUID:       "user-5",
		AmountInCents: 2000,
	})
	assert.NoError(t, err)
	err = svc.OnWalletToppedUp(c, orderevents.TopicName, orderevents.WalletToppedUp{
		RunUID:        "run-6",
		UserUID:       "user-6",
		AmountInCents: 1000,
	})
	assert.NoError(t, err)

	notifications, err := svc.ListForUser(c, "user-5")
	assert.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, KindWalletToppedUp, notifications[0].Kind)
	assert.Contains(t, notifications[0].Message, "2000")
}

func TestEventPushedOverHTTP(t *testing.T) {
	c := context.TODO()

	store, clean, err := mystore.NewInMemoryStore[Notification](c)
	assert.NoError(t, err)
	defer clean()

	webSvc := NewWebService(store, newFakePubSub(), mytime.RealNower{}, myuuid.RealUUIDer{})
	router := mux.NewRouter()
	err = webSvc.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	body := mypublisher.CreatePubsubMessage(orderevents.TopicName, orderevents.OrderConfirmed{
		RunUID:   "run-7",
		UserUID:  "user-7",
		OrderUID: "order-7",
	})
	req := httptest.NewRequest(http.MethodPost, "/notifications/event", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/notifications/user-7", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	notifications := []Notification{}
	err = json.Unmarshal(rec.Body.Bytes(), &notifications)
	assert.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, "order-7", notifications[0].OrderUID)
}

func TestMalformedEventRejected(t *testing.T) {
	c := context.TODO()

	store, clean, err := mystore.NewInMemoryStore[Notification](c)
	assert.NoError(t, err)
	defer clean()

	webSvc := NewWebService(store, newFakePubSub(), mytime.RealNower{}, myuuid.RealUUIDer{})
	router := mux.NewRouter()
	err = webSvc.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/notifications/event", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
