package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/plutov/paypal/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74"
)

type fakeVault struct {
	credentials map[string]Credentials
}

func (v *fakeVault) Get(c context.Context, uid string) (Credentials, bool, error) {
	credentials, found := v.credentials[uid]
	return credentials, found, nil
}

func vaultWith(name Name, credentials Credentials) *fakeVault {
	return &fakeVault{
		credentials: map[string]Credentials{
			CredentialsUID(name): credentials,
		},
	}
}

func TestCODAdapter(t *testing.T) {
	adapter := NewCODAdapter()

	assert.Equal(t, NameCOD, adapter.Name())
	assert.False(t, adapter.RecordsTransaction())

	initiation := adapter.Initiate(context.TODO(), Request{RunUID: "run-1", AmountInCents: 2500})
	assert.Equal(t, KindImmediate, initiation.Kind)
	assert.Equal(t, OutcomeSucceeded, initiation.Outcome.Status)

	initiation = adapter.Initiate(context.TODO(), Request{RunUID: "run-2", AmountInCents: 0})
	assert.Equal(t, OutcomeFailed, initiation.Outcome.Status)
}

type fakeBalanceReader struct {
	balance int64
	err     error
}

func (r *fakeBalanceReader) GetBalance(c context.Context, userUID string) (int64, error) {
	return r.balance, r.err
}

func TestWalletAdapter(t *testing.T) {
	t.Run("sufficient balance", func(t *testing.T) {
		adapter := NewWalletAdapter(&fakeBalanceReader{balance: 5000})

		initiation := adapter.Initiate(context.TODO(), Request{RunUID: "run-1", UserUID: "user-1", AmountInCents: 2500})

		assert.Equal(t, KindImmediate, initiation.Kind)
		assert.Equal(t, OutcomeSucceeded, initiation.Outcome.Status)
		assert.Equal(t, "wallet_run-1", initiation.Outcome.ExternalTxnUID)
		assert.True(t, adapter.RecordsTransaction())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		adapter := NewWalletAdapter(&fakeBalanceReader{balance: 1000})

		initiation := adapter.Initiate(context.TODO(), Request{RunUID: "run-1", UserUID: "user-1", AmountInCents: 2500})

		assert.Equal(t, OutcomeFailed, initiation.Outcome.Status)
		assert.Contains(t, initiation.Outcome.Reason, "insufficient wallet balance")
	})

	t.Run("balance lookup error", func(t *testing.T) {
		adapter := NewWalletAdapter(&fakeBalanceReader{err: fmt.Errorf("store down")})

		initiation := adapter.Initiate(context.TODO(), Request{RunUID: "run-1", UserUID: "user-1", AmountInCents: 2500})

		assert.Equal(t, OutcomeFailed, initiation.Outcome.Status)
	})
}

type fakeStripePayer struct {
	intent *stripe.PaymentIntent
	err    error
	params *stripe.PaymentIntentParams
}

func (p *fakeStripePayer) UseAPIKey(apiKey string) {}

func (p *fakeStripePayer) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	p.params = params
	return p.intent, p.err
}

func TestStripeAdapter(t *testing.T) {
	payer := &fakeStripePayer{
		intent: &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"},
	}
	adapter := NewStripeAdapter(payer, vaultWith(NameStripe, Credentials{APIKey: "sk_test"}))

	initiation := adapter.Initiate(context.TODO(), Request{
		RunUID:        "run-1",
		OrderUID:      "order-1",
		AmountInCents: 12500,
		Currency:      "eur",
		ShopperEmail:  "shopper@example.org",
	})

	assert.Equal(t, KindClientAction, initiation.Kind)
	assert.Equal(t, "pi_123", initiation.Action.SessionUID)
	assert.Equal(t, "pi_123_secret", initiation.Action.SessionData["clientSecret"])
	assert.Equal(t, int64(12500), *payer.params.Amount)
	assert.Equal(t, "run-1", payer.params.Metadata["runUID"])
}

func TestStripeAdapterMissingCredentials(t *testing.T) {
	adapter := NewStripeAdapter(&fakeStripePayer{}, &fakeVault{credentials: map[string]Credentials{}})

	initiation := adapter.Initiate(context.TODO(), Request{RunUID: "run-1", AmountInCents: 100})

	assert.Equal(t, OutcomeFailed, initiation.Outcome.Status)
	assert.Contains(t, initiation.Outcome.Reason, "missing stripe credentials")
}

func TestStripeClassifyWebhook(t *testing.T) {
	adapter := NewStripeAdapter(&fakeStripePayer{}, vaultWith(NameStripe, Credentials{}))

	testCases := []struct {
		eventType string
		expected  OutcomeStatus
	}{
		{"payment_intent.succeeded", OutcomeSucceeded},
		{"payment_intent.payment_failed", OutcomeFailed},
		{"payment_intent.canceled", OutcomeCancelled},
		{"payment_intent.created", OutcomePending},
	}
	for _, tc := range testCases {
		t.Run(tc.eventType, func(t *testing.T) {
			body := stripeEventBody(t, tc.eventType, "run-42")

			runUID, outcome, err := adapter.ClassifyWebhook(context.TODO(), body)

			assert.NoError(t, err)
			assert.Equal(t, "run-42", runUID)
			assert.Equal(t, tc.expected, outcome.Status)
		})
	}

	t.Run("missing runUID", func(t *testing.T) {
		body := stripeEventBody(t, "payment_intent.succeeded", "")

		_, _, err := adapter.ClassifyWebhook(context.TODO(), body)

		assert.Error(t, err)
	})
}

func stripeEventBody(t *testing.T, eventType string, runUID string) []byte {
	metadata := map[string]string{}
	if runUID != "" {
		metadata["runUID"] = runUID
	}
	intent, err := json.Marshal(map[string]interface{}{
		"id":       "pi_123",
		"metadata": metadata,
	})
	assert.NoError(t, err)

	body, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": map[string]interface{}{
			"object": json.RawMessage(intent),
		},
	})
	assert.NoError(t, err)

	return body
}

type fakeRazorPayer struct {
	response map[string]interface{}
	err      error
	data     map[string]interface{}
}

func (p *fakeRazorPayer) UseCredentials(key string, secret string) {}

func (p *fakeRazorPayer) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	p.data = data
	return p.response, p.err
}

func TestRazorPayAdapter(t *testing.T) {
	payer := &fakeRazorPayer{
		response: map[string]interface{}{"id": "order_rzp_1"},
	}
	adapter := NewRazorPayAdapter(payer, vaultWith(NameRazorPay, Credentials{APIKey: "rzp_key", APISecret: "rzp_secret"}))

	initiation := adapter.Initiate(context.TODO(), Request{
		RunUID:        "run-1",
		OrderUID:      "order-1",
		AmountInCents: 50000,
		Currency:      "INR",
	})

	assert.Equal(t, KindClientAction, initiation.Kind)
	assert.Equal(t, "order_rzp_1", initiation.Action.SessionUID)
	assert.Equal(t, "rzp_key", initiation.Action.SessionData["keyId"])
	assert.Equal(t, "50000", initiation.Action.SessionData["amount"])
	assert.Equal(t, int64(50000), payer.data["amount"])
	assert.Equal(t, "order-1", payer.data["receipt"])
}

type fakePayPalPayer struct {
	order *paypal.Order
	err   error
	units []paypal.PurchaseUnitRequest
}

func (p *fakePayPalPayer) UseCredentials(c context.Context, clientID string, secret string) error {
	return nil
}

func (p *fakePayPalPayer) CreateOrder(c context.Context, units []paypal.PurchaseUnitRequest) (*paypal.Order, error) {
	p.units = units
	return p.order, p.err
}

func TestPayPalAdapter(t *testing.T) {
	payer := &fakePayPalPayer{
		order: &paypal.Order{ID: "pp_order_1"},
	}
	adapter := NewPayPalAdapter(payer, vaultWith(NamePayPal, Credentials{APIKey: "client", APISecret: "secret"}))

	initiation := adapter.Initiate(context.TODO(), Request{
		RunUID:        "run-1",
		AmountInCents: 12345,
		Currency:      "USD",
	})

	assert.Equal(t, KindClientAction, initiation.Kind)
	assert.Equal(t, "pp_order_1", initiation.Action.SessionData["paypalOrderId"])
	assert.Equal(t, "123.45", initiation.Action.SessionData["value"])
	assert.Equal(t, "123.45", payer.units[0].Amount.Value)
}

func TestMinorToMajor(t *testing.T) {
	assert.Equal(t, "0.05", minorToMajor(5))
	assert.Equal(t, "1.00", minorToMajor(100))
	assert.Equal(t, "123.45", minorToMajor(12345))
}

type fakeHTTPSender struct {
	status  int
	body    []byte
	err     error
	method  string
	url     string
	headers map[string]string
	sent    []byte
}

func (s *fakeHTTPSender) Send(ctx context.Context, method string, url string, headers map[string]string, body []byte) (int, []byte, error) {
	s.method = method
	s.url = url
	s.headers = headers
	s.sent = body
	return s.status, s.body, s.err
}

func TestPayStackAdapter(t *testing.T) {
	sender := &fakeHTTPSender{
		status: http.StatusOK,
		body: []byte(`{"status":true,"message":"ok","data":{
			"authorization_url":"https://checkout.paystack.com/abc",
			"access_code":"abc","reference":"run-1"}}`),
	}
	adapter := NewPayStackAdapter(sender, vaultWith(NamePayStack, Credentials{APISecret: "sk_paystack"}))

	initiation := adapter.Initiate(context.TODO(), Request{
		RunUID:        "run-1",
		AmountInCents: 500000,
		Currency:      "NGN",
		ShopperEmail:  "shopper@example.org",
		ReturnURL:     "https://example.org/return",
	})

	assert.Equal(t, KindClientAction, initiation.Kind)
	assert.Equal(t, "abc", initiation.Action.SessionData["accessCode"])
	assert.Equal(t, "https://checkout.paystack.com/abc", initiation.Action.SessionData["authorizationUrl"])
	assert.Equal(t, "Bearer sk_paystack", sender.headers["Authorization"])
	assert.Contains(t, sender.url, "/transaction/initialize")

	sent := payStackInitializeRequest{}
	assert.NoError(t, json.Unmarshal(sender.sent, &sent))
	assert.Equal(t, int64(500000), sent.Amount)
	assert.Equal(t, "run-1", sent.Reference)
}

func TestPayStackAdapterRejection(t *testing.T) {
	sender := &fakeHTTPSender{
		status: http.StatusOK,
		body:   []byte(`{"status":false,"message":"Invalid key"}`),
	}
	adapter := NewPayStackAdapter(sender, vaultWith(NamePayStack, Credentials{APISecret: "sk_bad"}))

	initiation := adapter.Initiate(context.TODO(), Request{RunUID: "run-1", AmountInCents: 100})

	assert.Equal(t, OutcomeFailed, initiation.Outcome.Status)
	assert.Contains(t, initiation.Outcome.Reason, "Invalid key")
}

func TestFlutterWaveAdapter(t *testing.T) {
	sender := &fakeHTTPSender{
		status: http.StatusOK,
		body:   []byte(`{"status":"success","message":"ok","data":{"link":"https://checkout.flutterwave.com/xyz"}}`),
	}
	adapter := NewFlutterWaveAdapter(sender, vaultWith(NameFlutterWave, Credentials{APISecret: "flw_secret"}))

	initiation := adapter.Initiate(context.TODO(), Request{
		RunUID:        "run-1",
		OrderUID:      "order-1",
		AmountInCents: 250000,
	})

	assert.Equal(t, KindClientAction, initiation.Kind)
	assert.Equal(t, "https://checkout.flutterwave.com/xyz", initiation.Action.SessionData["link"])

	sent := flutterWavePaymentRequest{}
	assert.NoError(t, json.Unmarshal(sender.sent, &sent))
	assert.Equal(t, "run-1", sent.TxRef)
	assert.Equal(t, "2500.00", sent.Amount)
	assert.Equal(t, "NGN", sent.Currency)
}

func TestPhonePeAdapter(t *testing.T) {
	sender := &fakeHTTPSender{
		status: http.StatusOK,
		body:   []byte(`{"url":"https://phonepe.example.org/pay/xyz"}`),
	}
	adapter := NewPhonePeAdapter(sender, vaultWith(NamePhonePe, Credentials{APISecret: "verify", Extra: "MERCHANT1"}))

	initiation := adapter.Initiate(context.TODO(), Request{
		RunUID:        "run-1",
		OrderUID:      "order-1",
		AmountInCents: 9900,
		ReturnURL:     "https://example.org/return",
		ShopperMobile: "9999999999",
	})

	assert.Equal(t, KindRedirect, initiation.Kind)
	assert.True(t, initiation.Poll)
	assert.Equal(t, "https://phonepe.example.org/pay/xyz", initiation.RedirectURL)

	sent := phonePeCreateRequest{}
	assert.NoError(t, json.Unmarshal(sender.sent, &sent))
	assert.Equal(t, "order-1", sent.OrderID)
	assert.Equal(t, "phonepe", sent.Type)
	assert.Equal(t, "9999999999", sent.Mobile)
}

func TestPhonePeFetchStatus(t *testing.T) {
	sender := &fakeHTTPSender{
		status: http.StatusOK,
		body:   []byte(`{"success":true,"code":"PAYMENT_SUCCESS","data":{"transactionId":"txn-1","state":"COMPLETED"}}`),
	}
	adapter := NewPhonePeAdapter(sender, vaultWith(NamePhonePe, Credentials{APISecret: "verify", Extra: "MERCHANT1"}))

	outcome, err := adapter.FetchStatus(context.TODO(), Request{RunUID: "run-1", OrderUID: "order-1"})

	assert.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome.Status)
	assert.Equal(t, "txn-1", outcome.ExternalTxnUID)
	assert.Contains(t, sender.url, "/pg/v1/status/MERCHANT1/order-1")
}

func TestClassifyPhonePeState(t *testing.T) {
	assert.Equal(t, OutcomeSucceeded, classifyPhonePeState("COMPLETED", "t").Status)
	assert.Equal(t, OutcomeFailed, classifyPhonePeState("FAILED", "t").Status)
	assert.Equal(t, OutcomeExpired, classifyPhonePeState("EXPIRED", "t").Status)
	assert.Equal(t, OutcomePending, classifyPhonePeState("PENDING", "t").Status)
}

type fakeMidtransPayer struct {
	redirectURL string
	token       string
	status      string
	txnID       string
	err         error
}

func (p *fakeMidtransPayer) UseServerKey(serverKey string) {}

func (p *fakeMidtransPayer) CreateTransaction(orderUID string, grossAmountInCents int64) (string, string, error) {
	return p.redirectURL, p.token, p.err
}

func (p *fakeMidtransPayer) GetTransactionStatus(orderUID string) (string, string, error) {
	return p.status, p.txnID, p.err
}

func TestMidtransAdapter(t *testing.T) {
	payer := &fakeMidtransPayer{redirectURL: "https://app.midtrans.com/snap/v2/abc", token: "tok-1"}
	adapter := NewMidtransAdapter(payer, vaultWith(NameMidtrans, Credentials{APIKey: "server-key"}))

	initiation := adapter.Initiate(context.TODO(), Request{RunUID: "run-1", OrderUID: "order-1", AmountInCents: 150000})

	assert.Equal(t, KindRedirect, initiation.Kind)
	assert.True(t, initiation.Poll)
	assert.Equal(t, "https://app.midtrans.com/snap/v2/abc", initiation.RedirectURL)
	assert.Equal(t, "order-1", initiation.ExternalRef)
}

func TestMidtransAdapterRejectsSubUnitAmount(t *testing.T) {
	payer := &fakeMidtransPayer{redirectURL: "https://app.midtrans.com/snap/v2/abc", token: "tok-1"}
	adapter := NewMidtransAdapter(payer, vaultWith(NameMidtrans, Credentials{APIKey: "server-key"}))

	initiation := adapter.Initiate(context.TODO(), Request{RunUID: "run-1", OrderUID: "order-1", AmountInCents: 2550})

	assert.Equal(t, KindImmediate, initiation.Kind)
	assert.Equal(t, OutcomeFailed, initiation.Outcome.Status)
	assert.Contains(t, initiation.Outcome.Reason, "whole-unit")
}

func TestClassifyMidtransStatus(t *testing.T) {
	testCases := []struct {
		transactionStatus string
		expected          OutcomeStatus
	}{
		{"settlement", OutcomeSucceeded},
		{"capture", OutcomeSucceeded},
		{"pending", OutcomePending},
		{"deny", OutcomeFailed},
		{"cancel", OutcomeCancelled},
		{"expire", OutcomeExpired},
		{"unknown", OutcomePending},
	}
	for _, tc := range testCases {
		t.Run(tc.transactionStatus, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifyMidtransStatus(tc.transactionStatus, "txn-1").Status)
		})
	}
}

func TestAdyenClassifyWebhook(t *testing.T) {
	adapter := NewAdyenAdapter(nil, vaultWith(NameAdyen, Credentials{}))

	body := []byte(`{"live":"false","notificationItems":[{"NotificationRequestItem":{
		"eventCode":"AUTHORISATION","merchantReference":"run-7","pspReference":"psp-1","success":"true"}}]}`)

	runUID, outcome, err := adapter.ClassifyWebhook(context.TODO(), body)

	assert.NoError(t, err)
	assert.Equal(t, "run-7", runUID)
	assert.Equal(t, OutcomeSucceeded, outcome.Status)
	assert.Equal(t, "psp-1", outcome.ExternalTxnUID)
}

func TestClassifyAdyenEvent(t *testing.T) {
	assert.Equal(t, OutcomeFailed,
		classifyAdyenEvent(adyenNotificationRequestItem{EventCode: "AUTHORISATION", Success: "false"}).Status)
	assert.Equal(t, OutcomeCancelled,
		classifyAdyenEvent(adyenNotificationRequestItem{EventCode: "CANCELLATION"}).Status)
	assert.Equal(t, OutcomeExpired,
		classifyAdyenEvent(adyenNotificationRequestItem{EventCode: "OFFER_CLOSED"}).Status)
	assert.Equal(t, OutcomePending,
		classifyAdyenEvent(adyenNotificationRequestItem{EventCode: "REPORT_AVAILABLE"}).Status)
}

func TestClassifyMollieStatus(t *testing.T) {
	assert.Equal(t, OutcomeSucceeded, classifyMollieStatus("paid", "tr_1").Status)
	assert.Equal(t, OutcomeCancelled, classifyMollieStatus("canceled", "tr_1").Status)
	assert.Equal(t, OutcomeFailed, classifyMollieStatus("failed", "tr_1").Status)
	assert.Equal(t, OutcomeExpired, classifyMollieStatus("expired", "tr_1").Status)
	assert.Equal(t, OutcomePending, classifyMollieStatus("open", "tr_1").Status)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewCODAdapter())
	registry.Register(NewMidtransAdapter(&fakeMidtransPayer{}, vaultWith(NameMidtrans, Credentials{})))

	adapter, err := registry.Get(NameCOD)
	assert.NoError(t, err)
	assert.Equal(t, NameCOD, adapter.Name())

	_, err = registry.Get(NameStripe)
	assert.Error(t, err)

	_, err = registry.GetStatusFetcher(NameMidtrans)
	assert.NoError(t, err)

	_, err = registry.GetStatusFetcher(NameCOD)
	assert.Error(t, err)

	_, err = registry.GetWebhookClassifier(NameCOD)
	assert.Error(t, err)
}

func TestOutcomeTerminality(t *testing.T) {
	assert.False(t, OutcomePending.IsTerminal())
	assert.False(t, OutcomeStatus("").IsTerminal())
	assert.True(t, OutcomeSucceeded.IsTerminal())
	assert.True(t, OutcomeFailed.IsTerminal())
	assert.True(t, OutcomeTimedOut.IsTerminal())
}
