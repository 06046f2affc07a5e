package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/myvault"
)

type StripePayer interface {
	UseAPIKey(apiKey string)
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripePayer struct{}

func NewStripePayer() StripePayer {
	return &stripePayer{}
}

func (p *stripePayer) UseAPIKey(apiKey string) {
	stripe.Key = apiKey
}

func (p *stripePayer) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error creating payment-intent: %s", err))
	}

	return intent, nil
}

// stripeAdapter creates a PaymentIntent; the card is confirmed client-side
// and the confirmation callback is the outcome signal.
type stripeAdapter struct {
	payer  StripePayer
	vault  myvault.VaultReader[Credentials]
	logger mylog.Logger
}

func NewStripeAdapter(payer StripePayer, vault myvault.VaultReader[Credentials]) *stripeAdapter {
	return &stripeAdapter{
		payer:  payer,
		vault:  vault,
		logger: mylog.New("stripe"),
	}
}

func (a *stripeAdapter) Name() Name {
	return NameStripe
}

func (a *stripeAdapter) RecordsTransaction() bool {
	return true
}

func (a *stripeAdapter) Initiate(c context.Context, req Request) Initiation {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NameStripe))
	if err != nil || !found {
		return FailedInitiation("missing stripe credentials")
	}
	a.payer.UseAPIKey(credentials.APIKey)

	intent, err := a.payer.CreatePaymentIntent(c, &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountInCents),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		ReceiptEmail: stripe.String(req.ShopperEmail),
		Params: stripe.Params{
			Metadata: map[string]string{
				"runUID":       req.RunUID,
				"orderId":      req.OrderUID,
				"type":         "stripe",
				"walletAmount": strconv.FormatInt(req.WalletAmountUsed, 10),
			},
		},
	})
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error creating payment-intent: %s", err))
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Created stripe payment-intent %s for run %s", intent.ID, req.RunUID)

	return Initiation{
		Kind: KindClientAction,
		Action: &ClientAction{
			Gateway:    NameStripe,
			SessionUID: intent.ID,
			SessionData: map[string]string{
				"clientSecret": intent.ClientSecret,
			},
		},
		ExternalRef: intent.ID,
	}
}

// ClassifyWebhook reduces a stripe event to the run it belongs to plus a
// normalized outcome.
func (a *stripeAdapter) ClassifyWebhook(c context.Context, body []byte) (string, Outcome, error) {
	event := stripe.Event{}
	err := json.Unmarshal(body, &event)
	if err != nil {
		return "", Outcome{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing stripe event: %s", err))
	}

	intent := stripe.PaymentIntent{}
	err = json.Unmarshal(event.Data.Raw, &intent)
	if err != nil {
		return "", Outcome{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing stripe payment-intent: %s", err))
	}

	runUID := intent.Metadata["runUID"]
	if runUID == "" {
		return "", Outcome{}, myerrors.NewInvalidInputErrorf("stripe event without runUID metadata")
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return runUID, Succeeded(intent.ID), nil
	case "payment_intent.payment_failed":
		return runUID, Failed("payment_intent.payment_failed"), nil
	case "payment_intent.canceled":
		return runUID, Cancelled("payment_intent.canceled"), nil
	default:
		return runUID, Outcome{Status: OutcomePending}, nil
	}
}
