package paymentgateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/myvault"
)

type MolliePayer interface {
	UseAPIKey(apiKey string)
	CreatePayment(ctx context.Context, request mollie.Payment) (mollie.Payment, error)
	GetPaymentOnID(ctx context.Context, paymentID string) (mollie.Payment, error)
}

type molliePayer struct {
	client *mollie.Client
}

func NewMolliePayer() (MolliePayer, error) {
	config := mollie.NewAPITestingConfig(true)

	client, err := mollie.NewClient(nil, config)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error creating mollie client: %s", err))
	}

	return &molliePayer{
		client: client,
	}, nil
}

func (p *molliePayer) UseAPIKey(apiKey string) {
	p.client.WithAuthenticationValue(apiKey)
}

func (p *molliePayer) CreatePayment(ctx context.Context, request mollie.Payment) (mollie.Payment, error) {
	_, payment, err := p.client.Payments.Create(ctx, request, nil)
	if err != nil {
		return mollie.Payment{}, myerrors.NewInvalidInputError(fmt.Errorf("error creating mollie payment: %s", err))
	}

	return *payment, nil
}

func (p *molliePayer) GetPaymentOnID(ctx context.Context, id string) (mollie.Payment, error) {
	_, payment, err := p.client.Payments.Get(ctx, id, &mollie.PaymentOptions{})
	if err != nil {
		return mollie.Payment{}, myerrors.NewInvalidInputError(fmt.Errorf("error getting mollie payment: %s", err))
	}

	return *payment, nil
}

// mollieAdapter sends the shopper to a hosted payment page; the webhook only
// carries a payment id, the definitive status is fetched afterwards.
type mollieAdapter struct {
	payer  MolliePayer
	vault  myvault.VaultReader[Credentials]
	logger mylog.Logger
}

func NewMollieAdapter(payer MolliePayer, vault myvault.VaultReader[Credentials]) *mollieAdapter {
	return &mollieAdapter{
		payer:  payer,
		vault:  vault,
		logger: mylog.New("mollie"),
	}
}

func (a *mollieAdapter) Name() Name {
	return NameMollie
}

func (a *mollieAdapter) RecordsTransaction() bool {
	return true
}

func (a *mollieAdapter) Initiate(c context.Context, req Request) Initiation {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NameMollie))
	if err != nil || !found {
		return FailedInitiation("missing mollie credentials")
	}
	a.payer.UseAPIKey(credentials.APIKey)

	payment, err := a.payer.CreatePayment(c, mollie.Payment{
		Description: req.Description,
		Amount: &mollie.Amount{
			Currency: req.Currency,
			Value:    fmt.Sprintf("%.2f", float32(req.AmountInCents)/100.0),
		},
		RedirectURL: req.ReturnURL,
		Metadata: map[string]string{
			"runUID":  req.RunUID,
			"orderId": req.OrderUID,
		},
	})
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error creating mollie payment: %s", err))
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Created mollie payment %s for run %s", payment.ID, req.RunUID)

	redirectURL := ""
	if payment.Links.Checkout != nil {
		redirectURL = payment.Links.Checkout.Href
	}

	return Initiation{
		Kind:        KindRedirect,
		RedirectURL: redirectURL,
		ExternalRef: payment.ID,
	}
}

// ClassifyWebhook handles the form-encoded webhook body: it only carries the
// payment id, the status comes from fetching the payment.
func (a *mollieAdapter) ClassifyWebhook(c context.Context, body []byte) (string, Outcome, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", Outcome{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing webhook body: %s", err))
	}
	paymentID := values.Get("id")
	if paymentID == "" {
		return "", Outcome{}, myerrors.NewInvalidInputErrorf("webhook without payment id")
	}

	credentials, found, err := a.vault.Get(c, CredentialsUID(NameMollie))
	if err != nil {
		return "", Outcome{}, err
	}
	if !found {
		return "", Outcome{}, myerrors.NewInternalError(fmt.Errorf("missing mollie credentials"))
	}
	a.payer.UseAPIKey(credentials.APIKey)

	payment, err := a.payer.GetPaymentOnID(c, paymentID)
	if err != nil {
		return "", Outcome{}, err
	}

	runUID := ""
	if metadata, ok := payment.Metadata.(map[string]interface{}); ok {
		runUID, _ = metadata["runUID"].(string)
	} else if metadata, ok := payment.Metadata.(map[string]string); ok {
		runUID = metadata["runUID"]
	}
	if runUID == "" {
		return "", Outcome{}, myerrors.NewInvalidInputErrorf("mollie payment %s without runUID metadata", paymentID)
	}

	return runUID, classifyMollieStatus(payment.Status, payment.ID), nil
}

func classifyMollieStatus(mollieStatus string, paymentID string) Outcome {
	switch mollieStatus {
	case "paid":
		return Succeeded(paymentID)
	case "canceled":
		return Cancelled("mollie status canceled")
	case "failed":
		return Failed("mollie status failed")
	case "expired":
		return Outcome{Status: OutcomeExpired, Reason: "mollie status expired"}
	default:
		return Outcome{Status: OutcomePending}
	}
}
