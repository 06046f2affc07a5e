package paymentgateway

import (
	"context"
	"fmt"

	"github.com/plutov/paypal/v4"

	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/myvault"
)

type PayPalPayer interface {
	UseCredentials(c context.Context, clientID string, secret string) error
	CreateOrder(c context.Context, units []paypal.PurchaseUnitRequest) (*paypal.Order, error)
}

type payPalPayer struct {
	client *paypal.Client
}

func NewPayPalPayer() PayPalPayer {
	return &payPalPayer{}
}

func (p *payPalPayer) UseCredentials(c context.Context, clientID string, secret string) error {
	client, err := paypal.NewClient(clientID, secret, paypal.APIBaseSandBox)
	if err != nil {
		return fmt.Errorf("error creating paypal client: %s", err)
	}
	_, err = client.GetAccessToken(c)
	if err != nil {
		return fmt.Errorf("error fetching paypal access token: %s", err)
	}
	p.client = client
	return nil
}

func (p *payPalPayer) CreateOrder(c context.Context, units []paypal.PurchaseUnitRequest) (*paypal.Order, error) {
	return p.client.CreateOrder(c, paypal.OrderIntentCapture, units, nil, nil)
}

type payPalAdapter struct {
	payer  PayPalPayer
	vault  myvault.VaultReader[Credentials]
	logger mylog.Logger
}

func NewPayPalAdapter(payer PayPalPayer, vault myvault.VaultReader[Credentials]) *payPalAdapter {
	return &payPalAdapter{
		payer:  payer,
		vault:  vault,
		logger: mylog.New("paypal"),
	}
}

func (a *payPalAdapter) Name() Name {
	return NamePayPal
}

func (a *payPalAdapter) RecordsTransaction() bool {
	return true
}

func (a *payPalAdapter) Initiate(c context.Context, req Request) Initiation {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NamePayPal))
	if err != nil || !found {
		return FailedInitiation("missing paypal credentials")
	}
	err = a.payer.UseCredentials(c, credentials.APIKey, credentials.APISecret)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error authenticating at paypal: %s", err))
	}

	order, err := a.payer.CreateOrder(c, []paypal.PurchaseUnitRequest{
		{
			ReferenceID: req.RunUID,
			Description: req.Description,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: req.Currency,
				Value:    minorToMajor(req.AmountInCents),
			},
		},
	})
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error creating paypal order: %s", err))
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Created paypal order %s for run %s", order.ID, req.RunUID)

	return Initiation{
		Kind: KindClientAction,
		Action: &ClientAction{
			Gateway:    NamePayPal,
			SessionUID: order.ID,
			SessionData: map[string]string{
				"paypalOrderId": order.ID,
				"currencyCode":  req.Currency,
				"value":         minorToMajor(req.AmountInCents),
			},
		},
		ExternalRef: order.ID,
	}
}

func minorToMajor(amountInCents int64) string {
	return fmt.Sprintf("%d.%02d", amountInCents/100, amountInCents%100)
}
