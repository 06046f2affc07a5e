package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adyen/adyen-go-api-library/v6/src/adyen"
	"github.com/adyen/adyen-go-api-library/v6/src/checkout"
	"github.com/adyen/adyen-go-api-library/v6/src/common"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/myvault"
)

type AdyenPayer interface {
	UseAPIKey(apiKey string)
	Sessions(ctx context.Context, req checkout.CreateCheckoutSessionRequest) (checkout.CreateCheckoutSessionResponse, error)
}

type adyenPayer struct {
	client *adyen.APIClient
}

func NewAdyenPayer(environment string) AdyenPayer {
	return &adyenPayer{
		client: adyen.NewClient(&common.Config{
			Environment: common.Environment(strings.ToUpper(environment)),
			Debug:       false,
		}),
	}
}

func (p *adyenPayer) UseAPIKey(apiKey string) {
	p.client.GetConfig().ApiKey = apiKey
}

func (p *adyenPayer) Sessions(ctx context.Context, req checkout.CreateCheckoutSessionRequest) (checkout.CreateCheckoutSessionResponse, error) {
	resp, _, err := p.client.Checkout.Sessions(&req, ctx)
	if err != nil {
		return checkout.CreateCheckoutSessionResponse{}, err
	}

	return resp, nil
}

// adyenWebhookNotification is the standard-webhook wrapper.
// https://docs.adyen.com/development-resources/webhooks/webhook-types#standard-webhook
type adyenWebhookNotification struct {
	Live              string                  `json:"live"`
	NotificationItems []adyenNotificationItem `json:"notificationItems"`
}

type adyenNotificationItem struct {
	NotificationRequestItem adyenNotificationRequestItem `json:"NotificationRequestItem"`
}

type adyenNotificationRequestItem struct {
	EventCode         string    `json:"eventCode"`
	EventDate         time.Time `json:"eventDate"`
	MerchantReference string    `json:"merchantReference"`
	PspReference      string    `json:"pspReference"`
	Reason            string    `json:"reason"`
	Success           string    `json:"success"`
}

// adyenAdapter starts a checkout session; the drop-in component in the client
// completes it and a standard webhook delivers the definitive status.
type adyenAdapter struct {
	payer  AdyenPayer
	vault  myvault.VaultReader[Credentials]
	logger mylog.Logger
}

func NewAdyenAdapter(payer AdyenPayer, vault myvault.VaultReader[Credentials]) *adyenAdapter {
	return &adyenAdapter{
		payer:  payer,
		vault:  vault,
		logger: mylog.New("adyen"),
	}
}

func (a *adyenAdapter) Name() Name {
	return NameAdyen
}

func (a *adyenAdapter) RecordsTransaction() bool {
	return true
}

func (a *adyenAdapter) Initiate(c context.Context, req Request) Initiation {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NameAdyen))
	if err != nil || !found {
		return FailedInitiation("missing adyen credentials")
	}
	a.payer.UseAPIKey(credentials.APIKey)

	resp, err := a.payer.Sessions(c, checkout.CreateCheckoutSessionRequest{
		Amount: checkout.Amount{
			Currency: req.Currency,
			Value:    req.AmountInCents,
		},
		Channel:                "Web",
		MerchantAccount:        credentials.Extra,
		MerchantOrderReference: req.OrderUID,
		Reference:              req.RunUID,
		ReturnUrl:              req.ReturnURL,
		ShopperEmail:           req.ShopperEmail,
	})
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error creating checkout session: %s", err))
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Created adyen checkout session %s for run %s", resp.Id, req.RunUID)

	return Initiation{
		Kind: KindClientAction,
		Action: &ClientAction{
			Gateway:    NameAdyen,
			SessionUID: resp.Id,
			SessionData: map[string]string{
				"sessionData": resp.SessionData,
			},
		},
		ExternalRef: resp.Id,
	}
}

// ClassifyWebhook reduces a standard webhook to the run it belongs to plus a
// normalized outcome. Only the first notification item decides.
func (a *adyenAdapter) ClassifyWebhook(c context.Context, body []byte) (string, Outcome, error) {
	notification := adyenWebhookNotification{}
	err := json.Unmarshal(body, &notification)
	if err != nil {
		return "", Outcome{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing webhook notification: %s", err))
	}
	if len(notification.NotificationItems) == 0 {
		return "", Outcome{}, myerrors.NewInvalidInputErrorf("webhook notification without items")
	}

	item := notification.NotificationItems[0].NotificationRequestItem
	if item.MerchantReference == "" {
		return "", Outcome{}, myerrors.NewInvalidInputErrorf("webhook notification without merchant reference")
	}

	return item.MerchantReference, classifyAdyenEvent(item), nil
}

func classifyAdyenEvent(item adyenNotificationRequestItem) Outcome {
	success := item.Success == "true"

	switch item.EventCode {
	case "AUTHORISATION", "AUTHORISATION_ADJUSTMENT":
		if success {
			return Succeeded(item.PspReference)
		}
		return Failed(fmt.Sprintf("%s=%s: %s", item.EventCode, item.Success, item.Reason))
	case "CANCELLATION":
		return Cancelled("adyen event CANCELLATION")
	case "EXPIRE", "OFFER_CLOSED":
		return Outcome{Status: OutcomeExpired, Reason: "adyen event " + item.EventCode}
	case "REFUSED":
		return Failed("adyen event REFUSED")
	default:
		return Outcome{Status: OutcomePending}
	}
}
