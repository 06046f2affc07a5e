package paymentgateway

import (
	"context"
	"fmt"
	"strconv"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/myvault"
)

type RazorPayer interface {
	UseCredentials(key string, secret string)
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
}

type razorPayer struct {
	client *razorpay.Client
}

func NewRazorPayer() RazorPayer {
	return &razorPayer{}
}

func (p *razorPayer) UseCredentials(key string, secret string) {
	p.client = razorpay.NewClient(key, secret)
}

func (p *razorPayer) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return p.client.Order.Create(data, nil)
}

// razorPayAdapter creates a server-side razorpay order keyed by the order
// uid; the client checkout SDK confirms with amounts in minor units.
type razorPayAdapter struct {
	payer  RazorPayer
	vault  myvault.VaultReader[Credentials]
	logger mylog.Logger
}

func NewRazorPayAdapter(payer RazorPayer, vault myvault.VaultReader[Credentials]) *razorPayAdapter {
	return &razorPayAdapter{
		payer:  payer,
		vault:  vault,
		logger: mylog.New("razorpay"),
	}
}

func (a *razorPayAdapter) Name() Name {
	return NameRazorPay
}

func (a *razorPayAdapter) RecordsTransaction() bool {
	return true
}

func (a *razorPayAdapter) Initiate(c context.Context, req Request) Initiation {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NameRazorPay))
	if err != nil || !found {
		return FailedInitiation("missing razorpay credentials")
	}
	a.payer.UseCredentials(credentials.APIKey, credentials.APISecret)

	// amounts are carried in minor units throughout
	orderResp, err := a.payer.CreateOrder(map[string]interface{}{
		"amount":   req.AmountInCents,
		"currency": req.Currency,
		"receipt":  req.OrderUID,
		"notes": map[string]interface{}{
			"runUID": req.RunUID,
		},
	})
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error creating razorpay order: %s", err))
	}

	razorpayOrderID, _ := orderResp["id"].(string)
	if razorpayOrderID == "" {
		return FailedInitiation("razorpay order response without id")
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Created razorpay order %s for run %s", razorpayOrderID, req.RunUID)

	return Initiation{
		Kind: KindClientAction,
		Action: &ClientAction{
			Gateway:    NameRazorPay,
			SessionUID: razorpayOrderID,
			SessionData: map[string]string{
				"keyId":    credentials.APIKey,
				"orderId":  razorpayOrderID,
				"amount":   strconv.FormatInt(req.AmountInCents, 10),
				"currency": req.Currency,
			},
		},
		ExternalRef: razorpayOrderID,
	}
}
