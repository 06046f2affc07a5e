package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MinhChien3980/foodease-backend/lib/myhttpclient"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/myvault"
)

const payStackBaseURL = "https://api.paystack.co"

type payStackInitializeRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"` // kobo
	Currency    string   `json:"currency"`
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url"`
	Channels    []string `json:"channels"`
}

type payStackInitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// payStackAdapter initializes a transaction via the REST API; the inline
// client SDK confirms it, amounts travel in kobo.
type payStackAdapter struct {
	sender  myhttpclient.HTTPSender
	vault   myvault.VaultReader[Credentials]
	baseURL string
	logger  mylog.Logger
}

func NewPayStackAdapter(sender myhttpclient.HTTPSender, vault myvault.VaultReader[Credentials]) *payStackAdapter {
	return &payStackAdapter{
		sender:  sender,
		vault:   vault,
		baseURL: payStackBaseURL,
		logger:  mylog.New("paystack"),
	}
}

func (a *payStackAdapter) Name() Name {
	return NamePayStack
}

func (a *payStackAdapter) RecordsTransaction() bool {
	return true
}

func (a *payStackAdapter) Initiate(c context.Context, req Request) Initiation {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NamePayStack))
	if err != nil || !found {
		return FailedInitiation("missing paystack credentials")
	}

	body, err := json.Marshal(payStackInitializeRequest{
		Email:       req.ShopperEmail,
		Amount:      req.AmountInCents,
		Currency:    req.Currency,
		Reference:   req.RunUID,
		CallbackURL: req.ReturnURL,
		Channels:    []string{"card", "bank", "ussd", "mobile_money"},
	})
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error marshalling request: %s", err))
	}

	httpStatus, respBody, err := a.sender.Send(c, http.MethodPost, a.baseURL+"/transaction/initialize", map[string]string{
		"Authorization": "Bearer " + credentials.APISecret,
	}, body)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error calling paystack: %s", err))
	}
	if httpStatus != http.StatusOK {
		return FailedInitiation(fmt.Sprintf("paystack returned status %d", httpStatus))
	}

	resp := payStackInitializeResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error parsing paystack response: %s", err))
	}
	if !resp.Status {
		return FailedInitiation(fmt.Sprintf("paystack rejected initialization: %s", resp.Message))
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Initialized paystack transaction %s for run %s", resp.Data.Reference, req.RunUID)

	return Initiation{
		Kind: KindClientAction,
		Action: &ClientAction{
			Gateway:    NamePayStack,
			SessionUID: resp.Data.AccessCode,
			SessionData: map[string]string{
				"accessCode":       resp.Data.AccessCode,
				"reference":        resp.Data.Reference,
				"authorizationUrl": resp.Data.AuthorizationURL,
			},
		},
		ExternalRef: resp.Data.Reference,
	}
}
