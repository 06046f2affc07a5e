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

const phonePeBaseURL = "https://api.phonepe.com/apis/hermes"

type phonePeCreateRequest struct {
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	RedirectURL string `json:"redirect_url"`
	Mobile      string `json:"mobile"`
}

type phonePeCreateResponse struct {
	URL string `json:"url"`
}

type phonePeStatusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Data    struct {
		TransactionID string `json:"transactionId"`
		State         string `json:"state"`
	} `json:"data"`
}

// phonePeAdapter sends the shopper to a hosted payment page; the outcome is
// polled for afterwards.
type phonePeAdapter struct {
	sender  myhttpclient.HTTPSender
	vault   myvault.VaultReader[Credentials]
	baseURL string
	logger  mylog.Logger
}

func NewPhonePeAdapter(sender myhttpclient.HTTPSender, vault myvault.VaultReader[Credentials]) *phonePeAdapter {
	return &phonePeAdapter{
		sender:  sender,
		vault:   vault,
		baseURL: phonePeBaseURL,
		logger:  mylog.New("phonepe"),
	}
}

func (a *phonePeAdapter) Name() Name {
	return NamePhonePe
}

func (a *phonePeAdapter) RecordsTransaction() bool {
	return true
}

func (a *phonePeAdapter) Initiate(c context.Context, req Request) Initiation {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NamePhonePe))
	if err != nil || !found {
		return FailedInitiation("missing phonepe credentials")
	}

	body, err := json.Marshal(phonePeCreateRequest{
		OrderID:     req.OrderUID,
		Amount:      req.AmountInCents,
		Type:        "phonepe",
		RedirectURL: req.ReturnURL,
		Mobile:      req.ShopperMobile,
	})
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error marshalling request: %s", err))
	}

	httpStatus, respBody, err := a.sender.Send(c, http.MethodPost, a.baseURL+"/pg/v1/pay", map[string]string{
		"X-VERIFY":      credentials.APISecret,
		"X-MERCHANT-ID": credentials.Extra,
	}, body)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error calling phonepe: %s", err))
	}
	if httpStatus != http.StatusOK {
		return FailedInitiation(fmt.Sprintf("phonepe returned status %d", httpStatus))
	}

	resp := phonePeCreateResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error parsing phonepe response: %s", err))
	}
	if resp.URL == "" {
		return FailedInitiation("phonepe response without payment url")
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Created phonepe payment page for run %s", req.RunUID)

	return Initiation{
		Kind:        KindRedirect,
		RedirectURL: resp.URL,
		ExternalRef: req.OrderUID,
		Poll:        true,
	}
}

func (a *phonePeAdapter) FetchStatus(c context.Context, req Request) (Outcome, error) {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NamePhonePe))
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return Outcome{}, fmt.Errorf("missing phonepe credentials")
	}

	url := fmt.Sprintf("%s/pg/v1/status/%s/%s", a.baseURL, credentials.Extra, req.OrderUID)
	httpStatus, respBody, err := a.sender.Send(c, http.MethodGet, url, map[string]string{
		"X-VERIFY":      credentials.APISecret,
		"X-MERCHANT-ID": credentials.Extra,
	}, nil)
	if err != nil {
		return Outcome{}, err
	}
	if httpStatus != http.StatusOK {
		return Outcome{}, fmt.Errorf("phonepe status returned %d", httpStatus)
	}

	resp := phonePeStatusResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return Outcome{}, fmt.Errorf("error parsing phonepe status response: %s", err)
	}

	return classifyPhonePeState(resp.Data.State, resp.Data.TransactionID), nil
}

func classifyPhonePeState(state string, transactionID string) Outcome {
	switch state {
	case "COMPLETED":
		return Succeeded(transactionID)
	case "FAILED":
		return Failed("phonepe state FAILED")
	case "EXPIRED":
		return Outcome{Status: OutcomeExpired, Reason: "phonepe state EXPIRED"}
	default:
		return Outcome{Status: OutcomePending}
	}
}
