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

const flutterWaveBaseURL = "https://api.flutterwave.com/v3"

type flutterWavePaymentRequest struct {
	TxRef          string               `json:"tx_ref"`
	Amount         string               `json:"amount"`
	Currency       string               `json:"currency"`
	RedirectURL    string               `json:"redirect_url"`
	PaymentOptions string               `json:"payment_options"`
	Customer       flutterWaveCustomer  `json:"customer"`
	Meta           map[string]string    `json:"meta,omitempty"`
}

type flutterWaveCustomer struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phonenumber,omitempty"`
}

type flutterWavePaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type flutterWaveAdapter struct {
	sender  myhttpclient.HTTPSender
	vault   myvault.VaultReader[Credentials]
	baseURL string
	logger  mylog.Logger
}

func NewFlutterWaveAdapter(sender myhttpclient.HTTPSender, vault myvault.VaultReader[Credentials]) *flutterWaveAdapter {
	return &flutterWaveAdapter{
		sender:  sender,
		vault:   vault,
		baseURL: flutterWaveBaseURL,
		logger:  mylog.New("flutterwave"),
	}
}

func (a *flutterWaveAdapter) Name() Name {
	return NameFlutterWave
}

func (a *flutterWaveAdapter) RecordsTransaction() bool {
	return true
}

func (a *flutterWaveAdapter) Initiate(c context.Context, req Request) Initiation {
	credentials, found, err := a.vault.Get(c, CredentialsUID(NameFlutterWave))
	if err != nil || !found {
		return FailedInitiation("missing flutterwave credentials")
	}

	currency := req.Currency
	if currency == "" {
		currency = "NGN"
	}

	body, err := json.Marshal(flutterWavePaymentRequest{
		TxRef:          req.RunUID,
		Amount:         minorToMajor(req.AmountInCents),
		Currency:       currency,
		RedirectURL:    req.ReturnURL,
		PaymentOptions: "card,ussd,banktransfer",
		Customer: flutterWaveCustomer{
			Email:       req.ShopperEmail,
			PhoneNumber: req.ShopperMobile,
		},
		Meta: map[string]string{
			"orderUid": req.OrderUID,
		},
	})
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error marshalling request: %s", err))
	}

	httpStatus, respBody, err := a.sender.Send(c, http.MethodPost, a.baseURL+"/payments", map[string]string{
		"Authorization": "Bearer " + credentials.APISecret,
	}, body)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error calling flutterwave: %s", err))
	}
	if httpStatus != http.StatusOK {
		return FailedInitiation(fmt.Sprintf("flutterwave returned status %d", httpStatus))
	}

	resp := flutterWavePaymentResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error parsing flutterwave response: %s", err))
	}
	if resp.Status != "success" {
		return FailedInitiation(fmt.Sprintf("flutterwave rejected payment: %s", resp.Message))
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Created flutterwave payment link for run %s", req.RunUID)

	return Initiation{
		Kind: KindClientAction,
		Action: &ClientAction{
			Gateway:    NameFlutterWave,
			SessionUID: req.RunUID,
			SessionData: map[string]string{
				"link":     resp.Data.Link,
				"txRef":    req.RunUID,
				"amount":   minorToMajor(req.AmountInCents),
				"currency": currency,
			},
		},
		ExternalRef: req.RunUID,
	}
}
