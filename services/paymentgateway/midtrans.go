package paymentgateway

import (
	"context"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/myvault"
)

type MidtransPayer interface {
	UseServerKey(serverKey string)
	CreateTransaction(orderUID string, grossAmountInCents int64) (string, string, error)
	GetTransactionStatus(orderUID string) (string, string, error)
}

type midtransPayer struct {
	snapClient snap.Client
	coreClient coreapi.Client
}

func NewMidtransPayer() MidtransPayer {
	return &midtransPayer{}
}

func (p *midtransPayer) UseServerKey(serverKey string) {
	p.snapClient.New(serverKey, midtrans.Sandbox)
	p.coreClient.New(serverKey, midtrans.Sandbox)
}

func (p *midtransPayer) CreateTransaction(orderUID string, grossAmountInCents int64) (string, string, error) {
	resp, err := p.snapClient.CreateTransaction(&snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderUID,
			GrossAmt: grossAmountInCents / 100,
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("error creating snap transaction: %s", err.GetMessage())
	}

	return resp.RedirectURL, resp.Token, nil
}

func (p *midtransPayer) GetTransactionStatus(orderUID string) (string, string, error) {
	resp, err := p.coreClient.CheckTransaction(orderUID)
	if err != nil {
		return "", "", fmt.Errorf("error checking transaction %s: %s", orderUID, err.GetMessage())
	}

	return resp.TransactionStatus, resp.TransactionID, nil
}

// midtransAdapter hands the shopper a redirect url; the outcome has to be
// polled for via the status endpoint.
type midtransAdapter struct {
	payer  MidtransPayer
	vault  myvault.VaultReader[Credentials]
	logger mylog.Logger
}

func NewMidtransAdapter(payer MidtransPayer, vault myvault.VaultReader[Credentials]) *midtransAdapter {
	return &midtransAdapter{
		payer:  payer,
		vault:  vault,
		logger: mylog.New("midtrans"),
	}
}

func (a *midtransAdapter) Name() Name {
	return NameMidtrans
}

func (a *midtransAdapter) RecordsTransaction() bool {
	return true
}

func (a *midtransAdapter) Initiate(c context.Context, req Request) Initiation {
	// Midtrans amounts are expressed in whole currency units; truncating a
	// sub-unit remainder would undercharge.
	if req.AmountInCents%100 != 0 {
		return FailedInitiation(fmt.Sprintf("midtrans requires a whole-unit amount, got %d cents", req.AmountInCents))
	}

	credentials, found, err := a.vault.Get(c, CredentialsUID(NameMidtrans))
	if err != nil || !found {
		return FailedInitiation("missing midtrans credentials")
	}
	a.payer.UseServerKey(credentials.APIKey)

	redirectURL, token, err := a.payer.CreateTransaction(req.OrderUID, req.AmountInCents)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error creating midtrans transaction: %s", err))
	}

	a.logger.Log(c, req.RunUID, mylog.SeverityInfo, "Created midtrans transaction %s for run %s", token, req.RunUID)

	return Initiation{
		Kind:        KindRedirect,
		RedirectURL: redirectURL,
		ExternalRef: req.OrderUID,
		Poll:        true,
	}
}

func (a *midtransAdapter) FetchStatus(c context.Context, req Request) (Outcome, error) {
	transactionStatus, transactionID, err := a.payer.GetTransactionStatus(req.OrderUID)
	if err != nil {
		return Outcome{}, err
	}

	return classifyMidtransStatus(transactionStatus, transactionID), nil
}

// https://docs.midtrans.com/docs/midtrans-transaction-statuses
func classifyMidtransStatus(transactionStatus string, transactionID string) Outcome {
	switch transactionStatus {
	case "settlement", "capture":
		return Succeeded(transactionID)
	case "pending", "authorize":
		return Outcome{Status: OutcomePending}
	case "deny", "failure":
		return Failed("midtrans status " + transactionStatus)
	case "cancel":
		return Cancelled("midtrans status cancel")
	case "expire":
		return Outcome{Status: OutcomeExpired, Reason: "midtrans status expire"}
	default:
		return Outcome{Status: OutcomePending}
	}
}
