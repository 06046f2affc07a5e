package paymentgateway

import (
	"context"
	"fmt"
)

// BalanceReader is the read-only wallet view the adapter is allowed: the
// ledger itself is only ever mutated by the coordinator.
type BalanceReader interface {
	GetBalance(c context.Context, userUID string) (int64, error)
}

type walletAdapter struct {
	balances BalanceReader
}

func NewWalletAdapter(balances BalanceReader) Adapter {
	return &walletAdapter{
		balances: balances,
	}
}

func (a *walletAdapter) Name() Name {
	return NameWallet
}

func (a *walletAdapter) RecordsTransaction() bool {
	return true
}

func (a *walletAdapter) Initiate(c context.Context, req Request) Initiation {
	if req.AmountInCents <= 0 {
		return FailedInitiation("invalid amount")
	}

	balance, err := a.balances.GetBalance(c, req.UserUID)
	if err != nil {
		return FailedInitiation(fmt.Sprintf("error fetching wallet balance: %s", err))
	}

	if balance < req.AmountInCents {
		return FailedInitiation(fmt.Sprintf("insufficient wallet balance: have %d, need %d", balance, req.AmountInCents))
	}

	return ImmediateInitiation(Succeeded("wallet_" + req.RunUID))
}
