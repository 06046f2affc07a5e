package paymentgateway

import (
	"context"
)

// codAdapter settles at the door: no external money moves at checkout time,
// so a successful initiation is immediately terminal and no transaction is
// recorded.
type codAdapter struct{}

func NewCODAdapter() Adapter {
	return &codAdapter{}
}

func (a *codAdapter) Name() Name {
	return NameCOD
}

func (a *codAdapter) RecordsTransaction() bool {
	return false
}

func (a *codAdapter) Initiate(c context.Context, req Request) Initiation {
	if req.AmountInCents <= 0 {
		return FailedInitiation("invalid amount")
	}

	return ImmediateInitiation(Succeeded(""))
}
