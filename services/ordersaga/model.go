package ordersaga

import (
	"time"

	"github.com/MinhChien3980/foodease-backend/services/checkoutapi"
	"github.com/MinhChien3980/foodease-backend/services/paymentgateway"
)

type RunState string

const (
	RunStateOrderCreating       RunState = "orderCreating"
	RunStatePaymentInitiating   RunState = "paymentInitiating"
	RunStatePaymentPendingAsync RunState = "paymentPendingAsync"
	RunStateConfirming          RunState = "confirming"
	RunStateFinalized           RunState = "finalized"
	RunStateCompensating        RunState = "compensating"
	RunStateFailed              RunState = "failed"
	// RunStateNeedsReview marks runs where the external charge may have
	// landed but the internal outcome is unknown. Manual reconciliation,
	// never automatic compensation.
	RunStateNeedsReview RunState = "needsReview"
)

func (s RunState) IsTerminal() bool {
	return s == RunStateFinalized || s == RunStateFailed || s == RunStateNeedsReview
}

// awaitingOutcome reports whether a terminal payment outcome may still act on
// the run. Once the run has left these states, later signals are recorded but
// ignored.
func (s RunState) awaitingOutcome() bool {
	return s == RunStatePaymentInitiating || s == RunStatePaymentPendingAsync
}

type RunType string

const (
	RunTypeOrder       RunType = "order"
	RunTypeWalletTopUp RunType = "walletTopup"
)

// ObservedOutcome is the audit trail of every payment signal that arrived for
// a run, including duplicates that were not acted upon.
type ObservedOutcome struct {
	Status         paymentgateway.OutcomeStatus
	ExternalTxnUID string
	Reason         string
	ObservedAt     time.Time
	ActedUpon      bool
}

// SagaRun is the persisted state of one checkout or top-up attempt. A run
// carries exactly one payment attempt: polls and callbacks update the
// observed outcomes but never create a second attempt.
type SagaRun struct {
	RunUID               string
	SessionUID           string
	UserUID              string
	Type                 RunType
	State                RunState
	Gateway              paymentgateway.Name
	Checkout             checkoutapi.CheckoutContext
	OrderUID             string // empty for wallet top-ups
	AttemptUID           string
	GatewayAmountInCents int64 // computed once at start
	Currency             string
	ExternalRef          string
	RedirectURL          string
	ClientAction         *paymentgateway.ClientAction
	Compensated          bool
	FailureReason        string
	Observed             []ObservedOutcome
	CreatedAt            time.Time
	LastModified         *time.Time
}

type StartCommand struct {
	SessionUID string
	UserUID    string
	Gateway    paymentgateway.Name
	Checkout   checkoutapi.CheckoutContext
	BaseURL    string // scheme+host the gateway redirects back to
}

type TopUpCommand struct {
	SessionUID    string
	UserUID       string
	Gateway       paymentgateway.Name
	AmountInCents int64
	Currency      string
	ShopperEmail  string
	BaseURL       string
}
