package paymentgateway

import "context"

// Name identifies a gateway variant.
type Name string

const (
	NameCOD         Name = "cod"
	NameWallet      Name = "wallet"
	NameStripe      Name = "stripe"
	NamePayPal      Name = "paypal"
	NameRazorPay    Name = "razorpay"
	NamePayStack    Name = "paystack"
	NameFlutterWave Name = "flutterwave"
	NameMidtrans    Name = "midtrans"
	NamePhonePe     Name = "phonepe"
	NameAdyen       Name = "adyen"
	NameMollie      Name = "mollie"
)

type OutcomeStatus string

const (
	OutcomePending   OutcomeStatus = "pending"
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeExpired   OutcomeStatus = "expired"
	// OutcomeTimedOut means the external charge may or may not have landed:
	// ambiguous, to be reconciled manually, never compensated automatically.
	OutcomeTimedOut OutcomeStatus = "timedOut"
)

func (s OutcomeStatus) IsTerminal() bool {
	return s != OutcomePending && s != ""
}

// Outcome is the normalized result every adapter reduces its
// provider-specific signal to.
type Outcome struct {
	Status         OutcomeStatus
	ExternalTxnUID string
	Reason         string
}

func Succeeded(externalTxnUID string) Outcome {
	return Outcome{Status: OutcomeSucceeded, ExternalTxnUID: externalTxnUID}
}

func Failed(reason string) Outcome {
	return Outcome{Status: OutcomeFailed, Reason: reason}
}

func Cancelled(reason string) Outcome {
	return Outcome{Status: OutcomeCancelled, Reason: reason}
}

// Kind is the interaction shape of an initiation.
type Kind string

const (
	// KindImmediate: the adapter itself settles the payment and returns a
	// terminal outcome (COD, wallet).
	KindImmediate Kind = "immediate"
	// KindClientAction: an external SDK takes over in the client; the SDK
	// callback is the outcome signal (Stripe, PayPal, RazorPay, PayStack,
	// FlutterWave, Adyen).
	KindClientAction Kind = "clientAction"
	// KindRedirect: the shopper is sent to a hosted page; the outcome arrives
	// via polling or webhook (Midtrans, PhonePe, Mollie).
	KindRedirect Kind = "redirect"
)

// ClientAction carries what the frontend SDK needs to take over.
type ClientAction struct {
	Gateway     Name
	SessionUID  string
	SessionData map[string]string
}

// Initiation is what Initiate produces. Expected failures are not errors:
// they come back as an immediate Initiation with a failed outcome.
type Initiation struct {
	Kind        Kind
	Outcome     Outcome // only meaningful for KindImmediate
	Action      *ClientAction
	RedirectURL string
	ExternalRef string
	Poll        bool // redirect flows that need the status poller
}

func ImmediateInitiation(outcome Outcome) Initiation {
	return Initiation{Kind: KindImmediate, Outcome: outcome}
}

func FailedInitiation(reason string) Initiation {
	return Initiation{Kind: KindImmediate, Outcome: Failed(reason)}
}

// Request is the payload the coordinator assembles for an initiation. For
// order-first flows Initiate is only invoked after the order exists, so the
// external reference can be tied to an order uid.
type Request struct {
	RunUID           string
	OrderUID         string // empty for wallet top-ups
	UserUID          string
	AmountInCents    int64
	Currency         string
	Description      string
	ReturnURL        string
	ShopperEmail     string
	ShopperMobile    string
	WalletAmountUsed int64
}

// Adapter is the uniform gateway contract. Implementations are pure
// request/response collaborators without persistent state, safe to call at
// most once per saga run.
type Adapter interface {
	Name() Name
	// RecordsTransaction reports whether a successful run via this gateway
	// moves external money and must be recorded (COD does not).
	RecordsTransaction() bool
	Initiate(c context.Context, req Request) Initiation
}

// StatusFetcher is implemented by redirect adapters whose outcome must be
// polled for.
type StatusFetcher interface {
	FetchStatus(c context.Context, req Request) (Outcome, error)
}

// WebhookClassifier is implemented by adapters whose provider pushes
// notifications; it reduces the raw body to a run reference plus outcome.
type WebhookClassifier interface {
	ClassifyWebhook(c context.Context, body []byte) (string, Outcome, error)
}

// Credentials are the per-gateway secrets kept in the vault.
type Credentials struct {
	APIKey    string
	APISecret string
	Extra     string // provider specific: merchant/profile/account id
}

// CredentialsUID is the vault key for a gateway's credentials.
func CredentialsUID(name Name) string {
	return "credentials_" + string(name)
}
