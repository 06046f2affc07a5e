package ordersaga

import (
	"context"
	"fmt"
	"sync"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/mypublisher"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
	"github.com/MinhChien3980/foodease-backend/lib/myuuid"
	"github.com/MinhChien3980/foodease-backend/services/order"
	"github.com/MinhChien3980/foodease-backend/services/orderevents"
	"github.com/MinhChien3980/foodease-backend/services/paymentgateway"
	"github.com/MinhChien3980/foodease-backend/services/paymentpoller"
	"github.com/MinhChien3980/foodease-backend/services/promo"
	"github.com/MinhChien3980/foodease-backend/services/wallet"
)

type service struct {
	runStore  mystore.Store[SagaRun]
	orders    order.Service
	recorder  order.TransactionRecorder
	ledger    wallet.Ledger
	promos    promo.Registry
	gateways  *paymentgateway.Registry
	poller    *paymentpoller.Poller
	publisher mypublisher.Publisher
	nower     mytime.Nower
	uuider    myuuid.UUIDer
	logger    mylog.Logger

	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(runStore mystore.Store[SagaRun], orders order.Service, recorder order.TransactionRecorder,
	ledger wallet.Ledger, promos promo.Registry, gateways *paymentgateway.Registry,
	poller *paymentpoller.Poller, publisher mypublisher.Publisher,
	nower mytime.Nower, uuider myuuid.UUIDer) *service {
	return &service{
		runStore:  runStore,
		orders:    orders,
		recorder:  recorder,
		ledger:    ledger,
		promos:    promos,
		gateways:  gateways,
		poller:    poller,
		publisher: publisher,
		nower:     nower,
		uuider:    uuider,
		logger:    mylog.New("ordersaga"),
		locks:     map[string]*sync.Mutex{},
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, orderevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", orderevents.TopicName, err)
	}

	return nil
}

// Start validates the checkout snapshot, creates the provisional order and
// hands the payment off to the selected gateway. Validation failures occur
// before any side effect: no partial order is ever created.
func (s *service) Start(c context.Context, cmd StartCommand) (SagaRun, error) {
	if cmd.SessionUID == "" || cmd.UserUID == "" {
		return SagaRun{}, myerrors.NewInvalidInputErrorf("missing sessionUID or userUID")
	}
	err := cmd.Checkout.Validate()
	if err != nil {
		return SagaRun{}, err
	}

	adapter, err := s.gateways.Get(cmd.Gateway)
	if err != nil {
		return SagaRun{}, err
	}

	unlock := s.lockSession(cmd.SessionUID)
	defer unlock()

	err = s.rejectActiveRun(c, cmd.SessionUID)
	if err != nil {
		return SagaRun{}, err
	}

	now := s.nower.Now()
	run := SagaRun{
		RunUID:               s.uuider.Create(),
		SessionUID:           cmd.SessionUID,
		UserUID:              cmd.UserUID,
		Type:                 RunTypeOrder,
		State:                RunStateOrderCreating,
		Gateway:              cmd.Gateway,
		Checkout:             cmd.Checkout,
		AttemptUID:           s.uuider.Create(),
		GatewayAmountInCents: cmd.Checkout.GatewayAmount(),
		Currency:             cmd.Checkout.Currency,
		CreatedAt:            now,
	}

	s.logger.Log(c, run.RunUID, mylog.SeverityInfo, "Start checkout run %s via %s for user %s (%d %s)",
		run.RunUID, run.Gateway, run.UserUID, run.GatewayAmountInCents, run.Currency)

	orderUID, err := s.orders.CreateOrder(c, order.OrderRecord{
		UserUID:       cmd.UserUID,
		Status:        order.OrderStatusDraft,
		PaymentMethod: string(cmd.Gateway),
		FinalAmount:   cmd.Checkout.FinalAmount,
		Currency:      cmd.Checkout.Currency,
		AddressUID:    cmd.Checkout.AddressUID,
		IsSelfPickup:  cmd.Checkout.IsSelfPickup,
		DeliveryTip:   cmd.Checkout.DeliveryTip,
	})
	if err != nil {
		// nothing was created, no compensation needed
		return SagaRun{}, myerrors.NewInternalError(fmt.Errorf("error creating order: %s", err))
	}
	run.OrderUID = orderUID

	if cmd.Checkout.PromoCode != "" {
		err = s.promos.Redeem(c, cmd.Checkout.PromoCode, run.RunUID, run.UserUID, cmd.Checkout.PromoDiscount)
		if err != nil {
			s.unwindStart(c, run, fmt.Sprintf("promo redemption failed: %s", err), false)
			return SagaRun{}, err
		}
	}

	run.State = RunStatePaymentInitiating
	err = s.storeAndPublishStart(c, &run)
	if err != nil {
		s.unwindStart(c, run, fmt.Sprintf("error storing run: %s", err), cmd.Checkout.PromoCode != "")
		return SagaRun{}, err
	}

	return s.initiate(c, run, adapter, paymentgateway.Request{
		RunUID:           run.RunUID,
		OrderUID:         run.OrderUID,
		UserUID:          run.UserUID,
		AmountInCents:    run.GatewayAmountInCents,
		Currency:         run.Currency,
		Description:      "Order " + run.OrderUID,
		ReturnURL:        returnURL(cmd.BaseURL, run.RunUID),
		ShopperEmail:     cmd.Checkout.ShopperEmail,
		ShopperMobile:    cmd.Checkout.ShopperMobile,
		WalletAmountUsed: cmd.Checkout.WalletAmountUsed,
	})
}

// TopUp starts a wallet top-up run: no order-first semantics, the wallet is
// credited when the payment succeeds.
func (s *service) TopUp(c context.Context, cmd TopUpCommand) (SagaRun, error) {
	if cmd.SessionUID == "" || cmd.UserUID == "" {
		return SagaRun{}, myerrors.NewInvalidInputErrorf("missing sessionUID or userUID")
	}
	if cmd.AmountInCents <= 0 {
		return SagaRun{}, myerrors.NewInvalidInputErrorf("invalid top-up amount %d", cmd.AmountInCents)
	}

	adapter, err := s.gateways.Get(cmd.Gateway)
	if err != nil {
		return SagaRun{}, err
	}

	unlock := s.lockSession(cmd.SessionUID)
	defer unlock()

	err = s.rejectActiveRun(c, cmd.SessionUID)
	if err != nil {
		return SagaRun{}, err
	}

	run := SagaRun{
		RunUID:               s.uuider.Create(),
		SessionUID:           cmd.SessionUID,
		UserUID:              cmd.UserUID,
		Type:                 RunTypeWalletTopUp,
		State:                RunStatePaymentInitiating,
		Gateway:              cmd.Gateway,
		AttemptUID:           s.uuider.Create(),
		GatewayAmountInCents: cmd.AmountInCents,
		Currency:             cmd.Currency,
		CreatedAt:            s.nower.Now(),
	}

	s.logger.Log(c, run.RunUID, mylog.SeverityInfo, "Start wallet top-up run %s via %s for user %s (%d %s)",
		run.RunUID, run.Gateway, run.UserUID, run.GatewayAmountInCents, run.Currency)

	err = s.storeAndPublishStart(c, &run)
	if err != nil {
		return SagaRun{}, err
	}

	return s.initiate(c, run, adapter, paymentgateway.Request{
		RunUID:        run.RunUID,
		UserUID:       run.UserUID,
		AmountInCents: run.GatewayAmountInCents,
		Currency:      run.Currency,
		Description:   "Wallet top-up",
		ReturnURL:     returnURL(cmd.BaseURL, run.RunUID),
		ShopperEmail:  cmd.ShopperEmail,
	})
}

// unwindStart rolls back what Start already created when a later step fails
// before the run is live: the draft order is soft-deleted and the redemption
// released directly. The run itself is stored as failed so the session is
// free for a retry and the aborted attempt stays auditable.
func (s *service) unwindStart(c context.Context, run SagaRun, reason string, releasePromo bool) {
	if run.OrderUID != "" {
		err := s.orders.DeleteOrder(c, run.OrderUID)
		if err != nil {
			s.logger.Log(c, run.RunUID, mylog.SeverityError, "Error deleting draft order %s of aborted run %s: %s", run.OrderUID, run.RunUID, err)
		}
	}

	if releasePromo {
		err := s.promos.Release(c, run.Checkout.PromoCode, run.RunUID)
		if err != nil {
			s.logger.Log(c, run.RunUID, mylog.SeverityError, "Error releasing promo %s of aborted run %s: %s", run.Checkout.PromoCode, run.RunUID, err)
		}
	}

	run.State = RunStateFailed
	run.Compensated = true
	run.FailureReason = reason
	err := s.updateRun(c, &run)
	if err != nil {
		s.logger.Log(c, run.RunUID, mylog.SeverityError, "Error storing aborted run %s: %s", run.RunUID, err)
	}
}

func (s *service) rejectActiveRun(c context.Context, sessionUID string) error {
	runs, err := s.runStore.Query(c, []mystore.Filter{
		{Field: "SessionUID", Compare: "=", Value: sessionUID},
	}, "CreatedAt")
	if err != nil {
		return myerrors.NewInternalError(err)
	}
	for _, run := range runs {
		if !run.State.IsTerminal() {
			return myerrors.NewConflictError(fmt.Errorf("checkout already in progress for session %s (run %s)", sessionUID, run.RunUID))
		}
	}

	return nil
}

func (s *service) storeAndPublishStart(c context.Context, run *SagaRun) error {
	return s.runStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.runStore.Put(c, run.RunUID, *run)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing run: %s", err))
		}

		err = s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderSagaStarted{
			RunUID:        run.RunUID,
			UserUID:       run.UserUID,
			OrderUID:      run.OrderUID,
			Gateway:       string(run.Gateway),
			AmountInCents: run.GatewayAmountInCents,
			Currency:      run.Currency,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
}

// initiate dispatches on the interaction shape of the gateway: immediate
// outcomes resolve inline, client-action and redirect runs park until a
// callback, webhook or poll delivers the outcome.
func (s *service) initiate(c context.Context, run SagaRun, adapter paymentgateway.Adapter, req paymentgateway.Request) (SagaRun, error) {
	initiation := adapter.Initiate(c, req)

	switch initiation.Kind {
	case paymentgateway.KindImmediate:
		return s.Resolve(c, run.RunUID, initiation.Outcome)

	case paymentgateway.KindClientAction:
		run.State = RunStatePaymentPendingAsync
		run.ClientAction = initiation.Action
		run.ExternalRef = initiation.ExternalRef
		err := s.updateRun(c, &run)
		if err != nil {
			return SagaRun{}, err
		}
		return run, nil

	case paymentgateway.KindRedirect:
		run.State = RunStatePaymentPendingAsync
		run.RedirectURL = initiation.RedirectURL
		run.ExternalRef = initiation.ExternalRef
		err := s.updateRun(c, &run)
		if err != nil {
			return SagaRun{}, err
		}

		if run.OrderUID != "" {
			err = s.orders.FinalizeOrder(c, run.OrderUID, order.OrderStatusAwaiting)
			if err != nil {
				return SagaRun{}, err
			}
		}

		if initiation.Poll {
			err = s.startPolling(c, run, req)
			if err != nil {
				return SagaRun{}, err
			}
		}
		return run, nil

	default:
		return SagaRun{}, myerrors.NewInternalError(fmt.Errorf("unknown initiation kind %s", initiation.Kind))
	}
}

func (s *service) startPolling(c context.Context, run SagaRun, req paymentgateway.Request) error {
	fetcher, err := s.gateways.GetStatusFetcher(run.Gateway)
	if err != nil {
		return err
	}

	return s.poller.Start(c, run.RunUID,
		func(c context.Context) (paymentgateway.Outcome, error) {
			return fetcher.FetchStatus(c, req)
		},
		func(c context.Context, outcome paymentgateway.Outcome) {
			_, err := s.Resolve(c, run.RunUID, outcome)
			if err != nil {
				s.logger.Log(c, run.RunUID, mylog.SeverityError, "Error resolving polled outcome of run %s: %s", run.RunUID, err)
			}
		})
}

// Resolve processes a payment outcome. Calls are serialized per run and the
// first terminal outcome wins: later signals are recorded on the run but not
// acted upon, which keeps the transaction record unique per attempt.
func (s *service) Resolve(c context.Context, runUID string, outcome paymentgateway.Outcome) (SagaRun, error) {
	unlock := s.lockRun(runUID)
	defer unlock()

	run, found, err := s.runStore.Get(c, runUID)
	if err != nil {
		return SagaRun{}, myerrors.NewInternalError(err)
	}
	if !found {
		return SagaRun{}, myerrors.NewNotFoundErrorf("run with uid %s not found", runUID)
	}

	actedUpon := run.State.awaitingOutcome() && outcome.Status.IsTerminal()
	run.Observed = append(run.Observed, ObservedOutcome{
		Status:         outcome.Status,
		ExternalTxnUID: outcome.ExternalTxnUID,
		Reason:         outcome.Reason,
		ObservedAt:     s.nower.Now(),
		ActedUpon:      actedUpon,
	})

	if !actedUpon {
		s.logger.Log(c, runUID, mylog.SeverityInfo, "Ignoring outcome %s for run %s in state %s", outcome.Status, runUID, run.State)
		err = s.updateRun(c, &run)
		if err != nil {
			return SagaRun{}, err
		}
		return run, nil
	}

	// A callback or webhook can beat the poll loop to the outcome.
	s.poller.Stop(runUID)

	switch outcome.Status {
	case paymentgateway.OutcomeSucceeded:
		return s.confirm(c, run, outcome)

	case paymentgateway.OutcomeTimedOut:
		return s.markForReview(c, run, outcome.Reason)

	default: // failed, cancelled, expired
		run.State = RunStateCompensating
		run.FailureReason = outcome.Reason
		err = s.updateRun(c, &run)
		if err != nil {
			return SagaRun{}, err
		}
		return s.compensateLocked(c, run)
	}
}

func (s *service) confirm(c context.Context, run SagaRun, outcome paymentgateway.Outcome) (SagaRun, error) {
	run.State = RunStateConfirming
	err := s.updateRun(c, &run)
	if err != nil {
		return SagaRun{}, err
	}

	adapter, err := s.gateways.Get(run.Gateway)
	if err != nil {
		return SagaRun{}, err
	}

	if adapter.RecordsTransaction() {
		err = s.recorder.AddTransaction(c, order.TransactionRecord{
			OrderUID:       run.OrderUID,
			AttemptUID:     run.AttemptUID,
			Type:           transactionType(run.Type),
			Gateway:        string(run.Gateway),
			ExternalTxnUID: outcome.ExternalTxnUID,
			AmountInCents:  run.GatewayAmountInCents,
			Currency:       run.Currency,
			Status:         string(paymentgateway.OutcomeSucceeded),
			Message:        outcome.Reason,
		})
		if err != nil {
			// The external charge has landed. Deleting the order here would
			// leave the user charged with nothing to show for it, so this run
			// is parked for manual reconciliation instead.
			s.logger.Log(c, run.RunUID, mylog.SeverityError, "Payment of run %s succeeded externally but recording failed: %s", run.RunUID, err)
			return s.markForReview(c, run, fmt.Sprintf("transaction recording failed: %s", err))
		}
	}

	switch run.Type {
	case RunTypeWalletTopUp:
		err = s.ledger.ApplyAdjustment(c, run.UserUID, run.GatewayAmountInCents, "wallet top-up via "+string(run.Gateway))
		if err != nil {
			return s.markForReview(c, run, fmt.Sprintf("wallet credit failed: %s", err))
		}

	default:
		// The wallet adapter only verifies the balance; the debit itself is
		// committed here, atomically with the successful run.
		walletDebit := int64(0)
		if run.Gateway == paymentgateway.NameWallet {
			walletDebit = run.GatewayAmountInCents
		} else if run.Checkout.WalletUsed {
			walletDebit = run.Checkout.WalletAmountUsed
		}
		if walletDebit > 0 {
			err = s.ledger.ApplyAdjustment(c, run.UserUID, -walletDebit, "payment of order "+run.OrderUID)
			if err != nil {
				return s.markForReview(c, run, fmt.Sprintf("wallet debit failed: %s", err))
			}
		}

		err = s.orders.FinalizeOrder(c, run.OrderUID, confirmedStatus(run.Gateway))
		if err != nil {
			return s.markForReview(c, run, fmt.Sprintf("order finalization failed: %s", err))
		}
	}

	run.State = RunStateFinalized
	err = s.runStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.runStore.Put(c, run.RunUID, run)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return s.publishFinalized(c, run, outcome)
	})
	if err != nil {
		return SagaRun{}, err
	}

	s.logger.Log(c, run.RunUID, mylog.SeverityInfo, "Run %s finalized via %s (%s)", run.RunUID, run.Gateway, outcome.ExternalTxnUID)

	return run, nil
}

func (s *service) publishFinalized(c context.Context, run SagaRun, outcome paymentgateway.Outcome) error {
	if run.Type == RunTypeWalletTopUp {
		return s.publisher.Publish(c, orderevents.TopicName, orderevents.WalletToppedUp{
			RunUID:         run.RunUID,
			UserUID:        run.UserUID,
			Gateway:        string(run.Gateway),
			ExternalTxnUID: outcome.ExternalTxnUID,
			AmountInCents:  run.GatewayAmountInCents,
		})
	}

	return s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderConfirmed{
		RunUID:           run.RunUID,
		UserUID:          run.UserUID,
		OrderUID:         run.OrderUID,
		Gateway:          string(run.Gateway),
		ExternalTxnUID:   outcome.ExternalTxnUID,
		AmountInCents:    run.GatewayAmountInCents,
		WalletAmountUsed: run.Checkout.WalletAmountUsed,
	})
}

func (s *service) markForReview(c context.Context, run SagaRun, reason string) (SagaRun, error) {
	run.State = RunStateNeedsReview
	run.FailureReason = reason

	err := s.runStore.RunInTransaction(c, func(c context.Context) error {
		err := s.runStore.Put(c, run.RunUID, run)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return s.publisher.Publish(c, orderevents.TopicName, orderevents.ReconciliationRequired{
			RunUID:   run.RunUID,
			UserUID:  run.UserUID,
			OrderUID: run.OrderUID,
			Gateway:  string(run.Gateway),
			Reason:   reason,
		})
	})
	if err != nil {
		return SagaRun{}, err
	}

	s.logger.Log(c, run.RunUID, mylog.SeverityWarn, "Run %s needs manual reconciliation: %s", run.RunUID, reason)

	return run, nil
}

// Compensate unwinds a failed run: the provisional order is soft-deleted and
// the promo redemption released. Idempotent.
func (s *service) Compensate(c context.Context, runUID string) (SagaRun, error) {
	unlock := s.lockRun(runUID)
	defer unlock()

	run, found, err := s.runStore.Get(c, runUID)
	if err != nil {
		return SagaRun{}, myerrors.NewInternalError(err)
	}
	if !found {
		return SagaRun{}, myerrors.NewNotFoundErrorf("run with uid %s not found", runUID)
	}

	return s.compensateLocked(c, run)
}

func (s *service) compensateLocked(c context.Context, run SagaRun) (SagaRun, error) {
	if run.Compensated {
		// already done
		return run, nil
	}

	if run.OrderUID != "" {
		err := s.orders.DeleteOrder(c, run.OrderUID)
		if err != nil {
			return SagaRun{}, myerrors.NewInternalError(fmt.Errorf("error deleting order %s: %s", run.OrderUID, err))
		}
	}

	if run.Checkout.PromoCode != "" {
		err := s.promos.Release(c, run.Checkout.PromoCode, run.RunUID)
		if err != nil {
			return SagaRun{}, err
		}
	}

	// Wallet funds were never tentatively deducted, so there is nothing to
	// reverse here.

	run.Compensated = true
	run.State = RunStateFailed

	err := s.runStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.runStore.Put(c, run.RunUID, run)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderCompensated{
			RunUID:   run.RunUID,
			UserUID:  run.UserUID,
			OrderUID: run.OrderUID,
			Gateway:  string(run.Gateway),
			Reason:   run.FailureReason,
		})
	})
	if err != nil {
		return SagaRun{}, err
	}

	s.logger.Log(c, run.RunUID, mylog.SeverityInfo, "Run %s compensated (%s)", run.RunUID, run.FailureReason)

	return run, nil
}

func (s *service) GetRun(c context.Context, runUID string) (SagaRun, bool, error) {
	return s.runStore.Get(c, runUID)
}

func (s *service) updateRun(c context.Context, run *SagaRun) error {
	now := s.nower.Now()
	run.LastModified = &now

	err := s.runStore.Put(c, run.RunUID, *run)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing run: %s", err))
	}

	return nil
}

func (s *service) lockRun(runUID string) func() {
	return s.lock("run/" + runUID)
}

// lockSession serializes run creation per session: without it two concurrent
// starts could both pass the active-run check before either run is stored.
func (s *service) lockSession(sessionUID string) func() {
	return s.lock("session/" + sessionUID)
}

func (s *service) lock(key string) func() {
	s.mutex.Lock()
	lock, exists := s.locks[key]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mutex.Unlock()

	lock.Lock()

	return lock.Unlock
}

func transactionType(runType RunType) order.TransactionType {
	if runType == RunTypeWalletTopUp {
		return order.TransactionTypeWallet
	}
	return order.TransactionTypeOrder
}

// returnURL is where the gateway sends the shopper back to after a hosted
// payment page.
func returnURL(baseURL string, runUID string) string {
	return fmt.Sprintf("%s/saga/run/%s/return", baseURL, runUID)
}

// confirmedStatus is the terminal order status per gateway: cash on delivery
// stays pending until the courier collects, everything else confirms.
func confirmedStatus(gateway paymentgateway.Name) order.OrderStatus {
	if gateway == paymentgateway.NameCOD {
		return order.OrderStatusPending
	}
	return order.OrderStatusConfirmed
}
