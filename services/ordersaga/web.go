package ordersaga

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MinhChien3980/foodease-backend/lib/mycontext"
	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/myhttp"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/mypublisher"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
	"github.com/MinhChien3980/foodease-backend/lib/myuuid"
	"github.com/MinhChien3980/foodease-backend/services/checkoutapi"
	"github.com/MinhChien3980/foodease-backend/services/order"
	"github.com/MinhChien3980/foodease-backend/services/paymentgateway"
	"github.com/MinhChien3980/foodease-backend/services/paymentpoller"
	"github.com/MinhChien3980/foodease-backend/services/promo"
	"github.com/MinhChien3980/foodease-backend/services/wallet"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

func NewWebService(runStore mystore.Store[SagaRun], orders order.Service, recorder order.TransactionRecorder,
	ledger wallet.Ledger, promos promo.Registry, gateways *paymentgateway.Registry,
	poller *paymentpoller.Poller, publisher mypublisher.Publisher,
	nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	return &webService{
		logger:  mylog.New("ordersagaweb"),
		service: newService(runStore, orders, recorder, ledger, promos, gateways, poller, publisher, nower, uuider),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	// Checkout and wallet top-up entrypoints
	router.HandleFunc("/saga/checkout/{sessionUID}", s.startCheckoutPage()).Methods("POST")
	router.HandleFunc("/saga/topup/{sessionUID}", s.topUpPage()).Methods("POST")

	// Client SDK callback with the observed payment outcome
	router.HandleFunc("/saga/run/{runUID}/outcome", s.clientOutcomePage()).Methods("PUT")

	// Gateways redirect the shopper back to this endpoint after a hosted page
	router.HandleFunc("/saga/run/{runUID}/return", s.returnPage()).Methods("GET")

	// Providers push notifications here
	router.HandleFunc("/saga/webhook/{gateway}", s.webhookPage()).Methods("POST")

	router.HandleFunc("/saga/run/{runUID}", s.getRunPage()).Methods("GET")

	return s.service.CreateTopics(c)
}

func (s *webService) startCheckoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		sessionUID := mux.Vars(r)["sessionUID"]

		checkout, err := checkoutapi.NewFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		run, err := s.service.Start(c, StartCommand{
			SessionUID: sessionUID,
			UserUID:    r.Form.Get("userUid"),
			Gateway:    paymentgateway.Name(r.Form.Get("gateway")),
			Checkout:   checkout,
			BaseURL:    myhttp.HostnameWithScheme(r),
		})
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, run)
	}
}

func (s *webService) topUpPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		sessionUID := mux.Vars(r)["sessionUID"]

		err := r.ParseForm()
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		amount, err := strconv.ParseInt(r.Form.Get("amount"), 10, 64)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("invalid amount: %s", r.Form.Get("amount")))
			return
		}

		run, err := s.service.TopUp(c, TopUpCommand{
			SessionUID:    sessionUID,
			UserUID:       r.Form.Get("userUid"),
			Gateway:       paymentgateway.Name(r.Form.Get("gateway")),
			AmountInCents: amount,
			Currency:      r.Form.Get("currency"),
			ShopperEmail:  r.Form.Get("shopper.email"),
			BaseURL:       myhttp.HostnameWithScheme(r),
		})
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, run)
	}
}

type clientOutcomeRequest struct {
	Status         string `json:"status"`
	ExternalTxnUID string `json:"externalTxnUid"`
	Reason         string `json:"reason"`
}

// clientOutcomePage receives the outcome observed by the client-side SDK. A
// dismissed payment modal arrives here as a cancellation.
func (s *webService) clientOutcomePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		runUID := mux.Vars(r)["runUID"]

		req := clientOutcomeRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing outcome: %s", err)))
			return
		}

		status := paymentgateway.OutcomeStatus(req.Status)
		if !status.IsTerminal() && status != paymentgateway.OutcomePending {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("unknown outcome status %s", req.Status))
			return
		}

		run, err := s.service.Resolve(c, runUID, paymentgateway.Outcome{
			Status:         status,
			ExternalTxnUID: req.ExternalTxnUID,
			Reason:         req.Reason,
		})
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, run)
	}
}

// returnPage is where the shopper lands after a hosted payment page. A
// cancelled status resolves the run; anything else is informational, the
// definitive outcome arrives via the poller or a webhook.
func (s *webService) returnPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		runUID := mux.Vars(r)["runUID"]
		status := r.URL.Query().Get("status")

		if status == "cancelled" || status == "failed" {
			run, err := s.service.Resolve(c, runUID, paymentgateway.Cancelled("shopper returned with status "+status))
			if err != nil {
				errorWriter.WriteError(c, w, 1, err)
				return
			}
			errorWriter.Write(c, w, http.StatusOK, run)
			return
		}

		run, found, err := s.service.GetRun(c, runUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}
		if !found {
			errorWriter.WriteError(c, w, 3, myerrors.NewNotFoundErrorf("run with uid %s not found", runUID))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, run)
	}
}

func (s *webService) webhookPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		gateway := paymentgateway.Name(mux.Vars(r)["gateway"])

		classifier, err := s.service.gateways.GetWebhookClassifier(gateway)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(err))
			return
		}

		runUID, outcome, err := classifier.ClassifyWebhook(c, body)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		_, err = s.service.Resolve(c, runUID, outcome)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{})
	}
}

func (s *webService) getRunPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		runUID := mux.Vars(r)["runUID"]

		run, found, err := s.service.GetRun(c, runUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		if !found {
			errorWriter.WriteError(c, w, 2, myerrors.NewNotFoundErrorf("run with uid %s not found", runUID))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, run)
	}
}
