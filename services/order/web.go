package order

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MinhChien3980/foodease-backend/lib/mycontext"
	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
	"github.com/MinhChien3980/foodease-backend/lib/myhttp"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

func NewWebService(service *service) *webService {
	return &webService{
		logger:  mylog.New("orderweb"),
		service: service,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/order/{orderUID}", s.getOrderPage()).Methods("GET")
	router.HandleFunc("/order/{orderUID}/transactions", s.listTransactionsPage()).Methods("GET")
	router.HandleFunc("/user/{userUID}/orders", s.listOrdersPage()).Methods("GET")
}

func (s *webService) getOrderPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		orderUID := mux.Vars(r)["orderUID"]

		order, found, err := s.service.GetOrder(c, orderUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		if !found {
			errorWriter.WriteError(c, w, 2, myerrors.NewNotFoundErrorf("order with uid %s not found", orderUID))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, order)
	}
}

func (s *webService) listTransactionsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		orderUID := mux.Vars(r)["orderUID"]

		txns, err := s.service.ListTransactions(c, orderUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, txns)
	}
}

func (s *webService) listOrdersPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		userUID := mux.Vars(r)["userUID"]

		orders, err := s.service.ListOrders(c, userUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, orders)
	}
}
