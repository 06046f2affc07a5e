package wallet

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MinhChien3980/foodease-backend/lib/mycontext"
	"github.com/MinhChien3980/foodease-backend/lib/myhttp"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

func NewWebService(service *service) *webService {
	return &webService{
		logger:  mylog.New("walletweb"),
		service: service,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/wallet/{userUID}", s.getBalancePage()).Methods("GET")
	router.HandleFunc("/wallet/{userUID}/adjustments", s.listAdjustmentsPage()).Methods("GET")
}

type balanceResponse struct {
	UserUID       string
	AmountInCents int64
}

func (s *webService) getBalancePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		userUID := mux.Vars(r)["userUID"]

		amount, err := s.service.GetBalance(c, userUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, balanceResponse{
			UserUID:       userUID,
			AmountInCents: amount,
		})
	}
}

func (s *webService) listAdjustmentsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		userUID := mux.Vars(r)["userUID"]

		adjustments, err := s.service.ListAdjustments(c, userUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, adjustments)
	}
}
