package notification

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MinhChien3980/foodease-backend/lib/mycontext"
	"github.com/MinhChien3980/foodease-backend/lib/myhttp"
	"github.com/MinhChien3980/foodease-backend/lib/mylog"
	"github.com/MinhChien3980/foodease-backend/lib/mypubsub"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
	"github.com/MinhChien3980/foodease-backend/lib/myuuid"
	"github.com/MinhChien3980/foodease-backend/services/orderevents"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

func NewWebService(store mystore.Store[Notification], subscriber mypubsub.PubSub, nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	return &webService{
		logger:  mylog.New("notificationweb"),
		service: newService(store, subscriber, nower, uuider),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/notifications/{userUID}", s.listNotificationsPage()).Methods("GET")

	// Pubsub pushes order events to this endpoint
	router.HandleFunc("/notifications/event", s.handleEventEnvelope()).Methods("POST")

	return s.service.Subscribe(c)
}

func (s *webService) listNotificationsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		userUID := mux.Vars(r)["userUID"]

		notifications, err := s.service.ListForUser(c, userUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, notifications)
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := orderevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}
