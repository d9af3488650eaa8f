package routes

import (
	"encoding/json"
	"net/http"

	"barrio-connector/internal/infra/handlers"
	"barrio-connector/internal/middleware"

	"github.com/gorilla/mux"
)

type Routes struct {
	Mux             *mux.Router
	InfobipHandlers *handlers.InfobipHandlers
	TwilioHandlers  *handlers.TwilioHandlers
	APIHandlers     *handlers.APIHandlers
	APIKey          string
}

func NewRoutes(mux *mux.Router, infobipHandlers *handlers.InfobipHandlers, twilioHandlers *handlers.TwilioHandlers, apiHandlers *handlers.APIHandlers, apiKey string) *Routes {
	return &Routes{Mux: mux, InfobipHandlers: infobipHandlers, TwilioHandlers: twilioHandlers, APIHandlers: apiHandlers, APIKey: apiKey}
}

func (r *Routes) Init() {
	r.Mux.HandleFunc("/webhook/infobip", r.InfobipHandlers.InfoBipWebhook).Methods(http.MethodPost)
	r.Mux.HandleFunc("/webhook/twilio", r.TwilioHandlers.TwilioWebhook).Methods(http.MethodPost)

	api := r.Mux.PathPrefix("/api").Subrouter()
	api.Use(middleware.BearerAuthMiddleware(r.APIKey))
	api.HandleFunc("/conversations/messages", r.APIHandlers.ProcessMessage).Methods(http.MethodPost)

	r.Mux.HandleFunc("/healthCheck", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods(http.MethodGet)
}
