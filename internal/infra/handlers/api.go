package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"barrio-connector/internal/domain/dto"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"
)

// APIHandlers exposes the conversation engine to trusted backends that
// already know the store of the sender.
type APIHandlers struct {
	Logger *logger.Logger
	Engine Iservices.IConversationEngine
}

func NewAPIHandlers(logger *logger.Logger, engine Iservices.IConversationEngine) *APIHandlers {
	return &APIHandlers{Logger: logger, Engine: engine}
}

func (th *APIHandlers) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req dto.ProcessMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Error to process JSON")
		return
	}

	req.UserPhone = strings.TrimSpace(req.UserPhone)
	req.StoreID = strings.TrimSpace(req.StoreID)
	if req.UserPhone == "" || req.StoreID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "user_phone, store_id and message are required")
		return
	}

	reply := th.Engine.ProcessMessage(r.Context(), req.UserPhone, req.StoreID, req.Message)
	writeJSON(w, http.StatusOK, dto.ProcessMessageResponse{Reply: reply})
}
