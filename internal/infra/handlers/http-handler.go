package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"barrio-connector/internal/domain/dto"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"
)

type InfobipHandlers struct {
	Logger         *logger.Logger
	ChannelService Iservices.IChannelService
}

func NewInfobipHandlers(logger *logger.Logger, channelService Iservices.IChannelService) *InfobipHandlers {
	return &InfobipHandlers{Logger: logger, ChannelService: channelService}
}

// InfoBipWebhook acknowledges the delivery right away and answers each
// message through the provider in the background.
func (th *InfobipHandlers) InfoBipWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	defer r.Body.Close()

	var webhookRequest *dto.InboundResponse
	if err := json.NewDecoder(r.Body).Decode(&webhookRequest); err != nil || webhookRequest == nil {
		writeError(w, http.StatusBadRequest, "Error to process JSON")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				th.Logger.Error(fmt.Sprintf("Recovered from panic: %v", rec))
			}
		}()
		th.ChannelService.WebhookService(ctx, webhookRequest)
	}()

	w.WriteHeader(http.StatusOK)
}
