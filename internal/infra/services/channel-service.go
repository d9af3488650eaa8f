package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"barrio-connector/internal/domain/dto"
	ports "barrio-connector/internal/domain/interfaces/repository"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"
	"barrio-connector/internal/infra/provider"

	"github.com/sirupsen/logrus"
)

var _ Iservices.IChannelService = (*ChannelService)(nil)

const (
	ReplyNotRegistered = "Este número no está asociado a ninguna tienda. Pide al administrador de tu tienda que te registre."
	ReplyTextOnly      = "Por ahora solo entiendo mensajes de texto. Escríbeme lo que quieres registrar."
)

type ChannelService struct {
	Logger           *logger.Logger
	Engine           Iservices.IConversationEngine
	StoreUsers       ports.IStoreUserRepository
	WhatsAppProvider provider.IWhatsAppProvider
}

func NewChannelService(logger *logger.Logger, engine Iservices.IConversationEngine, storeUsers ports.IStoreUserRepository, whatsAppProvider provider.IWhatsAppProvider) *ChannelService {
	return &ChannelService{Logger: logger, Engine: engine, StoreUsers: storeUsers, WhatsAppProvider: whatsAppProvider}
}

// NormalizePhone keeps only the digits of a provider address such as
// "whatsapp:+52 1 55 1234 5678".
func NormalizePhone(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:")
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
}

func (th *ChannelService) Converse(ctx context.Context, senderPhone, utterance string) string {
	if strings.TrimSpace(utterance) == "" {
		return ReplyTextOnly
	}
	phone := NormalizePhone(senderPhone)

	user, err := th.StoreUsers.FindByPhone(ctx, phone)
	if errors.Is(err, ports.ErrNotFound) {
		th.Logger.Warn("Message from unregistered number", logrus.Fields{"user_phone": phone})
		return ReplyNotRegistered
	}
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to resolve store for %s: %v", phone, err))
		return ReplyRetry
	}

	return th.Engine.ProcessMessage(ctx, phone, user.StoreID, utterance)
}

func (th *ChannelService) HandleInbound(ctx context.Context, senderPhone, utterance string) {
	reply := th.Converse(ctx, senderPhone, utterance)
	th.send(ctx, senderPhone, reply)
}

func (th *ChannelService) WebhookService(ctx context.Context, webhookDto *dto.InboundResponse) {
	if webhookDto == nil {
		return
	}

	for _, result := range webhookDto.Results {
		if result.Message.Type != "TEXT" || strings.TrimSpace(result.Message.Text) == "" {
			th.Logger.Warn(fmt.Sprintf("Unavailable message type %s", result.Message.Type), logrus.Fields{"message_id": result.MessageID})
			th.send(ctx, result.From, ReplyTextOnly)
			continue
		}
		th.HandleInbound(ctx, result.From, result.Message.Text)
	}
}

func (th *ChannelService) send(ctx context.Context, to, message string) {
	if err := th.WhatsAppProvider.SendTextMessage(ctx, to, message); err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to send WhatsApp message to %s: %s", to, err.Error()))
	}
}
