package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

var _ Iservices.IConversationEngine = (*ConversationEngine)(nil)

const (
	ReplyHelp = "Puedo registrar tus ventas y tus gastos.\n" +
		"- Para una venta escribe algo como: \"vendí 2 aguas a Juan por $2\".\n" +
		"- Para un gasto: \"gasto de luz por $50\".\n" +
		"Cuando tenga todos los datos te pediré confirmar con SI.\n" +
		"Escribe CANCELAR para descartar el registro en curso o AYUDA para ver este mensaje."
	ReplyAskIntent          = "No entendí si quieres registrar una venta o un gasto. Escribe \"venta\", \"gasto\" o AYUDA."
	ReplyCancelled          = "Listo, cancelé el registro. Cuando quieras empezamos de nuevo."
	ReplyExtractorDown      = "Lo siento, no pude procesar tu mensaje en este momento. Por favor intenta de nuevo en unos segundos."
	ReplyRetry              = "Tuvimos un problema al guardar tu mensaje. Por favor envíalo de nuevo."
	ReplyBusy               = "Todavía estoy procesando tu mensaje anterior. Espera un momento y vuelve a intentarlo."
	ReplyCommitFailed       = "No pude completar el registro. Responde SI para intentarlo de nuevo o corrige los datos."
	ReplyCommitMissingData  = "Faltan datos para completar el registro: %s. Envíame lo que falta y vuelve a confirmar."
	replyStillMissing       = "Aún me falta: %s."
	replyTotalMismatch      = "El total %s no coincide con la suma de los productos (%s). ¿Cuál es el total correcto?"
	replyMissingSeparator   = ", "
	conversationLockPrefix  = "conversation:"
	conversationLockTimeout = 30 * time.Second
)

var slotLabels = map[string]string{
	"products":       "los productos",
	"customer":       "el cliente",
	"payment_method": "el método de pago",
	"paid":           "si ya se pagó",
	"total":          "el total",
	"concept":        "el concepto",
	"amount":         "el monto",
	"supplier":       "el proveedor",
	"category":       "la categoría",
}

// ConversationEngine runs the per-turn state machine of a conversation.
//
// Turns for the same (user_phone, store_id) are serialized through Locker and
// every write is a version compare-and-swap, so concurrent deliveries of the
// same webhook can neither fork a conversation nor lose a slot update.
type ConversationEngine struct {
	Logger        *logger.Logger
	Conversations ports.IConversationRepository
	Classifier    Iservices.IIntentClassifier
	Extractor     Iservices.ISlotExtractor
	Committer     Iservices.ITransactionCommitter
	Locker        Iservices.ILocker
	Policy        *SessionPolicy
	Instructions  *InstructionBuilder
	Now           func() time.Time
}

func NewConversationEngine(
	logger *logger.Logger,
	conversations ports.IConversationRepository,
	classifier Iservices.IIntentClassifier,
	extractor Iservices.ISlotExtractor,
	committer Iservices.ITransactionCommitter,
	locker Iservices.ILocker,
	policy *SessionPolicy,
	instructions *InstructionBuilder,
) *ConversationEngine {
	return &ConversationEngine{
		Logger:        logger,
		Conversations: conversations,
		Classifier:    classifier,
		Extractor:     extractor,
		Committer:     committer,
		Locker:        locker,
		Policy:        policy,
		Instructions:  instructions,
		Now:           time.Now,
	}
}

// ProcessMessage handles one inbound utterance and returns the reply to send.
// It never fails: every error kind is turned into a reply here.
func (th *ConversationEngine) ProcessMessage(ctx context.Context, userPhone, storeID, utterance string) string {
	fields := logrus.Fields{"user_phone": userPhone, "store_id": storeID}

	cmd := ParseCommand(utterance)
	if cmd == CommandHelp {
		th.Logger.Info("Help requested", fields)
		return ReplyHelp
	}

	lockCtx, cancel := context.WithTimeout(ctx, conversationLockTimeout)
	defer cancel()
	unlock, err := th.Locker.Lock(lockCtx, conversationLockPrefix+userPhone+":"+storeID)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to lock conversation: %v", err), fields)
		return ReplyBusy
	}
	defer unlock()

	if cmd == CommandCancel {
		return th.cancel(ctx, userPhone, storeID, fields)
	}

	conv, err := th.getOrCreate(ctx, userPhone, storeID)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to load conversation: %v", err), fields)
		return ReplyRetry
	}

	fields["conversation_id"] = conv.ID.Hex()
	fields["state"] = conv.State()
	th.Logger.Info("Processing conversation turn", fields)

	switch conv.State() {
	case entities.StateIntentPending:
		return th.handleIntentPending(ctx, conv, utterance, fields)
	case entities.StateReadyForConfirmation:
		if cmd == CommandConfirm {
			return th.confirm(ctx, conv, utterance, fields)
		}
	}
	return th.fillSlots(ctx, conv, utterance, fields)
}

func (th *ConversationEngine) getOrCreate(ctx context.Context, userPhone, storeID string) (*entities.Conversation, error) {
	now := th.Now()
	conv, err := th.Conversations.FindActive(ctx, userPhone, storeID, th.Policy.Cutoff(now))
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}
	if err == nil && th.Policy.IsFresh(conv, now) {
		return conv, nil
	}

	conv = entities.NewConversation(userPhone, storeID, now)
	if err := th.Conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (th *ConversationEngine) cancel(ctx context.Context, userPhone, storeID string, fields logrus.Fields) string {
	conv, err := th.Conversations.FindActive(ctx, userPhone, storeID, th.Policy.Cutoff(th.Now()))
	if errors.Is(err, ports.ErrNotFound) {
		th.Logger.Info("Cancel requested without an active conversation", fields)
		return ReplyCancelled
	}
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to load conversation to cancel: %v", err), fields)
		return ReplyRetry
	}

	fields["conversation_id"] = conv.ID.Hex()
	fields["state"] = conv.State()
	if err := th.Conversations.UpdateStatus(ctx, conv, entities.StatusCancelled); err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to cancel conversation: %v", err), fields)
		return ReplyRetry
	}

	th.Logger.Info("Conversation cancelled", fields)
	return ReplyCancelled
}

func (th *ConversationEngine) handleIntentPending(ctx context.Context, conv *entities.Conversation, utterance string, fields logrus.Fields) string {
	intent := th.Classifier.Classify(utterance)
	if intent == entities.IntentNone {
		th.appendTurn(conv, utterance, ReplyAskIntent)
		if err := th.Conversations.Save(ctx, conv); err != nil {
			th.Logger.Error(fmt.Sprintf("Failed to save conversation: %v", err), fields)
			return saveFailureReply(err)
		}
		return ReplyAskIntent
	}

	conv.Intent = intent
	conv.Data = emptyDraft(intent)
	if err := th.Conversations.Save(ctx, conv); err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to save conversation intent: %v", err), fields)
		return saveFailureReply(err)
	}

	fields["intent"] = intent
	fields["state"] = conv.State()
	th.Logger.Info("Intent classified", fields)
	return th.fillSlots(ctx, conv, utterance, fields)
}

func (th *ConversationEngine) fillSlots(ctx context.Context, conv *entities.Conversation, utterance string, fields logrus.Fields) string {
	current, err := draftJSON(conv)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to encode current draft: %v", err), fields)
		return ReplyRetry
	}

	res, err := th.Extractor.Extract(ctx, Iservices.ExtractionRequest{
		Instructions: th.Instructions.Build(ctx, conv.StoreID, conv.Intent),
		History:      conv.Messages,
		CurrentData:  current,
		Utterance:    utterance,
	})

	var malformed *Iservices.MalformedOutputError
	if errors.As(err, &malformed) {
		th.Logger.Warn(fmt.Sprintf("Slot extractor returned malformed output: %v", err), fields)
		if strings.TrimSpace(malformed.Raw) == "" {
			return ReplyExtractorDown
		}
		return malformed.Raw
	}
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Slot extractor failed: %v", err), fields)
		return ReplyExtractorDown
	}

	draft, reply, err := applyExtraction(conv.Intent, res)
	if err != nil {
		th.Logger.Warn(fmt.Sprintf("Slot extractor data does not fit the draft: %v", err), fields)
		return res.Raw
	}

	conv.Data = draft
	th.appendTurn(conv, utterance, reply)
	if err := th.Conversations.Save(ctx, conv); err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to save conversation: %v", err), fields)
		return saveFailureReply(err)
	}

	fields["state"] = conv.State()
	fields["ready"] = draft.Ready
	th.Logger.Info("Draft updated", fields)
	return reply
}

func (th *ConversationEngine) confirm(ctx context.Context, conv *entities.Conversation, utterance string, fields logrus.Fields) string {
	result, err := th.Committer.Commit(ctx, conv)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Commit failed, some records may have been written: %v", err), fields)
		th.appendTurn(conv, utterance, ReplyCommitFailed)
		if err := th.Conversations.Save(ctx, conv); err != nil {
			th.Logger.Error(fmt.Sprintf("Failed to save conversation after commit failure: %v", err), fields)
		}
		return ReplyCommitFailed
	}

	th.appendTurn(conv, utterance, result.Message)
	if !result.Success {
		th.Logger.Warn("Commit preconditions not met", fields)
		if err := th.Conversations.Save(ctx, conv); err != nil {
			th.Logger.Error(fmt.Sprintf("Failed to save conversation: %v", err), fields)
		}
		return result.Message
	}

	conv.Status = entities.StatusCompleted
	if err := th.Conversations.Save(ctx, conv); err != nil {
		// The records exist; a repeated confirmation is answered from the commit key.
		th.Logger.Error(fmt.Sprintf("Committed but failed to complete conversation: %v", err), fields)
		return result.Message
	}

	fields["state"] = conv.State()
	th.Logger.Info("Conversation committed", fields)
	return result.Message
}

func (th *ConversationEngine) appendTurn(conv *entities.Conversation, utterance, reply string) {
	now := th.Now()
	conv.AppendMessage(entities.RoleUser, utterance, now)
	conv.AppendMessage(entities.RoleAssistant, reply, now)
}

func saveFailureReply(err error) string {
	if errors.Is(err, ports.ErrVersionConflict) {
		return ReplyBusy
	}
	return ReplyRetry
}

func emptyDraft(intent entities.Intent) entities.Draft {
	switch intent {
	case entities.IntentSale:
		return entities.Draft{Sale: &entities.SaleDraft{}}
	case entities.IntentExpense:
		return entities.Draft{Expense: &entities.ExpenseDraft{}}
	}
	return entities.Draft{}
}

// draftJSON encodes the draft of the conversation intent as the extractor sees it.
func draftJSON(conv *entities.Conversation) (json.RawMessage, error) {
	var v any
	switch {
	case conv.Data.Sale != nil:
		v = conv.Data.Sale
	case conv.Data.Expense != nil:
		v = conv.Data.Expense
	default:
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(v)
}

// applyExtraction decodes the extractor data into the intent draft, replacing
// the previous one, and downgrades ready when the draft cannot be confirmed.
func applyExtraction(intent entities.Intent, res Iservices.ExtractionResult) (entities.Draft, string, error) {
	data := bytes.TrimSpace(res.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = []byte("{}")
	}

	var (
		draft   entities.Draft
		missing []string
		notes   []string
	)
	switch intent {
	case entities.IntentSale:
		sale := &entities.SaleDraft{}
		if err := json.Unmarshal(data, sale); err != nil {
			return entities.Draft{}, "", fmt.Errorf("decode sale draft: %w", err)
		}
		draft.Sale = sale
		missing = sale.Missing()
		if len(missing) == 0 && sale.Inconsistency() != "" {
			sum, _ := sale.LinesTotal()
			notes = append(notes, fmt.Sprintf(replyTotalMismatch, sale.Total.Money(), sum.StringFixed(2)))
		}
	case entities.IntentExpense:
		expense := &entities.ExpenseDraft{}
		if err := json.Unmarshal(data, expense); err != nil {
			return entities.Draft{}, "", fmt.Errorf("decode expense draft: %w", err)
		}
		draft.Expense = expense
		missing = expense.Missing()
	default:
		return entities.Draft{}, "", errors.New("conversation has no intent")
	}

	reply := res.Message
	draft.Ready = res.Ready && len(missing) == 0 && len(notes) == 0
	if res.Ready && !draft.Ready {
		if len(missing) > 0 {
			notes = append(notes, fmt.Sprintf(replyStillMissing, slotList(missing)))
		}
		reply = strings.Join(append([]string{reply}, notes...), "\n\n")
	}
	return draft, reply, nil
}

func slotList(slots []string) string {
	labels := make([]string, 0, len(slots))
	for _, s := range slots {
		if l, ok := slotLabels[s]; ok {
			labels = append(labels, l)
		} else {
			labels = append(labels, s)
		}
	}
	return strings.Join(labels, replyMissingSeparator)
}
