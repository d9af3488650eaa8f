package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"barrio-connector/internal/domain/dto"
	"barrio-connector/internal/domain/entities"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
)

var _ Iservices.ISlotExtractor = (*LLMSlotExtractor)(nil)

var (
	extractorMaxTokens   = 1024
	extractorTemperature = float32(0)
)

// LLMSlotExtractor asks a chat model to fill the draft and answer with a
// {message, data, ready} JSON object.
type LLMSlotExtractor struct {
	ChatModel model.BaseChatModel
	Logger    *logger.Logger
	Timeout   time.Duration
}

func NewLLMSlotExtractor(chatModel model.BaseChatModel, logger *logger.Logger, timeout time.Duration) *LLMSlotExtractor {
	return &LLMSlotExtractor{ChatModel: chatModel, Logger: logger, Timeout: timeout}
}

// NewOpenAICompatibleChatModel builds the chat model behind the extractor.
// Claude is reached through its OpenAI-compatible endpoint via baseURL.
func NewOpenAICompatibleChatModel(ctx context.Context, baseURL, apiKey, modelName string, timeout time.Duration) (*openai.ChatModel, error) {
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		MaxTokens:   &extractorMaxTokens,
		Temperature: &extractorTemperature,
		Timeout:     timeout,
	})
}

func (th *LLMSlotExtractor) Extract(ctx context.Context, req Iservices.ExtractionRequest) (Iservices.ExtractionResult, error) {
	if th.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, th.Timeout)
		defer cancel()
	}

	started := time.Now()
	out, err := th.ChatModel.Generate(ctx, buildExtractionMessages(req))
	if err != nil {
		return Iservices.ExtractionResult{}, fmt.Errorf("slot extractor unavailable: %w", err)
	}
	if out == nil {
		return Iservices.ExtractionResult{}, errors.New("slot extractor returned no message")
	}

	th.Logger.Debug("Slot extractor answered", logrus.Fields{
		"latency_ms": time.Since(started).Milliseconds(),
		"chars":      len(out.Content),
	})

	return ParseExtraction(out.Content)
}

func buildExtractionMessages(req Iservices.ExtractionRequest) []*schema.Message {
	current := string(req.CurrentData)
	if strings.TrimSpace(current) == "" {
		current = "{}"
	}

	msgs := make([]*schema.Message, 0, len(req.History)+2)
	msgs = append(msgs, schema.SystemMessage(req.Instructions+"\n\nDatos actuales:\n"+current))
	for _, m := range req.History {
		switch m.Role {
		case entities.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case entities.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}
	return append(msgs, schema.UserMessage(req.Utterance))
}

// ParseExtraction reads the model answer. The JSON object may be wrapped in
// prose or a markdown fence; anything else is a *MalformedOutputError.
func ParseExtraction(raw string) (Iservices.ExtractionResult, error) {
	malformed := func(err error) (Iservices.ExtractionResult, error) {
		return Iservices.ExtractionResult{}, &Iservices.MalformedOutputError{Raw: raw, Err: err}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return malformed(errors.New("no JSON object found"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return malformed(err)
	}
	if _, ok := fields["message"]; !ok {
		return malformed(errors.New(`missing "message"`))
	}
	data, ok := fields["data"]
	if !ok {
		return malformed(errors.New(`missing "data"`))
	}
	if trimmed := strings.TrimSpace(string(data)); trimmed != "null" && !strings.HasPrefix(trimmed, "{") {
		return malformed(errors.New(`"data" is not an object`))
	}

	var payload dto.ExtractionPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return malformed(err)
	}
	if strings.TrimSpace(payload.Message) == "" {
		return malformed(errors.New(`empty "message"`))
	}

	return Iservices.ExtractionResult{
		Message: payload.Message,
		Data:    payload.Data,
		Ready:   payload.Ready,
		Raw:     raw,
	}, nil
}
