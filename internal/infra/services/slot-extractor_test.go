package services

import (
	"context"
	"errors"
	"testing"

	"barrio-connector/internal/domain/entities"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply string
	err   error
	in    []*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.in = in
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func TestParseExtraction(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		res, err := ParseExtraction(`{"message":"¿Cómo pagó?","data":{"customer":"Juan"},"ready":false}`)
		require.NoError(t, err)
		assert.Equal(t, "¿Cómo pagó?", res.Message)
		assert.JSONEq(t, `{"customer":"Juan"}`, string(res.Data))
		assert.False(t, res.Ready)
	})

	t.Run("fenced with prose", func(t *testing.T) {
		raw := "Claro:\n```json\n{\"message\":\"Listo\",\"data\":{},\"ready\":true}\n```"
		res, err := ParseExtraction(raw)
		require.NoError(t, err)
		assert.Equal(t, "Listo", res.Message)
		assert.True(t, res.Ready)
		assert.Equal(t, raw, res.Raw)
	})

	malformed := map[string]string{
		"no json":         "Lo siento, no entendí.",
		"broken json":     `{"message": "hola", "data": {`,
		"missing data":    `{"message":"hola","ready":false}`,
		"missing message": `{"data":{},"ready":false}`,
		"data not object": `{"message":"hola","data":"x","ready":false}`,
		"empty message":   `{"message":"  ","data":{},"ready":false}`,
	}
	for name, raw := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := ParseExtraction(raw)
			var target *Iservices.MalformedOutputError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, raw, target.Raw)
		})
	}
}

func TestLLMSlotExtractor_Extract(t *testing.T) {
	chat := &fakeChatModel{reply: `{"message":"¿Cuánto?","data":{"concept":"luz"},"ready":false}`}
	extractor := NewLLMSlotExtractor(chat, logger.NewDiscardLogger(), 0)

	res, err := extractor.Extract(context.Background(), Iservices.ExtractionRequest{
		Instructions: "registra un gasto",
		History: []entities.Message{
			{Role: entities.RoleUser, Content: "gasto de luz"},
			{Role: entities.RoleAssistant, Content: "¿Cuánto fue?"},
		},
		CurrentData: []byte(`{"concept":"luz"}`),
		Utterance:   "50",
	})
	require.NoError(t, err)
	assert.Equal(t, "¿Cuánto?", res.Message)

	require.Len(t, chat.in, 4)
	assert.Equal(t, schema.System, chat.in[0].Role)
	assert.Contains(t, chat.in[0].Content, "registra un gasto")
	assert.Contains(t, chat.in[0].Content, `{"concept":"luz"}`)
	assert.Equal(t, schema.User, chat.in[1].Role)
	assert.Equal(t, schema.Assistant, chat.in[2].Role)
	assert.Equal(t, "50", chat.in[3].Content)
}

func TestLLMSlotExtractor_Unavailable(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("429 too many requests")}
	extractor := NewLLMSlotExtractor(chat, logger.NewDiscardLogger(), 0)

	_, err := extractor.Extract(context.Background(), Iservices.ExtractionRequest{Utterance: "hola"})
	require.Error(t, err)

	var malformed *Iservices.MalformedOutputError
	assert.False(t, errors.As(err, &malformed))
}

func TestBuildExtractionMessages_EmptyData(t *testing.T) {
	msgs := buildExtractionMessages(Iservices.ExtractionRequest{Instructions: "x", Utterance: "hola"})
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "{}")
}
