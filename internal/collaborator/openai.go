package collaborator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	oagc "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultChatModel          = "llama3-70b-8192"
	DefaultTranscriptionModel = "whisper-large-v3"
	DefaultOpenAIBaseURL      = "https://api.groq.com/openai/v1/"
)

// OpenAIConfig configura um cliente compatível com a API da OpenAI (Groq por padrão).
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	HTTPClient  *http.Client
	Model       string
	Temperature float64
	MaxTokens   int64
	Throttle    *Throttle
}

func newOpenAIClient(cfg OpenAIConfig) *oagc.Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(base),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return oagc.NewClient(opts...)
}

// OpenAIChat implementa ChatCompleter sobre /chat/completions.
type OpenAIChat struct {
	oac         *oagc.Client
	model       string
	temperature float64
	maxTokens   int64
	throttle    *Throttle
}

var _ ChatCompleter = (*OpenAIChat)(nil)

func NewOpenAIChat(cfg OpenAIConfig) *OpenAIChat {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &OpenAIChat{
		oac:         newOpenAIClient(cfg),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		throttle:    cfg.Throttle,
	}
}

// Complete envia o prompt como conteúdo string; modelos sem visão no Groq
// recusam a lista de partes que o SDK serializa por padrão.
func (c *OpenAIChat) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	resp, err := c.oac.Chat.Completions.New(ctx, oagc.ChatCompletionNewParams{
		Messages: oagc.F([]oagc.ChatCompletionMessageParamUnion{
			oagc.UserMessage(prompt),
		}),
		Model:       oagc.F(oagc.ChatModel(c.model)),
		Temperature: oagc.Float(c.temperature),
		MaxTokens:   oagc.Int(c.maxTokens),
	}, option.WithJSONSet("messages.0.content", prompt))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", describeOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAITranscriber implementa Transcriber sobre /audio/transcriptions.
type OpenAITranscriber struct {
	oac      *oagc.Client
	model    string
	throttle *Throttle
}

var _ Transcriber = (*OpenAITranscriber)(nil)

func NewOpenAITranscriber(cfg OpenAIConfig) *OpenAITranscriber {
	model := cfg.Model
	if model == "" {
		model = DefaultTranscriptionModel
	}
	return &OpenAITranscriber{
		oac:      newOpenAIClient(cfg),
		model:    model,
		throttle: cfg.Throttle,
	}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, f *os.File) (string, error) {
	if err := t.throttle.Wait(ctx); err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}

	resp, err := t.oac.Audio.Transcriptions.New(ctx, oagc.AudioTranscriptionNewParams{
		File:  oagc.F[io.Reader](f),
		Model: oagc.F(oagc.AudioModel(t.model)),
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", describeOpenAIError(err))
	}
	return resp.Text, nil
}

// describeOpenAIError mantém só status e mensagem do erro da API; o erro
// completo do SDK traz o corpo inteiro da resposta.
func describeOpenAIError(err error) error {
	var apiErr *oagc.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return fmt.Errorf("status %d: %s", apiErr.StatusCode, msg)
	}
	return err
}
