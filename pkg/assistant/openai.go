package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	assistantDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rentease",
		Subsystem: "assistant",
		Name:      "completion_duration_seconds",
		Help:      "Duration of assistant completion requests",
	}, []string{"model"})

	assistantFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rentease",
		Subsystem: "assistant",
		Name:      "completion_failures_total",
		Help:      "Number of assistant completion failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIProvider implements Provider against the OpenAI chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIProvider builds a provider using the given configuration.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/rentease/rentease-api/pkg/assistant/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIProvider{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Complete sends the conversation to OpenAI and returns the reply text.
func (p *OpenAIProvider) Complete(parent context.Context, system string, messages []Message) (string, error) {
	ctx, span := p.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", p.cfg.Model),
	))
	defer span.End()

	chat := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chat = append(chat, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		chat = append(chat, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Messages:    chat,
	})
	assistantDuration.WithLabelValues(p.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		assistantFailures.WithLabelValues(p.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai complete: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		assistantFailures.WithLabelValues(p.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		err := fmt.Errorf("empty reply from openai")
		assistantFailures.WithLabelValues(p.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	p.logger.Debug().Str("model", p.cfg.Model).Int("messages", len(messages)).Msg("assistant completion ok")

	return reply, nil
}
