package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
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
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "classroom",
		Subsystem: "ai",
		Name:      "feedback_duration_seconds",
		Help:      "Duration of AI feedback draft requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom",
		Subsystem: "ai",
		Name:      "feedback_failures_total",
		Help:      "Number of AI feedback draft failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI drafter.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIDrafter implements Drafter against the OpenAI chat completion API.
type OpenAIDrafter struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIDrafter builds a new drafter using the provided configuration.
func NewOpenAIDrafter(cfg OpenAIConfig) (*OpenAIDrafter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIDrafter{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-classroom/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_drafter").Logger(),
	}, nil
}

// Provider names the backing service.
func (d *OpenAIDrafter) Provider() string {
	return "openai"
}

// Model returns the configured model name.
func (d *OpenAIDrafter) Model() string {
	return d.cfg.Model
}

// DraftFeedback asks the model for a score and feedback and parses the JSON reply.
func (d *OpenAIDrafter) DraftFeedback(parent context.Context, input FeedbackInput) (FeedbackDraft, error) {
	ctx, span := d.tracer.Start(parent, "openai.draft_feedback", trace.WithAttributes(
		attribute.String("model", d.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       d.cfg.Model,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: reviewerSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := d.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(d.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return FeedbackDraft{}, d.fail(span, fmt.Errorf("openai draft feedback: %w", err))
	}

	if len(resp.Choices) == 0 {
		return FeedbackDraft{}, d.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	draft, err := parseFeedbackResponse(strings.TrimSpace(resp.Choices[0].Message.Content), input.MaxScore)
	if err != nil {
		return FeedbackDraft{}, d.fail(span, err)
	}

	draft.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}
	d.logger.Debug().Int("total_tokens", resp.Usage.TotalTokens).Msg("feedback drafted")

	return draft, nil
}

func (d *OpenAIDrafter) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(d.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func reviewerSystemPrompt() string {
	return "You are a teaching assistant reviewing a student's assignment submission. Respond with a JSON object containing " +
		"score (a number between 0 and the maximum score) and feedback (constructive comments addressed to the student)."
}

func buildUserPrompt(input FeedbackInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Assignment\n")
	builder.WriteString(input.AssignmentTitle)
	builder.WriteString("\n\n## Instructions\n")
	builder.WriteString(input.Instructions)
	builder.WriteString("\n\n## Maximum Score\n")
	builder.WriteString(strconv.FormatFloat(input.MaxScore, 'f', -1, 64))
	builder.WriteString("\n\n## Submission\n")
	builder.WriteString(input.SubmissionText)
	if len(input.Links) > 0 {
		builder.WriteString("\n\n## Links\n")
		for _, link := range input.Links {
			builder.WriteString("- ")
			builder.WriteString(link)
			builder.WriteString("\n")
		}
	}
	if len(input.FileNames) > 0 {
		builder.WriteString("\n\n## Attached Files\n")
		for _, name := range input.FileNames {
			builder.WriteString("- ")
			builder.WriteString(name)
			builder.WriteString("\n")
		}
	}
	if input.PreviousComment != "" {
		builder.WriteString("\n\n## Previous Feedback\n")
		builder.WriteString(input.PreviousComment)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseFeedbackResponse(content string, maxScore float64) (FeedbackDraft, error) {
	type payload struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return FeedbackDraft{}, fmt.Errorf("parse feedback json: %w", err)
	}

	score := math.Max(data.Score, 0)
	if maxScore > 0 {
		score = math.Min(score, maxScore)
	}

	return FeedbackDraft{
		Score:    score,
		Feedback: strings.TrimSpace(data.Feedback),
	}, nil
}
