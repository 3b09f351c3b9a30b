package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"inbox-digest-go/internal/metrics"
	"inbox-digest-go/internal/model"
)

// Fixed system instructions, one per operation.
const (
	summarizeInstruction  = "Summarize the main topic of this email in a casual, slightly funny way. Keep it under 10 words if possible, but include all important info. "
	describeInstruction   = "Describe the email in one slightly funny sentence, it is okay if the sentence is not complete, as introductory words are redundant. Include all important details in a casual manner, leave out redundant information, and never end on an incomplete sentence."
	categorizeInstruction = "Categorize this email as exactly one of the following: 'Advertisement', 'Work', 'Entertainment', 'Education', or 'Personal'. Use only these exact words."
	chatInstruction       = "You are an inbox digest assistant, you help users discuss their recent emails in a casual manner. You have access to descriptions of their 10 most recent emails. Keep your responses very brief but to the point, recognize the importance of each email and respond accordingly."
)

const (
	// maxPromptChars bounds the email content sent with each completion.
	maxPromptChars = 8000

	describeFallback = "Yo, I got this wild email. You gotta check it out!"
	chatFallback     = "I'm sorry, I'm having trouble processing your request right now. Can you try asking something else?"
)

// Config holds language-model client configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // override for tests
	Timeout time.Duration
}

// Client wraps the OpenAI chat-completions API with the three enrichment
// operations plus the chat answer call. Every operation degrades to a
// fallback value on failure; callers never see an enrichment error.
type Client struct {
	api     openai.Client
	model   openai.ChatModel
	metrics *metrics.Metrics
}

// NewClient creates a new enrichment client
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	return &Client{
		api:     openai.NewClient(opts...),
		model:   openai.ChatModel(cfg.Model),
		metrics: m,
	}
}

// Summarize produces a short, casual subject line for the email content.
// On failure it falls back to quoting the first six words.
func (c *Client) Summarize(ctx context.Context, content string) string {
	out, err := c.complete(ctx, summarizeInstruction, emailPrompt(content), 30, 0.8)
	if err != nil {
		c.fallback("summarize", err)
		return summarizeFallback(content)
	}
	return out
}

// Describe produces a one-sentence description of the email content.
// On failure it falls back to a canned sentence.
func (c *Client) Describe(ctx context.Context, content string) string {
	out, err := c.complete(ctx, describeInstruction, emailPrompt(content), 50, 0.9)
	if err != nil {
		c.fallback("describe", err)
		return describeFallback
	}
	return out
}

// Categorize classifies the email content into one of the fixed
// categories. Any out-of-set answer or failure maps to Personal.
func (c *Client) Categorize(ctx context.Context, content string) string {
	out, err := c.complete(ctx, categorizeInstruction, emailPrompt(content), 15, 0.3)
	if err != nil {
		c.fallback("categorize", err)
		return model.CategoryPersonal
	}
	if !model.ValidCategory(out) {
		return model.CategoryPersonal
	}
	return out
}

// Chat answers a free-form question given a bulleted block of recent
// email descriptions. On failure it falls back to a fixed apology.
func (c *Client) Chat(ctx context.Context, emailContext, userMessage string) string {
	prompt := fmt.Sprintf("Here are descriptions of my recent emails:\n%s\n\nUser question: %s", emailContext, userMessage)
	out, err := c.complete(ctx, chatInstruction, prompt, 150, 0.7)
	if err != nil {
		c.fallback("chat", err)
		return chatFallback
	}
	return out
}

// complete issues one chat-completion call.
func (c *Client) complete(ctx context.Context, instruction, user string, maxTokens int64, temperature float64) (string, error) {
	c.metrics.EnrichmentCalls.Inc()

	response, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instruction),
			openai.UserMessage(user),
		},
		Model:       c.model,
		MaxTokens:   openai.Int(maxTokens),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// fallback records a degraded operation. Invalid-request rejections are
// expected for oversized or odd content; anything else is a transient
// provider failure but still falls back so one bad message never fails a
// whole page.
func (c *Client) fallback(op string, err error) {
	c.metrics.EnrichmentFallbacks.Inc()

	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusBadRequest {
		logrus.Warnf("Invalid %s request, using fallback: %v", op, err)
		return
	}
	logrus.Errorf("Failed to %s email, using fallback: %v", op, err)
}

// summarizeFallback quotes the start of the email instead of summarizing
// it. The ellipsis is only appended when content was actually cut.
func summarizeFallback(content string) string {
	words := strings.Fields(content)
	if len(words) > 6 {
		return "I got an email saying: " + strings.Join(words[:6], " ") + "..."
	}
	return "I got an email saying: " + strings.Join(words, " ")
}

// emailPrompt builds the user message, truncating long bodies with a
// marker so the model knows content was cut.
func emailPrompt(content string) string {
	if utf8.RuneCountInString(content) > maxPromptChars {
		content = string([]rune(content)[:maxPromptChars]) + "..."
	}
	return fmt.Sprintf("Email content:\n\n%s", content)
}
