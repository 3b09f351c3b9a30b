package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-digest-go/internal/cache"
	"inbox-digest-go/internal/mailbox"
	"inbox-digest-go/internal/metrics"
	"inbox-digest-go/internal/model"
)

// unreadableBody stands in for message content that could not be decoded,
// so one broken message never fails a whole page.
const unreadableBody = "(unreadable message)"

// chatWindow is how many of the most recent messages the chat answer
// draws on.
const chatWindow = 10

// Enricher produces LLM-derived text for an email body. Implementations
// degrade to fallback values instead of returning errors.
type Enricher interface {
	Summarize(ctx context.Context, content string) string
	Describe(ctx context.Context, content string) string
	Categorize(ctx context.Context, content string) string
	Chat(ctx context.Context, emailContext, userMessage string) string
}

// DigestService assembles pages of enriched email summaries and answers
// chat questions about recent mail. The summary cache is shared between
// both paths.
type DigestService struct {
	cache    *cache.SummaryCache
	enricher Enricher
	metrics  *metrics.Metrics
}

// NewDigestService creates a new digest service
func NewDigestService(summaries *cache.SummaryCache, enricher Enricher, m *metrics.Metrics) *DigestService {
	return &DigestService{
		cache:    summaries,
		enricher: enricher,
		metrics:  m,
	}
}

// GetPage returns the enriched summaries for one page of the mailbox,
// newest first, plus the cursor of the following page ("" when there is
// none).
//
// Cursors for page N can only be derived by walking the provider's token
// chain from the start, so any page past the first costs one extra
// warm-up listing of (N-1)*pageSize results. That O(N) cost is part of
// the observable pagination contract: page N always yields exactly the
// IDs a strictly sequential walk would produce.
func (s *DigestService) GetPage(ctx context.Context, mbox mailbox.Mailbox, page, pageSize int) ([]*model.EmailSummary, string, error) {
	start := time.Now()
	defer func() {
		s.metrics.PageAssemblyTime.Observe(time.Since(start).Seconds())
	}()

	cursor := ""
	if startIndex := (page - 1) * pageSize; startIndex > 0 {
		_, next, err := mbox.List(ctx, int64(startIndex), "")
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve cursor for page %d: %w", page, err)
		}
		cursor = next
	}

	ids, next, err := mbox.List(ctx, int64(pageSize), cursor)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list messages: %w", err)
	}

	summaries := make([]*model.EmailSummary, 0, len(ids))
	for _, id := range ids {
		if summary, ok := s.cache.Get(id); ok {
			summaries = append(summaries, summary)
			continue
		}

		summary, err := s.enrichMessage(ctx, mbox, id)
		if err != nil {
			return nil, "", err
		}
		s.cache.Put(id, summary)
		summaries = append(summaries, summary)
	}

	return summaries, next, nil
}

// Chat answers a free-form question about the user's 10 most recent
// messages. Cached descriptions are reused; missing ones are recomputed
// for the answer only and deliberately not written back to the cache,
// which only the page path populates.
func (s *DigestService) Chat(ctx context.Context, mbox mailbox.Mailbox, userMessage string) (string, error) {
	s.metrics.ChatRequests.Inc()

	ids, _, err := mbox.List(ctx, chatWindow, "")
	if err != nil {
		return "", fmt.Errorf("failed to list recent messages: %w", err)
	}

	descriptions := make([]string, 0, len(ids))
	for _, id := range ids {
		if summary, ok := s.cache.Get(id); ok {
			descriptions = append(descriptions, summary.Description)
			continue
		}

		msg, err := mbox.Get(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to get message %s: %w", id, err)
		}
		descriptions = append(descriptions, s.enricher.Describe(ctx, s.messageBody(msg)))
	}

	lines := make([]string, 0, len(descriptions))
	for _, d := range descriptions {
		lines = append(lines, "- "+d)
	}

	return s.enricher.Chat(ctx, strings.Join(lines, "\n"), userMessage), nil
}

// enrichMessage fetches one message and runs the full enrichment set on
// its body.
func (s *DigestService) enrichMessage(ctx context.Context, mbox mailbox.Mailbox, id string) (*model.EmailSummary, error) {
	msg, err := mbox.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	body := s.messageBody(msg)
	category := s.enricher.Categorize(ctx, body)

	return &model.EmailSummary{
		ID:          id,
		Subject:     s.enricher.Summarize(ctx, body),
		Description: s.enricher.Describe(ctx, body),
		From:        msg.GetHeader("From"),
		Category:    category,
		SentTime:    msg.GetHeader("Date"),
		Spooky:      model.Spooky(category),
	}, nil
}

// messageBody extracts the plain-text body, degrading to a placeholder
// for messages that cannot be decoded.
func (s *DigestService) messageBody(msg *mailbox.Message) string {
	body, err := msg.PlainText()
	if err != nil {
		logrus.Warnf("Failed to extract body of message %s: %v", msg.ID, err)
		return unreadableBody
	}
	return body
}
