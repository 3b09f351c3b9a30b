package service

import (
	"context"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-digest-go/internal/cache"
	"inbox-digest-go/internal/mailbox"
	"inbox-digest-go/internal/metrics"
	"inbox-digest-go/internal/model"
)

var testMetrics = metrics.New()

// listCall records one List invocation.
type listCall struct {
	max    int64
	cursor string
}

// fakeMailbox serves a fixed sequence of message IDs through emulated
// cursors (a cursor is the decimal start offset of the next page).
type fakeMailbox struct {
	ids       []string
	listCalls []listCall
	getCalls  []string
	bodies    map[string]string // optional raw base64 body override
}

func (f *fakeMailbox) List(ctx context.Context, max int64, cursor string) ([]string, string, error) {
	f.listCalls = append(f.listCalls, listCall{max: max, cursor: cursor})

	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	end := offset + int(max)
	if end > len(f.ids) {
		end = len(f.ids)
	}
	if offset >= len(f.ids) {
		return nil, "", nil
	}

	next := ""
	if end < len(f.ids) {
		next = strconv.Itoa(end)
	}
	return f.ids[offset:end], next, nil
}

func (f *fakeMailbox) Get(ctx context.Context, id string) (*mailbox.Message, error) {
	f.getCalls = append(f.getCalls, id)

	body := base64.RawURLEncoding.EncodeToString([]byte("hello from " + id))
	if override, ok := f.bodies[id]; ok {
		body = override
	}
	return &mailbox.Message{
		ID: id,
		Headers: []mailbox.Header{
			{Name: "From", Value: id + "@example.com"},
			{Name: "Date", Value: "2024-01-01T00:00:00Z"},
		},
		Body: body,
	}, nil
}

// fakeEnricher returns deterministic values and counts calls.
type fakeEnricher struct {
	category        string
	summarizeCalls  int
	describeCalls   int
	categorizeCalls int
	chatCalls       int
	lastBody        string
	lastContext     string
	lastQuestion    string
}

func (f *fakeEnricher) Summarize(ctx context.Context, content string) string {
	f.summarizeCalls++
	f.lastBody = content
	return "summary of: " + content
}

func (f *fakeEnricher) Describe(ctx context.Context, content string) string {
	f.describeCalls++
	f.lastBody = content
	return "description of: " + content
}

func (f *fakeEnricher) Categorize(ctx context.Context, content string) string {
	f.categorizeCalls++
	if f.category != "" {
		return f.category
	}
	return model.CategoryPersonal
}

func (f *fakeEnricher) Chat(ctx context.Context, emailContext, userMessage string) string {
	f.chatCalls++
	f.lastContext = emailContext
	f.lastQuestion = userMessage
	return "chat answer"
}

func messageIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "msg-" + strconv.Itoa(i)
	}
	return ids
}

func newTestService(enricher Enricher) (*DigestService, *cache.SummaryCache) {
	summaries := cache.New(1000, 24*time.Hour, testMetrics)
	return NewDigestService(summaries, enricher, testMetrics), summaries
}

func TestGetPageFirstPageNeedsNoWarmup(t *testing.T) {
	mbox := &fakeMailbox{ids: messageIDs(25)}
	enricher := &fakeEnricher{}
	svc, _ := newTestService(enricher)

	summaries, next, err := svc.GetPage(context.Background(), mbox, 1, 10)
	require.NoError(t, err)

	require.Len(t, mbox.listCalls, 1, "page 1 must not issue a warm-up listing")
	assert.Equal(t, listCall{max: 10, cursor: ""}, mbox.listCalls[0])
	assert.Len(t, summaries, 10)
	assert.Equal(t, "10", next)
}

func TestGetPageThreeIssuesOneWarmup(t *testing.T) {
	mbox := &fakeMailbox{ids: messageIDs(40)}
	enricher := &fakeEnricher{}
	svc, _ := newTestService(enricher)

	summaries, _, err := svc.GetPage(context.Background(), mbox, 3, 10)
	require.NoError(t, err)

	require.Len(t, mbox.listCalls, 2)
	assert.Equal(t, listCall{max: 20, cursor: ""}, mbox.listCalls[0], "warm-up lists (page-1)*pageSize results")
	assert.Equal(t, listCall{max: 10, cursor: "20"}, mbox.listCalls[1])

	// The page holds exactly the IDs a sequential walk would produce.
	require.Len(t, summaries, 10)
	assert.Equal(t, "msg-20", summaries[0].ID)
	assert.Equal(t, "msg-29", summaries[9].ID)
}

func TestGetPageAssemblesSummary(t *testing.T) {
	mbox := &fakeMailbox{ids: messageIDs(1)}
	enricher := &fakeEnricher{category: model.CategoryWork}
	svc, _ := newTestService(enricher)

	summaries, next, err := svc.GetPage(context.Background(), mbox, 1, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "msg-0", s.ID)
	assert.Equal(t, "summary of: hello from msg-0", s.Subject)
	assert.Equal(t, "description of: hello from msg-0", s.Description)
	assert.Equal(t, "msg-0@example.com", s.From)
	assert.Equal(t, model.CategoryWork, s.Category)
	assert.Equal(t, "2024-01-01T00:00:00Z", s.SentTime)
	assert.True(t, s.Spooky)
	assert.Equal(t, "", next)
}

func TestSpookyOnlyForWorkAndEducation(t *testing.T) {
	for _, tc := range []struct {
		category string
		spooky   bool
	}{
		{model.CategoryWork, true},
		{model.CategoryEducation, true},
		{model.CategoryAdvertisement, false},
		{model.CategoryEntertainment, false},
		{model.CategoryPersonal, false},
	} {
		mbox := &fakeMailbox{ids: messageIDs(1)}
		svc, _ := newTestService(&fakeEnricher{category: tc.category})

		summaries, _, err := svc.GetPage(context.Background(), mbox, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, tc.spooky, summaries[0].Spooky, "category %s", tc.category)
	}
}

func TestGetPageCacheHitSuppressesEnrichment(t *testing.T) {
	mbox := &fakeMailbox{ids: messageIDs(10)}
	enricher := &fakeEnricher{}
	svc, _ := newTestService(enricher)

	first, _, err := svc.GetPage(context.Background(), mbox, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, enricher.summarizeCalls)
	assert.Len(t, mbox.getCalls, 10)

	second, _, err := svc.GetPage(context.Background(), mbox, 1, 10)
	require.NoError(t, err)

	// No further provider or LLM calls, and the identical values.
	assert.Equal(t, 10, enricher.summarizeCalls)
	assert.Equal(t, 10, enricher.describeCalls)
	assert.Equal(t, 10, enricher.categorizeCalls)
	assert.Len(t, mbox.getCalls, 10)
	for i := range first {
		assert.Same(t, first[i], second[i])
	}
}

func TestGetPageUnreadableBodyUsesPlaceholder(t *testing.T) {
	mbox := &fakeMailbox{
		ids:    []string{"bad"},
		bodies: map[string]string{"bad": "!!! not base64 !!!"},
	}
	enricher := &fakeEnricher{}
	svc, _ := newTestService(enricher)

	summaries, _, err := svc.GetPage(context.Background(), mbox, 1, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, unreadableBody, enricher.lastBody)
}

func TestChatBuildsContextFromDescriptions(t *testing.T) {
	mbox := &fakeMailbox{ids: messageIDs(2)}
	enricher := &fakeEnricher{}
	svc, _ := newTestService(enricher)

	answer, err := svc.Chat(context.Background(), mbox, "anything urgent?")
	require.NoError(t, err)

	assert.Equal(t, "chat answer", answer)
	assert.Equal(t, "anything urgent?", enricher.lastQuestion)
	assert.Equal(t, "- description of: hello from msg-0\n- description of: hello from msg-1", enricher.lastContext)
	require.Len(t, mbox.listCalls, 1)
	assert.Equal(t, listCall{max: chatWindow, cursor: ""}, mbox.listCalls[0])
}

func TestChatDoesNotPopulateCache(t *testing.T) {
	mbox := &fakeMailbox{ids: messageIDs(3)}
	enricher := &fakeEnricher{}
	svc, summaries := newTestService(enricher)

	_, err := svc.Chat(context.Background(), mbox, "hi")
	require.NoError(t, err)
	assert.Equal(t, 3, enricher.describeCalls)
	assert.Equal(t, 0, summaries.Len())

	// A second chat recomputes every description again.
	_, err = svc.Chat(context.Background(), mbox, "hi again")
	require.NoError(t, err)
	assert.Equal(t, 6, enricher.describeCalls)
}

func TestChatReusesCachedDescriptions(t *testing.T) {
	mbox := &fakeMailbox{ids: messageIDs(3)}
	enricher := &fakeEnricher{}
	svc, _ := newTestService(enricher)

	// A page load populates the cache for all three messages.
	_, _, err := svc.GetPage(context.Background(), mbox, 1, 10)
	require.NoError(t, err)
	describeAfterPage := enricher.describeCalls

	_, err = svc.Chat(context.Background(), mbox, "hello")
	require.NoError(t, err)

	assert.Equal(t, describeAfterPage, enricher.describeCalls, "cached descriptions must not be recomputed")
	assert.Contains(t, enricher.lastContext, "- description of: hello from msg-0")
}
