package mailbox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestGetHeader(t *testing.T) {
	msg := &Message{
		Headers: []Header{
			{Name: "From", Value: "a@b.com"},
			{Name: "Date", Value: "2024-01-01T00:00:00Z"},
			{Name: "From", Value: "second@b.com"},
		},
	}

	// First exact match wins.
	assert.Equal(t, "a@b.com", msg.GetHeader("From"))
	assert.Equal(t, "2024-01-01T00:00:00Z", msg.GetHeader("Date"))

	// Matching is case-sensitive; absent headers yield "".
	assert.Equal(t, "", msg.GetHeader("from"))
	assert.Equal(t, "", msg.GetHeader("Subject"))
}

func TestPlainTextPrefersTextPlainPart(t *testing.T) {
	msg := &Message{
		Body: encode("top-level body"),
		Parts: []Part{
			{MimeType: "text/html", Body: encode("<p>html</p>")},
			{MimeType: "text/plain", Body: encode("plain text wins")},
		},
	}

	text, err := msg.PlainText()
	require.NoError(t, err)
	assert.Equal(t, "plain text wins", text)
}

func TestPlainTextFallsBackToTopLevelBody(t *testing.T) {
	msg := &Message{
		Body: encode("top-level body"),
		Parts: []Part{
			{MimeType: "text/html", Body: encode("<p>html only</p>")},
		},
	}

	text, err := msg.PlainText()
	require.NoError(t, err)
	assert.Equal(t, "top-level body", text)
}

func TestPlainTextWithoutParts(t *testing.T) {
	msg := &Message{Body: encode("flat message")}

	text, err := msg.PlainText()
	require.NoError(t, err)
	assert.Equal(t, "flat message", text)
}

func TestPlainTextTruncates(t *testing.T) {
	long := strings.Repeat("x", 5000)
	msg := &Message{
		Parts: []Part{{MimeType: "text/plain", Body: encode(long)}},
	}

	text, err := msg.PlainText()
	require.NoError(t, err)
	assert.Len(t, text, 4000)
}

func TestPlainTextAcceptsPaddedBase64(t *testing.T) {
	msg := &Message{Body: base64.URLEncoding.EncodeToString([]byte("padded payload"))}

	text, err := msg.PlainText()
	require.NoError(t, err)
	assert.Equal(t, "padded payload", text)
}

func TestPlainTextInvalidBase64(t *testing.T) {
	msg := &Message{Body: "!!! not base64 !!!"}

	_, err := msg.PlainText()
	assert.Error(t, err)
}

func TestPlainTextInvalidUTF8(t *testing.T) {
	msg := &Message{Body: base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd})}

	_, err := msg.PlainText()
	assert.Error(t, err)
}

func TestMeetingMessageScenario(t *testing.T) {
	msg := &Message{
		ID: "msg-1",
		Headers: []Header{
			{Name: "From", Value: "a@b.com"},
			{Name: "Date", Value: "2024-01-01T00:00:00Z"},
		},
		Parts: []Part{
			{MimeType: "text/plain", Body: encode("Meeting moved to 3pm tomorrow, don't be late!")},
		},
	}

	assert.Equal(t, "a@b.com", msg.GetHeader("From"))
	assert.Equal(t, "2024-01-01T00:00:00Z", msg.GetHeader("Date"))

	text, err := msg.PlainText()
	require.NoError(t, err)
	assert.Equal(t, "Meeting moved to 3pm tomorrow, don't be late!", text)
}
