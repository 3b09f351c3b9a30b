package mailbox

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxBodyChars bounds the plain-text body handed to enrichment.
const maxBodyChars = 4000

// Header is a single message header. Header order is preserved as the
// provider returned it.
type Header struct {
	Name  string
	Value string
}

// Part is one MIME part of a multipart message. Body carries the part
// payload in URL-safe base64, as the Gmail API transports it.
type Part struct {
	MimeType string
	Body     string
}

// Message is the provider-native representation of one email: an ordered
// header list and either a flat body payload or a list of MIME parts.
// Messages are immutable once fetched.
type Message struct {
	ID      string
	Headers []Header
	Body    string
	Parts   []Part
}

// GetHeader returns the value of the first header whose name matches
// exactly, or "" if the message has no such header.
func (m *Message) GetHeader(name string) string {
	for _, h := range m.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// PlainText extracts the readable body of the message. For multipart
// messages the first "text/plain" part wins; if no part matches, the
// top-level payload is used instead. The decoded text is truncated to
// the first 4000 characters.
func (m *Message) PlainText() (string, error) {
	for _, p := range m.Parts {
		if p.MimeType == "text/plain" {
			text, err := decodeBody(p.Body)
			if err != nil {
				return "", err
			}
			return truncate(text, maxBodyChars), nil
		}
	}

	text, err := decodeBody(m.Body)
	if err != nil {
		return "", err
	}
	return truncate(text, maxBodyChars), nil
}

// decodeBody decodes a URL-safe base64 payload into UTF-8 text. Padding is
// optional; the Gmail API omits it.
func decodeBody(data string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode message body: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("message body is not valid UTF-8")
	}
	return string(raw), nil
}

// truncate limits s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
