package mailbox

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailMailbox implements Mailbox using the Gmail API on behalf of the
// authenticated user ("me").
type GmailMailbox struct {
	service *gmail.Service
}

// NewGmailMailbox creates a Gmail mailbox from the user's OAuth2 token.
func NewGmailMailbox(ctx context.Context, oauthConfig *oauth2.Config, token *oauth2.Token) (*GmailMailbox, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailMailbox{service: service}, nil
}

// List returns up to max message IDs starting at cursor, plus the cursor
// for the following page.
func (g *GmailMailbox) List(ctx context.Context, max int64, cursor string) ([]string, string, error) {
	call := g.service.Users.Messages.List("me").MaxResults(max)
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	response, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(response.Messages))
	for _, msg := range response.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, response.NextPageToken, nil
}

// Get fetches the full message for id.
func (g *GmailMailbox) Get(ctx context.Context, id string) (*Message, error) {
	msg, err := g.service.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return convertGmailMessage(msg), nil
}

// convertGmailMessage maps a Gmail API message onto Message, keeping
// header order and first-level parts.
func convertGmailMessage(msg *gmail.Message) *Message {
	m := &Message{ID: msg.Id}
	if msg.Payload == nil {
		return m
	}

	for _, h := range msg.Payload.Headers {
		m.Headers = append(m.Headers, Header{Name: h.Name, Value: h.Value})
	}

	if msg.Payload.Body != nil {
		m.Body = msg.Payload.Body.Data
	}

	for _, p := range msg.Payload.Parts {
		part := Part{MimeType: p.MimeType}
		if p.Body != nil {
			part.Body = p.Body.Data
		}
		m.Parts = append(m.Parts, part)
	}
	return m
}
