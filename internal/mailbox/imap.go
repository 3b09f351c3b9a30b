package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
)

// IMAPMailbox implements Mailbox over an IMAP connection. Cursors are
// emulated on top of sequence numbers so that walking pages yields the
// same newest-first order a strictly sequential walk would produce.
type IMAPMailbox struct {
	mu     sync.Mutex // the IMAP client is not safe for concurrent commands
	client *client.Client
}

// NewIMAPMailbox connects and logs in to an IMAP server.
func NewIMAPMailbox(host string, port int, user, password string) (*IMAPMailbox, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", host, port), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(user, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPMailbox{client: c}, nil
}

// List returns up to max message UIDs, newest first, starting at cursor.
// The cursor encodes how many messages have already been walked.
func (m *IMAPMailbox) List(ctx context.Context, max int64, cursor string) ([]string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mbox, err := m.client.Select("INBOX", true)
	if err != nil {
		return nil, "", fmt.Errorf("failed to select INBOX: %w", err)
	}

	offset := 0
	if cursor != "" {
		offset, err = strconv.Atoi(cursor)
		if err != nil || offset < 0 {
			return nil, "", fmt.Errorf("invalid mailbox cursor %q", cursor)
		}
	}

	total := int64(mbox.Messages)
	if int64(offset) >= total {
		return nil, "", nil
	}

	// Sequence numbers count from the oldest message, so the newest
	// unwalked window is [high-max+1, high].
	high := total - int64(offset)
	low := high - max + 1
	if low < 1 {
		low = 1
	}

	seqset := new(imap.SeqSet)
	seqset.AddRange(uint32(low), uint32(high))

	messages := make(chan *imap.Message, int(high-low+1))
	done := make(chan error, 1)
	go func() {
		done <- m.client.Fetch(seqset, []imap.FetchItem{imap.FetchUid}, messages)
	}()

	type numbered struct {
		seq uint32
		uid uint32
	}
	var fetched []numbered
	for msg := range messages {
		fetched = append(fetched, numbered{seq: msg.SeqNum, uid: msg.Uid})
	}
	if err := <-done; err != nil {
		return nil, "", fmt.Errorf("failed to fetch message ids: %w", err)
	}

	sort.Slice(fetched, func(i, j int) bool { return fetched[i].seq > fetched[j].seq })

	ids := make([]string, 0, len(fetched))
	for _, n := range fetched {
		ids = append(ids, strconv.FormatUint(uint64(n.uid), 10))
	}

	next := ""
	if low > 1 {
		next = strconv.Itoa(offset + len(ids))
	}
	return ids, next, nil
}

// Get fetches the full message for the given UID.
func (m *IMAPMailbox) Get(ctx context.Context, id string) (*Message, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.client.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqset, []imap.FetchItem{section.FetchItem(), imap.FetchUid}, messages)
	}()

	var msg *imap.Message
	for fetched := range messages {
		if msg == nil {
			msg = fetched
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s not found", id)
	}

	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("failed to get body of message %s", id)
	}

	entity, err := message.Read(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", id, err)
	}

	return convertIMAPMessage(id, entity)
}

// Close logs out of the IMAP server
func (m *IMAPMailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client.Logout()
}

// convertIMAPMessage maps a parsed IMAP entity onto Message. Bodies are
// re-encoded URL-safe base64 so the normalizer contract is uniform across
// backends.
func convertIMAPMessage(id string, entity *message.Entity) (*Message, error) {
	m := &Message{ID: id}

	// Fields iterates newest-first; reverse to restore wire order.
	fields := entity.Header.Fields()
	for fields.Next() {
		m.Headers = append(m.Headers, Header{Name: fields.Key(), Value: fields.Value()})
	}
	for i, j := 0, len(m.Headers)-1; i < j; i, j = i+1, j-1 {
		m.Headers[i], m.Headers[j] = m.Headers[j], m.Headers[i]
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read part: %w", err)
			}

			content, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read part body: %w", err)
			}

			mimeType, _, _ := p.Header.ContentType()
			m.Parts = append(m.Parts, Part{
				MimeType: mimeType,
				Body:     base64.RawURLEncoding.EncodeToString(content),
			})
		}
		return m, nil
	}

	content, err := io.ReadAll(entity.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	m.Body = base64.RawURLEncoding.EncodeToString(content)
	return m, nil
}
