package model

// EmailSummary represents the derived view of a mailbox message: the
// generated subject, description and category, plus the headers carried
// over from the message itself.
type EmailSummary struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	From        string `json:"from"`
	Category    string `json:"category"`
	SentTime    string `json:"sent_time"`
	Spooky      bool   `json:"spooky"`
}
