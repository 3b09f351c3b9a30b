package session

import (
	"encoding/json"
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// Session value keys
const (
	tokenKey = "token"
	stateKey = "state"
)

// Store is an explicit credential-store capability over the signed cookie
// session: it owns reading and writing the user's OAuth2 token and the
// login anti-forgery state. The OAuth client ID, secret and scopes live
// in the oauth2 config, never in the session.
type Store struct{}

// NewStore creates a new credential store
func NewStore() *Store {
	return &Store{}
}

// SaveToken stores the user's OAuth2 token in their session.
func (s *Store) SaveToken(c *gin.Context, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	session := sessions.Default(c)
	session.Set(tokenKey, string(raw))
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Token returns the session's OAuth2 token, if one is stored.
func (s *Store) Token(c *gin.Context) (*oauth2.Token, bool) {
	raw, ok := sessions.Default(c).Get(tokenKey).(string)
	if !ok {
		return nil, false
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, false
	}
	return &token, true
}

// SaveState stores the login anti-forgery state in the session.
func (s *Store) SaveState(c *gin.Context, state string) error {
	session := sessions.Default(c)
	session.Set(stateKey, state)
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// State returns the stored anti-forgery state, if any.
func (s *Store) State(c *gin.Context) (string, bool) {
	state, ok := sessions.Default(c).Get(stateKey).(string)
	return state, ok
}

// Clear drops all session values.
func (s *Store) Clear(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
