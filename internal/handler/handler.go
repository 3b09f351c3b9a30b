package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"inbox-digest-go/internal/cache"
	"inbox-digest-go/internal/config"
	"inbox-digest-go/internal/mailbox"
	"inbox-digest-go/internal/service"
	sessionPkg "inbox-digest-go/internal/session"
)

// requestTimeout bounds one page or chat request end to end, enrichment
// calls included.
const requestTimeout = 2 * time.Minute

// Handlers contains all HTTP handlers
type Handlers struct {
	cfg       *config.Config
	oauth     *oauth2.Config
	digest    *service.DigestService
	summaries *cache.SummaryCache
	store     *sessionPkg.Store
	imap      mailbox.Mailbox // shared IMAP backend, nil when using Gmail
}

// NewHandlers creates new HTTP handlers
func NewHandlers(cfg *config.Config, oauthConfig *oauth2.Config, digest *service.DigestService, summaries *cache.SummaryCache, store *sessionPkg.Store, imap mailbox.Mailbox) *Handlers {
	return &Handlers{
		cfg:       cfg,
		oauth:     oauthConfig,
		digest:    digest,
		summaries: summaries,
		store:     store,
		imap:      imap,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/", h.Index)
	router.GET("/login", h.Login)
	router.GET("/oauth2callback", h.OAuth2Callback)
	router.GET("/logout", h.Logout)

	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := router.Group("/", h.RequireLogin)
	{
		authed.GET("/emails", h.Emails)
		authed.GET("/chat", h.ChatPage)
		authed.POST("/chat", h.Chat)
	}
}

// Index renders the unauthenticated landing page
func (h *Handlers) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", nil)
}

// Login starts the OAuth2 flow, storing an anti-forgery state in the
// session before redirecting to the provider.
func (h *Handlers) Login(c *gin.Context) {
	if h.oauth == nil {
		// IMAP backend: credentials are server-side, nothing to authorize.
		c.Redirect(http.StatusFound, "/emails")
		return
	}

	state, err := randomState()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "state_error", "Failed to create login state")
		return
	}
	if err := h.store.SaveState(c, state); err != nil {
		h.fail(c, http.StatusInternalServerError, "session_error", "Failed to save session")
		return
	}

	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

// OAuth2Callback finishes the OAuth2 flow: it checks the anti-forgery
// state, exchanges the code for tokens and stores them in the session.
func (h *Handlers) OAuth2Callback(c *gin.Context) {
	if h.oauth == nil {
		c.Redirect(http.StatusFound, "/emails")
		return
	}

	stored, ok := h.store.State(c)
	if !ok || stored != c.Query("state") {
		h.fail(c, http.StatusBadRequest, "state_mismatch", "Login state does not match")
		return
	}

	code := c.Query("code")
	if code == "" {
		h.fail(c, http.StatusBadRequest, "missing_code", "Authorization code is missing")
		return
	}

	token, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		logrus.Errorf("Failed to exchange authorization code: %v", err)
		h.fail(c, http.StatusBadGateway, "oauth_error", "Failed to exchange authorization code")
		return
	}

	if err := h.store.SaveToken(c, token); err != nil {
		h.fail(c, http.StatusInternalServerError, "session_error", "Failed to save credentials")
		return
	}

	c.Redirect(http.StatusFound, "/emails")
}

// Logout clears the session
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.store.Clear(c); err != nil {
		logrus.Errorf("Failed to clear session: %v", err)
	}
	c.Redirect(http.StatusFound, "/")
}

// RequireLogin redirects unauthenticated requests to /login.
func (h *Handlers) RequireLogin(c *gin.Context) {
	if h.imap != nil {
		c.Next()
		return
	}
	if _, ok := h.store.Token(c); !ok {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}
	c.Next()
}

// Emails renders one page of enriched email summaries.
func (h *Handlers) Emails(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	mbox, err := h.mailbox(c)
	if err != nil {
		logrus.Errorf("Failed to open mailbox: %v", err)
		h.fail(c, http.StatusBadGateway, "mailbox_error", "Failed to open mailbox")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	summaries, next, err := h.digest.GetPage(ctx, mbox, page, h.cfg.Mailbox.PageSize)
	if err != nil {
		logrus.Errorf("Failed to assemble email page %d: %v", page, err)
		h.fail(c, http.StatusBadGateway, "mailbox_error", "Failed to load emails")
		return
	}

	c.HTML(http.StatusOK, "emails.html", gin.H{
		"emails":   summaries,
		"page":     page,
		"prevPage": page - 1,
		"nextPage": page + 1,
		"hasNext":  next != "",
	})
}

// ChatPage renders the chat UI
func (h *Handlers) ChatPage(c *gin.Context) {
	c.HTML(http.StatusOK, "chat.html", nil)
}

// Chat answers a free-form question about recent emails.
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	mbox, err := h.mailbox(c)
	if err != nil {
		logrus.Errorf("Failed to open mailbox: %v", err)
		h.fail(c, http.StatusBadGateway, "mailbox_error", "Failed to open mailbox")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	response, err := h.digest.Chat(ctx, mbox, req.Message)
	if err != nil {
		logrus.Errorf("Failed to answer chat request: %v", err)
		h.fail(c, http.StatusBadGateway, "mailbox_error", "Failed to answer question")
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Response: response})
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	backend := "gmail"
	if h.imap != nil {
		backend = "imap"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Timestamp:    time.Now(),
		MailBackend:  backend,
		CacheEntries: h.summaries.Len(),
	})
}

// mailbox returns the mailbox for this request: the shared IMAP backend
// when configured, otherwise a Gmail mailbox built from the session's
// OAuth2 token.
func (h *Handlers) mailbox(c *gin.Context) (mailbox.Mailbox, error) {
	if h.imap != nil {
		return h.imap, nil
	}

	token, ok := h.store.Token(c)
	if !ok {
		return nil, fmt.Errorf("no credentials in session")
	}
	return mailbox.NewGmailMailbox(c.Request.Context(), h.oauth, token)
}

// fail writes a JSON error response
func (h *Handlers) fail(c *gin.Context, code int, kind, message string) {
	c.JSON(code, ErrorResponse{
		Error:   kind,
		Message: message,
		Code:    code,
	})
}

// randomState returns a fresh anti-forgery state value.
func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
