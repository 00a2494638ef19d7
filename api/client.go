// Package api talks to the remote chat API.
package api

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptchat/crypto"
	"cryptchat/models"
)

const (
	// DefaultBaseURL is used when no API URL is configured.
	DefaultBaseURL = "https://gateway.filen.io"
	// DefaultTimeout bounds one API round trip.
	DefaultTimeout = 30 * time.Second

	conversationsPath = "/v3/chat/conversations"
	messagesPath      = "/v3/chat/messages"

	maxResponseBytes = 16 << 20
)

// Request header names.
const (
	HeaderUser      = "X-Chat-User"
	HeaderTimestamp = "X-Chat-Timestamp"
	HeaderSignature = "X-Chat-Signature"
)

// Error is a failed API call. Status is the HTTP status, or 200 when the
// envelope itself reported failure.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat api error %d", e.Status)
	}
	return fmt.Sprintf("chat api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client is a signed HTTP client for the chat endpoints.
type Client struct {
	BaseURL    string
	UserID     int64
	SigningKey ed25519.PrivateKey
	HTTPClient *http.Client

	now func() time.Time
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, userID int64, signingKey ed25519.PrivateKey) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		UserID:     userID,
		SigningKey: signingKey,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
	}
}

// ListConversations returns every conversation the user participates in.
func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationPayload, error) {
	var out []models.ConversationPayload
	if err := c.get(ctx, conversationsPath, nil, &out); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}

// ListMessages returns one page of messages of a conversation. before=0 asks
// for the newest page.
func (c *Client) ListMessages(ctx context.Context, conversationID string, before int64) ([]models.MessagePayload, error) {
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}

	query := url.Values{}
	query.Set("conversation", conversationID)
	if before > 0 {
		query.Set("before", strconv.FormatInt(before, 10))
	}

	var out []models.MessagePayload
	if err := c.get(ctx, messagesPath, query, &out); err != nil {
		return nil, fmt.Errorf("list messages for %q: %w", conversationID, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if err := c.signRequest(req, path); err != nil {
		return err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)
	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response envelope: %w", decodeErr)
	}
	if !env.Status {
		return &Error{Status: resp.StatusCode, Message: env.Message}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) signRequest(req *http.Request, path string) error {
	if len(c.SigningKey) == 0 {
		return nil
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	timestamp := now().UnixMilli()

	sig, err := crypto.Sign(c.SigningKey, crypto.RequestSigningPayload(req.Method, path, timestamp))
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	req.Header.Set(HeaderUser, strconv.FormatInt(c.UserID, 10))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderSignature, base64.StdEncoding.EncodeToString(sig))
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
