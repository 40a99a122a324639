// Package rest is the typed client for the back office's chat REST
// collaborators: thread listing, history, message creation, attachment upload
// and group management. Responses are decoded tolerantly through the wire
// package's alias chains, since the endpoints predate the canonical shapes.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/averonhq/deskchat/internal/wire"
)

// ErrUnauthorized indicates the bearer token was rejected.
var ErrUnauthorized = errors.New("rest: unauthorized")

const defaultTimeout = 15 * time.Second

// Client talks to the chat REST API with a bearer token and employee code.
type Client struct {
	base         string
	token        string
	employeeCode string
	http         *http.Client
	validate     *validator.Validate
	logger       zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a REST client for the given API base URL.
func NewClient(base, token, employeeCode string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		base:         strings.TrimRight(base, "/"),
		token:        token,
		employeeCode: employeeCode,
		http:         &http.Client{Timeout: defaultTimeout},
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger.With().Str("component", "rest_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base.
func (c *Client) BaseURL() string { return c.base }

// ListThreads fetches the current user's conversation summaries.
func (c *Client) ListThreads(ctx context.Context) ([]wire.Thread, error) {
	raw, err := c.getList(ctx, "/api/v1/chat/threads", nil)
	if err != nil {
		return nil, err
	}

	threads := make([]wire.Thread, 0, len(raw))
	for _, entry := range raw {
		if thread, ok := wire.NormalizeThread(entry); ok {
			threads = append(threads, thread)
		}
	}
	return threads, nil
}

// History fetches messages for a thread in chronological order. limit <= 0
// falls back to the server default.
func (c *Client) History(ctx context.Context, threadID string, limit int) ([]*wire.Message, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	raw, err := c.getList(ctx, "/api/v1/chat/threads/"+url.PathEscape(threadID)+"/messages", query)
	if err != nil {
		return nil, err
	}

	messages := make([]*wire.Message, 0, len(raw))
	for _, entry := range raw {
		if message, ok := wire.NormalizeMessage(entry); ok {
			messages = append(messages, &message)
		}
	}
	return messages, nil
}

// sendMessageRequest is the create-message payload.
type sendMessageRequest struct {
	ThreadID      string   `json:"thread_id" validate:"required"`
	Body          string   `json:"body" validate:"max=4000"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}

// SendMessage creates a message in a thread. Attachment-only messages pass an
// empty body. The returned message is the server's confirmed echo.
func (c *Client) SendMessage(ctx context.Context, threadID, body string, attachmentIDs []string) (*wire.Message, error) {
	payload := sendMessageRequest{ThreadID: threadID, Body: body, AttachmentIDs: attachmentIDs}
	if err := c.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("send message payload: %w", err)
	}
	if strings.TrimSpace(body) == "" && len(attachmentIDs) == 0 {
		return nil, errors.New("rest: refusing to send an empty message")
	}

	raw, err := c.postObject(ctx, "/api/v1/chat/threads/"+url.PathEscape(threadID)+"/messages", payload)
	if err != nil {
		return nil, err
	}

	message, ok := wire.NormalizeMessage(raw)
	if !ok {
		return nil, errors.New("rest: server returned an unusable message echo")
	}
	return &message, nil
}

// MarkRead advances the caller's read cursor for a thread.
func (c *Client) MarkRead(ctx context.Context, threadID, messageID string) error {
	_, err := c.postObject(ctx, "/api/v1/chat/threads/"+url.PathEscape(threadID)+"/read", map[string]any{
		"message_id":    messageID,
		"employee_code": c.employeeCode,
	})
	return err
}

// UploadAttachment streams a file to the attachment endpoint and returns the
// stored attachment reference.
func (c *Client) UploadAttachment(ctx context.Context, filename string, reader io.Reader) (wire.Attachment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return wire.Attachment{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return wire.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return wire.Attachment{}, fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/chat/attachments", &buf)
	if err != nil {
		return wire.Attachment{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	raw, err := c.doObject(req)
	if err != nil {
		return wire.Attachment{}, err
	}
	return wire.NormalizeAttachment(raw), nil
}

// ListRoster fetches the employee roster for participant selection.
func (c *Client) ListRoster(ctx context.Context) ([]wire.Participant, error) {
	raw, err := c.getList(ctx, "/api/v1/users", nil)
	if err != nil {
		return nil, err
	}

	roster := make([]wire.Participant, 0, len(raw))
	for _, entry := range raw {
		if participant, ok := wire.NormalizeParticipant(entry); ok {
			roster = append(roster, participant)
		}
	}
	return roster, nil
}

// renameThreadRequest is the group rename payload.
type renameThreadRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

// RenameThread renames a group conversation.
func (c *Client) RenameThread(ctx context.Context, threadID, name string) error {
	payload := renameThreadRequest{Name: strings.TrimSpace(name)}
	if err := c.validate.Struct(payload); err != nil {
		return fmt.Errorf("rename payload: %w", err)
	}
	_, err := c.postObject(ctx, "/api/v1/chat/threads/"+url.PathEscape(threadID)+"/rename", payload)
	return err
}

// AddParticipants adds employees to a group conversation.
func (c *Client) AddParticipants(ctx context.Context, threadID string, employeeCodes []string) error {
	if len(employeeCodes) == 0 {
		return errors.New("rest: no participants to add")
	}
	_, err := c.postObject(ctx, "/api/v1/chat/threads/"+url.PathEscape(threadID)+"/participants", map[string]any{
		"employee_codes": employeeCodes,
	})
	return err
}

// RemoveParticipant removes one employee from a group conversation.
func (c *Client) RemoveParticipant(ctx context.Context, threadID, employeeCode string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.base+"/api/v1/chat/threads/"+url.PathEscape(threadID)+"/participants/"+url.PathEscape(employeeCode), nil)
	if err != nil {
		return err
	}
	_, err = c.doObject(req)
	return err
}

// createThreadRequest is the new-conversation payload.
type createThreadRequest struct {
	Name          string   `json:"name,omitempty" validate:"max=128"`
	EmployeeCodes []string `json:"employee_codes" validate:"required,min=1"`
}

// CreateThread starts a new conversation with the given members. A single
// member without a name yields a direct chat.
func (c *Client) CreateThread(ctx context.Context, name string, employeeCodes []string) (wire.Thread, error) {
	payload := createThreadRequest{Name: strings.TrimSpace(name), EmployeeCodes: employeeCodes}
	if err := c.validate.Struct(payload); err != nil {
		return wire.Thread{}, fmt.Errorf("create thread payload: %w", err)
	}

	raw, err := c.postObject(ctx, "/api/v1/chat/threads", payload)
	if err != nil {
		return wire.Thread{}, err
	}

	thread, ok := wire.NormalizeThread(raw)
	if !ok {
		return wire.Thread{}, errors.New("rest: server returned an unusable thread")
	}
	return thread, nil
}

func (c *Client) getList(ctx context.Context, path string, query url.Values) ([]map[string]any, error) {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodeList(body)
}

func (c *Client) postObject(ctx context.Context, path string, payload any) (map[string]any, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doObject(req)
}

func (c *Client) doObject(req *http.Request) (map[string]any, error) {
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodeObject(body)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.employeeCode != "" {
		req.Header.Set("X-Employee-Code", c.employeeCode)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 400:
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", req.URL.Path).Msg("api request failed")
		return nil, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	return body, nil
}

// decodeObject accepts both a bare JSON object and the API's {data: {...}}
// envelope.
func decodeObject(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if inner, ok := decoded["data"].(map[string]any); ok {
		decoded = inner
	}
	// Some endpoints wrap the record once more.
	for _, key := range []string{"message", "thread", "attachment", "result"} {
		if inner, ok := decoded[key].(map[string]any); ok {
			return inner, nil
		}
	}
	return decoded, nil
}

// decodeList accepts a bare JSON array, {data: [...]}, and the nested
// {data: {items|threads|messages|users: [...]}} envelopes the endpoints use
// inconsistently.
func decodeList(body []byte) ([]map[string]any, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	list := findList(decoded, 0)
	if list == nil {
		return nil, errors.New("rest: no list found in response")
	}

	entries := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if entry, isMap := item.(map[string]any); isMap {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func findList(value any, depth int) []any {
	if depth > 2 {
		return nil
	}
	switch v := value.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"data", "items", "threads", "messages", "users", "results"} {
			if nested, ok := v[key]; ok {
				if list := findList(nested, depth+1); list != nil {
					return list
				}
			}
		}
	}
	return nil
}
