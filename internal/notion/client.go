// Package notion talks to the Notion REST API on behalf of registered users.
// Each call carries the user's own integration token, so one Client serves
// every user.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/readlater-bot/internal/models"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidCredentials = errors.New("notion token and database id are required")
	ErrNoteNotFound       = errors.New("no page matches the url")
)

// APIError is a non-2xx response from Notion
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion request failed: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion request failed: status=%d message=%s", e.Status, e.Message)
}

// Properties names the database columns the bot relies on
type Properties struct {
	Title     string
	URL       string
	Read      string
	ReadValue string
}

func DefaultProperties() Properties {
	return Properties{
		Title:     "名前",
		URL:       "URL",
		Read:      "read",
		ReadValue: "read",
	}
}

type Options struct {
	BaseURL           string
	APIVersion        string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Properties        Properties
}

type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	rps        rate.Limit
	props      Properties

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.notion.com"
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "2022-06-28"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	// Notion allows an average of three requests per second per integration,
	// so every token gets its own limiter
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}
	props := opts.Properties
	defaults := DefaultProperties()
	if props.Title == "" {
		props.Title = defaults.Title
	}
	if props.URL == "" {
		props.URL = defaults.URL
	}
	if props.Read == "" {
		props.Read = defaults.Read
	}
	if props.ReadValue == "" {
		props.ReadValue = defaults.ReadValue
	}
	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
		rps:        rate.Limit(rps),
		props:      props,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiterFor(token string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[token]
	if !ok {
		l = rate.NewLimiter(c.rps, 1)
		c.limiters[token] = l
	}
	return l
}

// ValidateCredentials runs a query that matches nothing. It fails when the token,
// the database id or one of the expected properties is wrong.
func (c *Client) ValidateCredentials(ctx context.Context, creds models.Credentials) error {
	filter := map[string]any{
		"and": []any{
			map[string]any{"property": c.props.Title, "title": map[string]any{"is_empty": true}},
			map[string]any{"property": c.props.URL, "url": map[string]any{"is_empty": true}},
			map[string]any{"property": c.props.Read, "select": map[string]any{"is_empty": true}},
		},
	}
	_, err := c.queryDatabase(ctx, creds, filter, 1, false)
	return err
}

// QueryUnread lists pages whose read select is empty
func (c *Client) QueryUnread(ctx context.Context, creds models.Credentials) ([]models.NoteItem, error) {
	filter := map[string]any{
		"property": c.props.Read,
		"select":   map[string]any{"is_empty": true},
	}
	pages, err := c.queryDatabase(ctx, creds, filter, 100, true)
	if err != nil {
		return nil, err
	}
	notes := make([]models.NoteItem, 0, len(pages))
	for _, p := range pages {
		notes = append(notes, c.toNote(p))
	}
	return notes, nil
}

// FindByURL returns the first page whose URL property equals pageURL, or nil
func (c *Client) FindByURL(ctx context.Context, creds models.Credentials, pageURL string) (*models.NoteItem, error) {
	filter := map[string]any{
		"property": c.props.URL,
		"url":      map[string]any{"equals": pageURL},
	}
	pages, err := c.queryDatabase(ctx, creds, filter, 1, false)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	note := c.toNote(pages[0])
	return &note, nil
}

func (c *Client) MarkRead(ctx context.Context, creds models.Credentials, pageURL string) error {
	note, err := c.mustFind(ctx, creds, pageURL)
	if err != nil {
		return err
	}
	body := map[string]any{
		"properties": map[string]any{
			c.props.Read: map[string]any{"select": map[string]any{"name": c.props.ReadValue}},
		},
	}
	return c.do(ctx, creds.Token, http.MethodPatch, "/v1/pages/"+url.PathEscape(note.ID), body, nil)
}

func (c *Client) Archive(ctx context.Context, creds models.Credentials, pageURL string) error {
	note, err := c.mustFind(ctx, creds, pageURL)
	if err != nil {
		return err
	}
	return c.do(ctx, creds.Token, http.MethodPatch, "/v1/pages/"+url.PathEscape(note.ID), map[string]any{"archived": true}, nil)
}

func (c *Client) mustFind(ctx context.Context, creds models.Credentials, pageURL string) (*models.NoteItem, error) {
	note, err := c.FindByURL(ctx, creds, pageURL)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

func (c *Client) queryDatabase(ctx context.Context, creds models.Credentials, filter map[string]any, pageSize int, all bool) ([]page, error) {
	if strings.TrimSpace(creds.Token) == "" || strings.TrimSpace(creds.DatabaseID) == "" {
		return nil, ErrInvalidCredentials
	}

	path := "/v1/databases/" + url.PathEscape(strings.TrimSpace(creds.DatabaseID)) + "/query"
	var (
		pages  []page
		cursor string
	)
	for {
		body := map[string]any{
			"filter":    filter,
			"page_size": pageSize,
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var resp queryResponse
		if err := c.do(ctx, creds.Token, http.MethodPost, path, body, &resp); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !all || !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

func (c *Client) do(ctx context.Context, token, method, path string, payload, out any) error {
	token = strings.TrimSpace(token)
	if err := c.limiterFor(token).Wait(ctx); err != nil {
		return err
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notion %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var parsed struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &parsed) == nil {
			apiErr.Code = parsed.Code
			if strings.TrimSpace(parsed.Message) != "" {
				apiErr.Message = parsed.Message
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode notion response: %w", err)
	}
	return nil
}
