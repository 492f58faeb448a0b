package everhour

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/skalski/evermult/pkg/timerecord"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.everhour.com"

// The upstream allows roughly 100 requests per minute per key. Staying a bit
// under that avoids burning the retry budget on 429s.
const requestsPerSecond = 1.5

// Client talks to the Everhour REST API. It is the only component that issues
// network calls; everything above it works with timerecord values.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests and self-hosted
// deployments.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRetryMax overrides the transport-level retry budget.
func WithRetryMax(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

// WithProxy routes all traffic through an HTTP proxy.
func WithProxy(proxy string) Option {
	return func(c *Client) {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return
		}
		c.http.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

// NewClient builds a Client authenticated with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 5

	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    retryClient,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one rate-limited request and returns the response body. Any
// non-2xx status or transport error comes back as an *APIError.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &APIError{Kind: FailNetwork, URL: c.baseURL + path, Err: err}
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("everhour: marshal payload: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	fullURL := c.baseURL + path
	req, err := retryablehttp.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return "", &APIError{Kind: FailNetwork, URL: fullURL, Err: err}
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", &APIError{Kind: FailNetwork, URL: fullURL, Err: err}
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &APIError{Kind: FailNetwork, URL: fullURL, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", &APIError{Kind: classifyStatus(res.StatusCode), Status: res.StatusCode, URL: fullURL}
	}
	return string(resBody), nil
}

// FetchDay returns all time records of one user for a single calendar day.
func (c *Client) FetchDay(ctx context.Context, userID string, day timerecord.Date) ([]timerecord.TimeRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("everhour: empty user id")
	}
	path := fmt.Sprintf("/users/%s/time?from=%s&to=%s", url.PathEscape(userID), day, day)
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return parseRecords(body), nil
}

// PatchRecord updates fields of an existing record in place. The payload must
// carry the task and user associations or the upstream clears them.
func (c *Client) PatchRecord(ctx context.Context, recordID string, upd timerecord.Update) (timerecord.TimeRecord, error) {
	payload := map[string]interface{}{
		"time": upd.TimeHMS,
	}
	if upd.Date != "" {
		payload["date"] = upd.Date.String()
	}
	if upd.TaskID != "" {
		payload["task"] = upd.TaskID
	}
	if upd.UserID != "" {
		payload["user"] = upd.UserID
	}
	if upd.ProjectID != "" {
		payload["project"] = upd.ProjectID
	}
	if upd.Comment != "" {
		payload["comment"] = upd.Comment
	}
	if upd.Billable {
		payload["billable"] = true
	}

	body, err := c.do(ctx, http.MethodPatch, "/time/"+url.PathEscape(recordID), payload)
	if err != nil {
		return timerecord.TimeRecord{}, err
	}
	return parseRecord(body), nil
}

// DeleteRecord removes a record permanently.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/time/"+url.PathEscape(recordID), nil)
	return err
}

// CreateTaskTime adds a new time entry at the task-scoped endpoint. This is
// additive; it never touches existing records.
func (c *Client) CreateTaskTime(ctx context.Context, taskID string, entry timerecord.NewEntry) (timerecord.TimeRecord, error) {
	payload := map[string]interface{}{
		"time": entry.Seconds,
		"date": entry.Date.String(),
		"user": entry.UserID,
	}
	if entry.Comment != "" {
		payload["comment"] = entry.Comment
	}
	if entry.Billable {
		payload["billable"] = true
	}

	body, err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/time", payload)
	if err != nil {
		return timerecord.TimeRecord{}, err
	}
	return parseRecord(body), nil
}
