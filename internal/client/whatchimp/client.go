package whatchimp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/httpx"
)

// Client talks to the WhatChimp CRM HTTP API (API-key authenticated).
type Client struct {
	host       string
	apiKey     string
	httpClient *httpx.Client
}

func NewClient(httpClient *httpx.Client, host, apiKey string) *Client {
	if host == "" {
		host = "https://app.whatchimp.com/api/v1"
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type Label struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Subscriber struct {
	ID               int64             `json:"id"`
	Phone            string            `json:"phone_number"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	Labels           []Label           `json:"labels"`
	CustomFields     map[string]string `json:"custom_fields"`
	TransactionCount int               `json:"transaction_count"`
}

type listResponse struct {
	Status string       `json:"status"`
	Data   []Subscriber `json:"data"`
	Total  int          `json:"total"`
}

type mutationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ListSubscribers returns one page of the subscriber feed. hasMore reports
// whether another page should be requested.
func (c *Client) ListSubscribers(ctx context.Context, page, limit int) ([]Subscriber, bool, error) {
	if limit <= 0 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("api_token", c.apiKey)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var out listResponse
	if err := c.getJSON(ctx, "/subscriber/list?"+params.Encode(), &out); err != nil {
		return nil, false, err
	}
	if out.Status != "" && out.Status != "1" && !strings.EqualFold(out.Status, "success") {
		return nil, false, fmt.Errorf("subscriber list rejected: status %s", out.Status)
	}
	hasMore := len(out.Data) == limit
	return out.Data, hasMore, nil
}

// RemoveLabel detaches one label from a subscriber. Removing a label the
// subscriber does not carry is a no-op at the CRM and not an error.
func (c *Client) RemoveLabel(ctx context.Context, subscriberID, labelID int64) error {
	return c.postJSON(ctx, "/subscriber/label/remove", map[string]any{
		"api_token":     c.apiKey,
		"subscriber_id": subscriberID,
		"label_id":      labelID,
	})
}

func (c *Client) AssignLabel(ctx context.Context, subscriberID, labelID int64) error {
	return c.postJSON(ctx, "/subscriber/label/assign", map[string]any{
		"api_token":     c.apiKey,
		"subscriber_id": subscriberID,
		"label_id":      labelID,
	})
}

func (c *Client) SetCustomField(ctx context.Context, subscriberID int64, field, value string) error {
	return c.postJSON(ctx, "/subscriber/custom-field/set", map[string]any{
		"api_token":     c.apiKey,
		"subscriber_id": subscriberID,
		"field_name":    field,
		"value":         value,
	})
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.DoJSON(ctx, req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var out mutationResponse
	if err := c.httpClient.DoJSON(ctx, req, &out); err != nil {
		return err
	}
	if out.Status != "" && out.Status != "1" && !strings.EqualFold(out.Status, "success") {
		return fmt.Errorf("crm rejected %s: %s", path, out.Message)
	}
	return nil
}
