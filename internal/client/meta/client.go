package meta

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/httpx"
)

// Client talks to the Graph API WhatsApp Business analytics endpoints.
// Authentication is a long-lived system-user token passed per request.
type Client struct {
	host        string
	wabaID      string
	accessToken string
	httpClient  *httpx.Client
}

func NewClient(httpClient *httpx.Client, host, wabaID, accessToken string) *Client {
	if host == "" {
		host = "https://graph.facebook.com/v19.0"
	}
	return &Client{
		host:        strings.TrimRight(host, "/"),
		wabaID:      wabaID,
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

func (c *Client) WabaID() string {
	return c.wabaID
}

type ConversationDataPoint struct {
	Start                int64   `json:"start"`
	End                  int64   `json:"end"`
	Conversation         int64   `json:"conversation"`
	Cost                 float64 `json:"cost"`
	ConversationCategory string  `json:"conversation_category"`
}

type conversationAnalytics struct {
	Data []struct {
		DataPoints []ConversationDataPoint `json:"data_points"`
	} `json:"data"`
}

type conversationAnalyticsResponse struct {
	ConversationAnalytics conversationAnalytics `json:"conversation_analytics"`
}

type MessageDataPoint struct {
	Start     int64 `json:"start"`
	End       int64 `json:"end"`
	Sent      int64 `json:"sent"`
	Delivered int64 `json:"delivered"`
}

type messageAnalyticsResponse struct {
	Analytics struct {
		DataPoints []MessageDataPoint `json:"data_points"`
	} `json:"analytics"`
}

// ConversationAnalytics fetches per-day conversation counts and costs broken
// down by pricing category for [start, end).
func (c *Client) ConversationAnalytics(ctx context.Context, start, end time.Time) ([]ConversationDataPoint, error) {
	field := fmt.Sprintf(
		"conversation_analytics.start(%d).end(%d).granularity(DAILY).dimensions(CONVERSATION_CATEGORY)",
		start.Unix(), end.Unix(),
	)
	var out conversationAnalyticsResponse
	if err := c.getJSON(ctx, field, &out); err != nil {
		return nil, err
	}
	points := make([]ConversationDataPoint, 0)
	for _, group := range out.ConversationAnalytics.Data {
		points = append(points, group.DataPoints...)
	}
	return points, nil
}

// MessageAnalytics fetches per-day sent/delivered message counts for
// [start, end).
func (c *Client) MessageAnalytics(ctx context.Context, start, end time.Time) ([]MessageDataPoint, error) {
	field := fmt.Sprintf("analytics.start(%d).end(%d).granularity(DAY)", start.Unix(), end.Unix())
	var out messageAnalyticsResponse
	if err := c.getJSON(ctx, field, &out); err != nil {
		return nil, err
	}
	return out.Analytics.DataPoints, nil
}

func (c *Client) getJSON(ctx context.Context, field string, out any) error {
	if c.wabaID == "" {
		return fmt.Errorf("waba_id is not configured")
	}
	if c.accessToken == "" {
		return fmt.Errorf("meta access token is not configured")
	}
	params := url.Values{}
	params.Set("fields", field)
	params.Set("access_token", c.accessToken)
	fullURL := fmt.Sprintf("%s/%s?%s", c.host, url.PathEscape(c.wabaID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.DoJSON(ctx, req, out)
}
