package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/httpx"
)

// TokenFunc supplies a fresh bearer token for each call. Wire it to
// credentials.Manager.GetValidToken so expiry checks happen on every request.
type TokenFunc func(ctx context.Context) (string, error)

type Client struct {
	perfHost    string
	reviewsHost string
	httpClient  *httpx.Client
	token       TokenFunc
}

func NewClient(httpClient *httpx.Client, perfHost string, token TokenFunc) *Client {
	if perfHost == "" {
		perfHost = "https://businessprofileperformance.googleapis.com"
	}
	return &Client{
		perfHost:    strings.TrimRight(perfHost, "/"),
		reviewsHost: "https://mybusiness.googleapis.com/v4",
		httpClient:  httpClient,
		token:       token,
	}
}

// WithReviewsHost overrides the reviews API host, used by tests.
func (c *Client) WithReviewsHost(host string) *Client {
	c.reviewsHost = strings.TrimRight(host, "/")
	return c
}

// dailyMetrics requested from the performance API. The canonical counter each
// raw metric rolls into is defined by normalize.GoogleMetrics.
var dailyMetrics = []string{
	"BUSINESS_IMPRESSIONS_DESKTOP_MAPS",
	"BUSINESS_IMPRESSIONS_MOBILE_MAPS",
	"BUSINESS_IMPRESSIONS_DESKTOP_SEARCH",
	"BUSINESS_IMPRESSIONS_MOBILE_SEARCH",
	"WEBSITE_CLICKS",
	"CALL_CLICKS",
	"BUSINESS_DIRECTION_REQUESTS",
	"BUSINESS_CONVERSATIONS",
	"BUSINESS_BOOKINGS",
}

// FetchDailyMetrics pulls the multi-metric daily time series for one location
// over [start, end] (calendar dates, inclusive).
func (c *Client) FetchDailyMetrics(ctx context.Context, locationID string, start, end time.Time) (*MultiDailyMetricsResponse, error) {
	if locationID == "" {
		return nil, fmt.Errorf("location_id is required")
	}
	params := url.Values{}
	for _, metric := range dailyMetrics {
		params.Add("dailyMetrics", metric)
	}
	params.Set("dailyRange.start_date.year", strconv.Itoa(start.Year()))
	params.Set("dailyRange.start_date.month", strconv.Itoa(int(start.Month())))
	params.Set("dailyRange.start_date.day", strconv.Itoa(start.Day()))
	params.Set("dailyRange.end_date.year", strconv.Itoa(end.Year()))
	params.Set("dailyRange.end_date.month", strconv.Itoa(int(end.Month())))
	params.Set("dailyRange.end_date.day", strconv.Itoa(end.Day()))

	path := fmt.Sprintf("%s/v1/locations/%s:fetchMultiDailyMetricsTimeSeries?%s",
		c.perfHost, url.PathEscape(locationID), params.Encode())

	var out MultiDailyMetricsResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReviews returns one page of reviews plus the continuation token; an
// empty token means the listing is complete.
func (c *Client) ListReviews(ctx context.Context, accountID, locationID, pageToken string) (*ReviewsResponse, error) {
	if accountID == "" || locationID == "" {
		return nil, fmt.Errorf("account_id and location_id are required")
	}
	params := url.Values{}
	params.Set("pageSize", "50")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	path := fmt.Sprintf("%s/accounts/%s/locations/%s/reviews?%s",
		c.reviewsHost, url.PathEscape(accountID), url.PathEscape(locationID), params.Encode())

	var out ReviewsResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	return c.httpClient.DoJSON(ctx, req, out)
}
