package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// DefaultBaseURL is the CDN hosting the published prayer time documents.
const DefaultBaseURL = "https://adhan-data.nyc3.cdn.digitaloceanspaces.com"

const sharedDocument = "prayer_times.json"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Client fetches prayer time documents from a static host.
type Client struct {
	httpClient *http.Client
	// BaseURL is the document host. Exported for testing with httptest.
	BaseURL string
	Layout  Layout
	// now stamps the cache-busting parameter. Overridden in tests.
	now func() time.Time
}

// NewClient creates a new client with sensible defaults.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: DefaultBaseURL,
		Layout:  LayoutShared,
		now:     time.Now,
	}
}

// DocumentURL returns the URL of the document to fetch for day.
func (c *Client) DocumentURL(day time.Time) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if c.Layout == LayoutDaily {
		return fmt.Sprintf("%s/%s.json", base, day.Format("2006-01-02"))
	}

	params := url.Values{}
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	return fmt.Sprintf("%s/%s?%s", base, sharedDocument, params.Encode())
}

// Fetch retrieves the document for day. Every failure is a *FetchError.
func (c *Client) Fetch(ctx context.Context, day time.Time) (*Document, error) {
	reqURL := c.DocumentURL(day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{URL: reqURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: reqURL, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: reqURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(http.StatusText(resp.StatusCode) + " " + truncate(string(body), 200))),
		}
	}

	doc, err := DecodeDocument(body)
	if err != nil {
		return nil, &FetchError{URL: reqURL, StatusCode: resp.StatusCode, Err: err}
	}
	return doc, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Provider supplies one city's schedule for a day. The returned string is
// the document's calendar day (YYYY-MM-DD), or "" when it is unknown.
type Provider interface {
	Fetch(ctx context.Context, city string, day time.Time) (prayer.Schedule, string, error)
}

// FetchCity fetches the document for day and extracts city. An undated
// daily document belongs to the day it was requested for; an undated shared
// document has no known day.
func (c *Client) FetchCity(ctx context.Context, city string, day time.Time) (prayer.Schedule, string, error) {
	doc, err := c.Fetch(ctx, day)
	if err != nil {
		return prayer.Schedule{}, "", err
	}
	s, err := doc.City(city)
	if err != nil {
		return prayer.Schedule{}, "", err
	}
	docDay := doc.Day()
	if docDay == "" && c.Layout == LayoutDaily {
		docDay = day.Format("2006-01-02")
	}
	return s, docDay, nil
}

// CityProvider adapts a Client to the Provider interface.
type CityProvider struct {
	Client *Client
}

// Fetch implements Provider.
func (p CityProvider) Fetch(ctx context.Context, city string, day time.Time) (prayer.Schedule, string, error) {
	return p.Client.FetchCity(ctx, city, day)
}
