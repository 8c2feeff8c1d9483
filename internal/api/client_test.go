package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

const sharedBody = `{
  "date": "2026-02-28",
  "data": {
    "Göteborg": {"Fajr": "04:58", "Sunrise": "06:30", "Dhuhr": "12:10", "Asr": "15:20", "Maghrib": "18:45", "Isha": "20:15"},
    "Stockholm": {"Fajr": "04:40", "Sunrise": "06:20", "Dhuhr": "12:00", "Asr": "15:00", "Maghrib": "18:30", "Isha": "20:00"}
  }
}`

const bareBody = `{
  "Göteborg": {"Fajr": "04:59", "Sunrise": "06:31", "Dhuhr": "12:10", "Asr": "15:21", "Maghrib": "18:46", "Isha": "20:16"}
}`

func fixedNow() time.Time {
	return time.Date(2026, 2, 28, 10, 0, 0, 0, time.Local)
}

func newTestClient(serverURL string, layout Layout) *Client {
	c := NewClient()
	c.BaseURL = serverURL
	c.Layout = layout
	c.now = fixedNow
	return c
}

// ---------------------------------------------------------------------------
// Construction and URLs
// ---------------------------------------------------------------------------

func TestNewClient(t *testing.T) {
	c := NewClient()
	if c == nil {
		t.Fatal("NewClient returned nil")
	}
	if c.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL, DefaultBaseURL)
	}
	if c.Layout != LayoutShared {
		t.Errorf("Layout = %q, want %q", c.Layout, LayoutShared)
	}
}

func TestDocumentURL(t *testing.T) {
	day := fixedNow()
	tests := []struct {
		layout Layout
		base   string
		want   string
	}{
		{LayoutShared, "https://cdn.example", "https://cdn.example/prayer_times.json?timestamp=" + strconv.FormatInt(day.UnixMilli(), 10)},
		{LayoutShared, "https://cdn.example/", "https://cdn.example/prayer_times.json?timestamp=" + strconv.FormatInt(day.UnixMilli(), 10)},
		{LayoutDaily, "https://cdn.example", "https://cdn.example/2026-02-28.json"},
	}
	for _, tt := range tests {
		t.Run(string(tt.layout)+" "+tt.base, func(t *testing.T) {
			c := newTestClient(tt.base, tt.layout)
			if got := c.DocumentURL(day); got != tt.want {
				t.Errorf("DocumentURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLayout(t *testing.T) {
	for _, s := range []string{"shared", "daily"} {
		if _, err := ParseLayout(s); err != nil {
			t.Errorf("ParseLayout(%q) error: %v", s, err)
		}
	}
	if _, err := ParseLayout("weekly"); err == nil {
		t.Error("ParseLayout(weekly) should fail")
	}
}

// ---------------------------------------------------------------------------
// Fetch
// ---------------------------------------------------------------------------

func TestFetch_SharedLayout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prayer_times.json" {
			t.Errorf("path = %q, want /prayer_times.json", r.URL.Path)
		}
		if r.URL.Query().Get("timestamp") == "" {
			t.Error("missing timestamp cache-buster")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sharedBody))
	}))
	defer server.Close()

	c := newTestClient(server.URL, LayoutShared)
	doc, err := c.Fetch(context.Background(), fixedNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Date != "2026-02-28" {
		t.Errorf("Date = %q, want 2026-02-28", doc.Date)
	}
	s, err := doc.City("Göteborg")
	if err != nil {
		t.Fatalf("City error: %v", err)
	}
	if s.Isha != "20:15" {
		t.Errorf("Isha = %q, want 20:15", s.Isha)
	}
}

func TestFetch_DailyLayoutBareMap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2026-02-28.json" {
			t.Errorf("path = %q, want /2026-02-28.json", r.URL.Path)
		}
		w.Write([]byte(bareBody))
	}))
	defer server.Close()

	c := newTestClient(server.URL, LayoutDaily)
	doc, err := c.Fetch(context.Background(), fixedNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Date != "" {
		t.Errorf("Date = %q, want empty", doc.Date)
	}
	if got := doc.Day(); got != "" {
		t.Errorf("Day = %q, want empty", got)
	}
	s, err := doc.City("Göteborg")
	if err != nil {
		t.Fatalf("City error: %v", err)
	}
	if s.Fajr != "04:59" {
		t.Errorf("Fajr = %q, want 04:59", s.Fajr)
	}
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	c := newTestClient(server.URL, LayoutShared)
	_, err := c.Fetch(context.Background(), fixedNow())
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", fe.StatusCode)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error %q should mention the status", err)
	}
}

func TestFetch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := newTestClient(server.URL, LayoutShared)
	_, err := c.Fetch(context.Background(), fixedNow())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", fe.StatusCode)
	}
}

func TestFetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(url, LayoutShared)
	_, err := c.Fetch(context.Background(), fixedNow())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", fe.StatusCode)
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sharedBody))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(server.URL, LayoutShared)
	_, err := c.Fetch(ctx, fixedNow())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

func TestCityProvider_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sharedBody))
	}))
	defer server.Close()

	var p Provider = CityProvider{Client: newTestClient(server.URL, LayoutShared)}
	s, day, err := p.Fetch(context.Background(), "Stockholm", fixedNow().AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Fajr != "04:40" {
		t.Errorf("Fajr = %q, want 04:40", s.Fajr)
	}
	if day != "2026-02-28" {
		t.Errorf("day = %q, want document date 2026-02-28", day)
	}
}

func TestCityProvider_UndatedDocumentDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bareBody))
	}))
	defer server.Close()

	tests := []struct {
		layout Layout
		want   string
	}{
		// The daily file name carries the day.
		{LayoutDaily, "2026-02-28"},
		// A shared file could be from any day.
		{LayoutShared, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.layout), func(t *testing.T) {
			p := CityProvider{Client: newTestClient(server.URL, tt.layout)}
			_, day, err := p.Fetch(context.Background(), "Göteborg", fixedNow())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if day != tt.want {
				t.Errorf("day = %q, want %q", day, tt.want)
			}
		})
	}
}

func TestCityProvider_MissingCity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sharedBody))
	}))
	defer server.Close()

	p := CityProvider{Client: newTestClient(server.URL, LayoutShared)}
	_, _, err := p.Fetch(context.Background(), "Malmö", fixedNow())
	var me *MissingCityError
	if !errors.As(err, &me) {
		t.Fatalf("error = %v, want *MissingCityError", err)
	}
	if me.City != "Malmö" {
		t.Errorf("City = %q, want Malmö", me.City)
	}
	if len(me.Available) != 2 || me.Available[0] != "Göteborg" {
		t.Errorf("Available = %v", me.Available)
	}
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

func TestDecodeDocument_DateInBareMap(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"date":"2026-03-01","Lund":{"Fajr":"05:00","Sunrise":"06:40","Dhuhr":"12:15","Asr":"15:10","Maghrib":"18:20","Isha":"19:50"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Date != "2026-03-01" {
		t.Errorf("Date = %q", doc.Date)
	}
	if _, ok := doc.Cities["date"]; ok {
		t.Error("date key must not be treated as a city")
	}
	if names := doc.CityNames(); len(names) != 1 || names[0] != "Lund" {
		t.Errorf("CityNames = %v, want [Lund]", names)
	}
}

func TestDecodeDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"array", `[1,2]`},
		{"bad data", `{"data": 5}`},
		{"bad city", `{"Lund": "05:00"}`},
		{"bad date", `{"date": 5, "data": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeDocument([]byte(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDocument_Day(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2026-03-01", "2026-03-01"},
		{"01-03-2026", "2026-03-01"},
		{"2026/03/01", "2026-03-01"},
		{"", ""},
		{"someday", ""},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d := &Document{Date: tt.date}
			if got := d.Day(); got != tt.want {
				t.Errorf("Day = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocument_SchedulesAreUsable(t *testing.T) {
	doc, err := DecodeDocument([]byte(sharedBody))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, city := range doc.CityNames() {
		s, _ := doc.City(city)
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", city, err)
		}
		if _, err := prayer.ResolveNext(s, fixedNow()); err != nil {
			t.Errorf("%s: ResolveNext: %v", city, err)
		}
	}
}
