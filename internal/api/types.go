package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// Layout selects how documents are addressed on the data host.
type Layout string

const (
	// LayoutShared is one prayer_times.json carrying a date and every city.
	LayoutShared Layout = "shared"
	// LayoutDaily is one document per day, named YYYY-MM-DD.json.
	LayoutDaily Layout = "daily"
)

// ParseLayout validates a layout name.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case LayoutShared, LayoutDaily:
		return Layout(s), nil
	default:
		return "", fmt.Errorf("invalid layout %q: must be %q or %q", s, LayoutShared, LayoutDaily)
	}
}

// Document is a decoded provider payload.
type Document struct {
	// Date is the envelope's date field, verbatim. Empty for bare city maps.
	Date   string                     `json:"date,omitempty"`
	Cities map[string]prayer.Schedule `json:"data"`
}

// dateLayouts are the date formats accepted in the envelope.
var dateLayouts = []string{"2006-01-02", "02-01-2006", "2006/01/02", time.RFC3339}

// Day returns the document's calendar day as YYYY-MM-DD, or "" when the
// envelope carries no recognizable date.
func (d *Document) Day() string {
	if d.Date != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(d.Date)); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return ""
}

// City returns the schedule for name.
func (d *Document) City(name string) (prayer.Schedule, error) {
	s, ok := d.Cities[name]
	if !ok {
		return prayer.Schedule{}, &MissingCityError{City: name, Available: d.CityNames()}
	}
	return s, nil
}

// CityNames returns the cities in the document, sorted.
func (d *Document) CityNames() []string {
	names := make([]string, 0, len(d.Cities))
	for name := range d.Cities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeDocument accepts either a dated envelope {"date": ..., "data": {city: {...}}}
// or a bare {city: {...}} map.
func DecodeDocument(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	doc := &Document{}
	if raw, ok := top["data"]; ok {
		if err := json.Unmarshal(raw, &doc.Cities); err != nil {
			return nil, fmt.Errorf("failed to decode document data: %w", err)
		}
		if rawDate, ok := top["date"]; ok {
			if err := json.Unmarshal(rawDate, &doc.Date); err != nil {
				return nil, fmt.Errorf("failed to decode document date: %w", err)
			}
		}
		return doc, nil
	}

	doc.Cities = make(map[string]prayer.Schedule, len(top))
	for city, raw := range top {
		if city == "date" {
			if err := json.Unmarshal(raw, &doc.Date); err != nil {
				return nil, fmt.Errorf("failed to decode document date: %w", err)
			}
			continue
		}
		var s prayer.Schedule
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode schedule for %s: %w", city, err)
		}
		doc.Cities[city] = s
	}
	return doc, nil
}

// FetchError reports a transport failure, a non-success status or an
// undecodable body.
type FetchError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MissingCityError reports a city absent from the document.
type MissingCityError struct {
	City      string
	Available []string
}

func (e *MissingCityError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("city %q not found in prayer times document", e.City)
	}
	return fmt.Sprintf("city %q not found in prayer times document (available: %s)",
		e.City, strings.Join(e.Available, ", "))
}
