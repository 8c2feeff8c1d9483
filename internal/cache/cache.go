// Package cache keeps the last fetched schedule per city and the last
// geolocation result in a bbolt database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/geo"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

const (
	dbFile = "prayer-widget.bolt"

	bucketSchedules = "schedules" // key: city -> ScheduleEntry JSON
	bucketGeo       = "geo"       // key: "location" -> GeoEntry JSON

	geoKey = "location"
	geoTTL = 24 * time.Hour

	dayLayout = "2006-01-02"
)

// Cache is a bbolt-backed store. It is safe for concurrent use.
type Cache struct {
	db *bbolt.DB
}

// ScheduleEntry stores one city's schedule together with the day of the
// document it came from.
type ScheduleEntry struct {
	City      string          `json:"city"`
	Day       string          `json:"day"` // YYYY-MM-DD
	Schedule  prayer.Schedule `json:"schedule"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// GeoEntry stores a cached geolocation result with a timestamp.
type GeoEntry struct {
	Location geo.Location `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}

// DefaultDir returns ~/.cache/prayer-widget.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "prayer-widget"), nil
}

// Open opens (creating if needed) the cache database in dir. If dir is
// empty, DefaultDir is used. The database is locked for the lifetime of the
// Cache; Open gives up after a second if another process holds it.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, dbFile)
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("cannot open cache %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketSchedules)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketGeo)); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cannot initialize cache: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.db.Path()
}

// LoadSchedule returns the cached schedule for city if it belongs to day.
// Missing, corrupt or stale entries are a miss.
func (c *Cache) LoadSchedule(city string, day time.Time) *ScheduleEntry {
	var entry *ScheduleEntry
	_ = c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketSchedules)).Get([]byte(city))
		if data == nil {
			return nil
		}
		var e ScheduleEntry
		if err := json.Unmarshal(data, &e); err != nil {
			log.Debug().Err(err).Str("city", city).Msg("discarding corrupt cache entry")
			return nil
		}
		// Stale cache for a previous day is useless.
		if e.Day != day.Format(dayLayout) {
			return nil
		}
		entry = &e
		return nil
	})
	return entry
}

// SaveSchedule stores the schedule for city, replacing any previous entry.
func (c *Cache) SaveSchedule(city, day string, s prayer.Schedule, fetchedAt time.Time) error {
	data, err := json.Marshal(ScheduleEntry{
		City:      city,
		Day:       day,
		Schedule:  s,
		FetchedAt: fetchedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSchedules)).Put([]byte(city), data)
	})
}

// LoadGeo returns the cached geolocation result, or nil if it is missing or
// older than 24 hours at now.
func (c *Cache) LoadGeo(now time.Time) *geo.Location {
	var loc *geo.Location
	_ = c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketGeo)).Get([]byte(geoKey))
		if data == nil {
			return nil
		}
		var e GeoEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil
		}
		if now.Sub(e.CachedAt) > geoTTL {
			return nil
		}
		loc = &e.Location
		return nil
	})
	return loc
}

// SaveGeo stores a geolocation result.
func (c *Cache) SaveGeo(loc *geo.Location, now time.Time) error {
	if loc == nil {
		return errors.New("location is required")
	}
	data, err := json.Marshal(GeoEntry{Location: *loc, CachedAt: now})
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketGeo)).Put([]byte(geoKey), data)
	})
}

// Provider serves same-day schedules from the cache and falls through to
// Inner otherwise. Successful upstream results with a known day are written
// back.
type Provider struct {
	Inner api.Provider
	Cache *Cache
	// Now stamps FetchedAt. Defaults to time.Now.
	Now func() time.Time
}

// Fetch implements api.Provider.
func (p *Provider) Fetch(ctx context.Context, city string, day time.Time) (prayer.Schedule, string, error) {
	if e := p.Cache.LoadSchedule(city, day); e != nil {
		log.Debug().Str("city", city).Str("day", e.Day).Msg("schedule served from cache")
		return e.Schedule, e.Day, nil
	}

	s, docDay, err := p.Inner.Fetch(ctx, city, day)
	if err != nil {
		return prayer.Schedule{}, "", err
	}

	if docDay == "" {
		// Without a day the entry could never be told apart from a stale one.
		log.Debug().Str("city", city).Msg("undated schedule not cached")
		return s, docDay, nil
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	if err := p.Cache.SaveSchedule(city, docDay, s, now()); err != nil {
		log.Warn().Err(err).Str("city", city).Msg("failed to write schedule cache")
	}
	return s, docDay, nil
}
