package models

import "time"

// CacheStats reports the state of the local store.
type CacheStats struct {
	Entries      int64     `json:"entries"`
	TotalRecords int64     `json:"total_records"`
	Coordinates  int64     `json:"coordinates"`
	OldestFetch  time.Time `json:"oldest_fetch,omitempty"`
	NewestFetch  time.Time `json:"newest_fetch,omitempty"`
	Hits         int64     `json:"hits"`
	Misses       int64     `json:"misses"`
}
