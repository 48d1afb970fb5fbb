package models

import "time"

// SystemMetrics is a point-in-time summary of process instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ListingCacheHits         uint64    `json:"listing_cache_hits"`
	ListingCacheMisses       uint64    `json:"listing_cache_misses"`
	ListingCacheHitRatio     float64   `json:"listing_cache_hit_ratio"`
	RSVPJoined               uint64    `json:"rsvp_joined"`
	RSVPLeft                 uint64    `json:"rsvp_left"`
	RSVPRejected             uint64    `json:"rsvp_rejected"`
	NoticesDelivered         uint64    `json:"notices_delivered"`
	NoticesFailed            uint64    `json:"notices_failed"`
	UpcomingEvents           int64     `json:"upcoming_events"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
