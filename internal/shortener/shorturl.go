package shortener

import "time"

// Code represents a short URL code.
type Code string

// URLHash represents the digest of a long URL, used for duplicate detection.
type URLHash string

// ShortURL is the persisted short-code -> long URL record.
type ShortURL struct {
	ID        int64
	Code      Code // empty while the record is provisional
	LongURL   string
	URLHash   URLHash
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	OwnerID   string // empty for anonymous callers
	Deleted   bool
}

// Provisional reports whether the record has not been assigned a code yet.
func (s *ShortURL) Provisional() bool {
	return s.Code == ""
}

// ExpiredAt reports whether the record is no longer resolvable at now.
func (s *ShortURL) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
