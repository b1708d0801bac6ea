// Package office holds the tenant model: one office per dental practice, with
// its PMS vendor configuration and business hours.
package office

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/brightsmile/reception/internal/pms"
)

var (
	ErrNotFound     = errors.New("office not found")
	ErrInvalidHours = errors.New("invalid business hours")
)

// Hours holds open/close minutes-from-midnight per weekday, indexed by
// time.Weekday (Sunday = 0). Open == Close means closed that day.
type Hours struct {
	Open  [7]int
	Close [7]int
}

// DefaultHours returns Mon-Fri 08:00-18:00, closed weekends.
func DefaultHours() Hours {
	var h Hours
	for d := time.Monday; d <= time.Friday; d++ {
		h.Open[d] = 8 * 60
		h.Close[d] = 18 * 60
	}
	return h
}

// Validate checks the hour ranges.
func (h Hours) Validate() error {
	for d := 0; d < 7; d++ {
		if h.Open[d] < 0 || h.Close[d] > 24*60 || h.Open[d] > h.Close[d] {
			return ErrInvalidHours
		}
	}
	return nil
}

// IsOpen reports whether [startMin, endMin) falls inside the configured hours
// for the given weekday.
func (h Hours) IsOpen(day time.Weekday, startMin, endMin int) bool {
	return startMin >= h.Open[day] && endMin <= h.Close[day] && h.Open[day] < h.Close[day]
}

// Office is a tenant's PMS configuration.
type Office struct {
	ID          uuid.UUID
	Name        string
	PMSType     pms.Vendor
	PMSBaseURL  string
	PMSTokenURL string
	// SealedCredentials is the AES-GCM sealed JSON credential blob as stored.
	SealedCredentials []byte
	Timezone          string
	Hours             Hours
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
