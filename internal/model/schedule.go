package model

import "time"

// WeeklyRule is one recurring working block for a business.
// Multiple rules per weekday are allowed and may overlap; the slot engine
// de-duplicates candidate starts. Rules are replaced wholesale when the owner
// saves schedule settings.
type WeeklyRule struct {
	BusinessID  string
	Weekday     int // 0=Sunday .. 6=Saturday
	StartMinute int
	EndMinute   int
}

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	Price           string
	Active          bool
	CreatedAt       time.Time
}

// Business carries display metadata. Timezone is the stored IANA zone name
// and is informational only; dates and times stay business-local.
type Business struct {
	ID       string
	Name     string
	Timezone string
}
