package entity

import "time"

// Scheduler holds the per-channel daily trigger configuration.
type Scheduler struct {
	ID               int64
	ChannelID        int64
	NotificationTime string // HH:MM, UTC
	ActiveDays       []int  // ISO 8601 weekday numbers
	IsEnabled        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
