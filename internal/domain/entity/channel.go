package entity

import "time"

type Channel struct {
	ID               int64
	SlackChannelID   string
	SlackChannelName string
	SlackTeamID      string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
