package entity

import "time"

type User struct {
	ID            int64
	ChannelID     int64
	SlackUserID   string
	SlackUserName string
	DisplayName   string
	IsBot         bool
	IsAdmin       bool
	SendReport    bool
	IsActive      bool
	JoinedAt      time.Time
}
