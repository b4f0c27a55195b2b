package contract

import (
	"context"

	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
)

type StandupService interface {
	SetupChannel(slackChannelID, channelName, teamID string) (*entity.Channel, bool, error)
	AddUser(channelID int64, slackUserID string) error
	RemoveUser(channelID int64, slackUserID string) error
	ListUsers(channelID int64) ([]*entity.User, error)
	CreateIfNeeded(ctx context.Context, user *entity.User, channelID int64) (*entity.Standup, error)
	MarkUnavailable(ctx context.Context, channelID int64, slackUserID string) error
	TodayReport(ctx context.Context, channelID int64) (string, error)
}

// MessageDispatcher routes inbound channel messages to commands or answer
// processing.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, slackChannelID, slackUserID, text string) error
}
