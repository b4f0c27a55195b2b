package contract

import (
	"context"
	"time"

	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
)

// DataManager aggregates all repository interfaces
type DataManager interface {
	WithTransaction(ctx context.Context, fn func(dm DataManager) error) error
	Channel() ChannelRepo
	User() UserRepo
	Standup() StandupRepo
	Scheduler() SchedulerRepo
}

// ChannelRepo defines the contract for channel repository
type ChannelRepo interface {
	Create(channel *entity.Channel) error
	GetBySlackID(slackChannelID string) (*entity.Channel, error)
	GetByID(id int64) (*entity.Channel, error)
	Update(channel *entity.Channel) error
	GetActiveChannels() ([]*entity.Channel, error)
}

// UserRepo defines the contract for user repository
type UserRepo interface {
	Create(user *entity.User) error
	GetByID(id int64) (*entity.User, error)
	GetByChannelAndSlackID(channelID int64, slackUserID string) (*entity.User, error)
	GetBySlackID(slackUserID string) (*entity.User, error)
	GetActiveUsersByChannel(channelID int64) ([]*entity.User, error)
	GetReportRecipients(channelID int64) ([]*entity.User, error)
	Delete(userID int64) error
}

// StandupRepo defines the contract for the daily standup records. Days are
// calendar dates; the time portion of day arguments is ignored.
type StandupRepo interface {
	// CreateIfAbsent inserts the record unless one already exists for the
	// same (channel, user, day); either way the stored record is loaded
	// back into standup.
	CreateIfAbsent(standup *entity.Standup) error
	GetForDay(channelID, userID int64, day time.Time) (*entity.Standup, error)
	Update(standup *entity.Standup) error
	ListForDay(channelID int64, day time.Time) ([]*entity.Standup, error)
	PendingForDay(channelID int64, day time.Time) ([]*entity.Standup, error)
	MaxOrderForDay(channelID int64, day time.Time) (int, error)
}

// SchedulerRepo defines the contract for scheduler repository
type SchedulerRepo interface {
	Create(scheduler *entity.Scheduler) error
	GetByChannelID(channelID int64) (*entity.Scheduler, error)
	Update(scheduler *entity.Scheduler) error
	GetEnabled() ([]*entity.Scheduler, error)
	SetEnabled(channelID int64, enabled bool) error
}
