package service

import (
	"context"
	"testing"
	"time"

	"github.com/diegoclair/slack-standup-bot/internal/domain"
	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCalculateNextForScheduler(t *testing.T) {
	m, ctrl := newServiceTestMock(t)
	defer ctrl.Finish()

	s := newScheduler(newTestService(m))

	weekdays := &entity.Scheduler{
		ID:               1,
		NotificationTime: "09:00",
		ActiveDays:       domain.DefaultActiveDays,
	}

	t.Run("Should open later today when the time has not passed", func(t *testing.T) {
		// Tuesday 2026-03-03 08:00 UTC
		now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

		next := s.calculateNextForScheduler(weekdays, now)

		assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("Should roll over to the next active day after the time passed", func(t *testing.T) {
		// Tuesday 2026-03-03 10:00 UTC
		now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

		next := s.calculateNextForScheduler(weekdays, now)

		assert.Equal(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("Should skip the weekend", func(t *testing.T) {
		// Saturday 2026-03-07 08:00 UTC
		now := time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC)

		next := s.calculateNextForScheduler(weekdays, now)

		assert.Equal(t, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), next)
		assert.Equal(t, time.Monday, next.Weekday())
	})

	t.Run("Should handle Sunday as ISO day 7", func(t *testing.T) {
		sundayOnly := &entity.Scheduler{
			ID:               2,
			NotificationTime: "09:00",
			ActiveDays:       []int{domain.Sunday},
		}
		// Sunday 2026-03-08 08:00 UTC
		now := time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC)

		next := s.calculateNextForScheduler(sundayOnly, now)

		assert.Equal(t, time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("Should return zero for a malformed time", func(t *testing.T) {
		broken := &entity.Scheduler{ID: 3, NotificationTime: "morning", ActiveDays: domain.DefaultActiveDays}

		assert.True(t, s.calculateNextForScheduler(broken, time.Now().UTC()).IsZero())
	})

	t.Run("Should return zero without active days", func(t *testing.T) {
		broken := &entity.Scheduler{ID: 4, NotificationTime: "09:00"}

		assert.True(t, s.calculateNextForScheduler(broken, time.Now().UTC()).IsZero())
	})
}

func TestOpenDayForChannel(t *testing.T) {
	t.Run("Should create records for every participant and activate the first", func(t *testing.T) {
		m, ctrl := newServiceTestMock(t)
		defer ctrl.Finish()

		channel := &entity.Channel{ID: 1, SlackChannelID: "C1", IsActive: true}
		alice := &entity.User{ID: 7, SlackUserID: "U1", IsActive: true}
		bob := &entity.User{ID: 8, SlackUserID: "U2", IsActive: true}
		bot := &entity.User{ID: 9, SlackUserID: "UBOT", IsBot: true, IsActive: true}

		m.mockChannelRepo.EXPECT().GetByID(int64(1)).Return(channel, nil)
		m.mockUserRepo.EXPECT().GetActiveUsersByChannel(int64(1)).
			Return([]*entity.User{alice, bot, bob}, nil)

		var created []*entity.Standup
		m.mockStandupRepo.EXPECT().
			CreateIfAbsent(gomock.Any()).
			DoAndReturn(func(standup *entity.Standup) error {
				standup.ID = int64(len(created) + 1)
				created = append(created, standup)
				return nil
			}).Times(2)

		// ActivateNext on the fresh day.
		m.mockStandupRepo.EXPECT().ListForDay(int64(1), today()).
			DoAndReturn(func(channelID int64, day time.Time) ([]*entity.Standup, error) {
				return created, nil
			})
		m.mockStandupRepo.EXPECT().PendingForDay(int64(1), today()).
			DoAndReturn(func(channelID int64, day time.Time) ([]*entity.Standup, error) {
				return created, nil
			})
		m.mockStandupRepo.EXPECT().Update(gomock.Any()).Return(nil)
		m.mockUserRepo.EXPECT().GetByID(int64(7)).Return(alice, nil)
		m.mockSlackClient.EXPECT().PostMessage("C1", gomock.Any()).Return("", "", nil)

		s := newScheduler(newTestService(m))

		require.NoError(t, s.openDayForChannel(1))

		require.Len(t, created, 2, "bots get no record")
		assert.Equal(t, int64(7), created[0].UserID)
		assert.Equal(t, 1, created[0].Order)
		assert.Equal(t, int64(8), created[1].UserID)
		assert.Equal(t, 2, created[1].Order)
		assert.Equal(t, entity.StateActive, created[0].State, "first in queue is asked immediately")
	})

	t.Run("Should nudge the channel when nobody is registered", func(t *testing.T) {
		m, ctrl := newServiceTestMock(t)
		defer ctrl.Finish()

		channel := &entity.Channel{ID: 1, SlackChannelID: "C1", IsActive: true}

		m.mockChannelRepo.EXPECT().GetByID(int64(1)).Return(channel, nil)
		m.mockUserRepo.EXPECT().GetActiveUsersByChannel(int64(1)).Return(nil, nil)
		m.mockSlackClient.EXPECT().PostMessage("C1", gomock.Any()).Return("", "", nil)

		s := newScheduler(newTestService(m))

		require.NoError(t, s.openDayForChannel(1))
	})
}

func TestSweepChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("Should postpone a stalled active record and activate the next", func(t *testing.T) {
		m, ctrl := newServiceTestMock(t)
		defer ctrl.Finish()

		channel := &entity.Channel{ID: 1, SlackChannelID: "C1", IsActive: true}
		stalled := &entity.Standup{
			ID:          1,
			ChannelID:   1,
			UserID:      7,
			StandupDate: today(),
			State:       entity.StateActive,
			Order:       1,
			UpdatedAt:   time.Now().Add(-2 * stallThreshold),
		}
		waiting := &entity.Standup{
			ID:          2,
			ChannelID:   1,
			UserID:      8,
			StandupDate: today(),
			State:       entity.StateIdle,
			Order:       2,
			UpdatedAt:   time.Now(),
		}

		m.mockChannelRepo.EXPECT().GetByID(int64(1)).Return(channel, nil)
		m.mockStandupRepo.EXPECT().ListForDay(int64(1), today()).
			Return([]*entity.Standup{stalled, waiting}, nil).Times(2)
		m.mockStandupRepo.EXPECT().GetForDay(int64(1), int64(7), today()).Return(stalled, nil)

		// AutoSkip runs in a transaction.
		expectInlineTransaction(m)
		m.mockStandupRepo.EXPECT().MaxOrderForDay(int64(1), today()).Return(2, nil)
		m.mockStandupRepo.EXPECT().Update(stalled).Return(nil)

		m.mockUserRepo.EXPECT().GetByID(int64(7)).Return(&entity.User{ID: 7, SlackUserID: "U1"}, nil)

		// ActivateNext picks up the waiting record, now first in queue order.
		m.mockStandupRepo.EXPECT().PendingForDay(int64(1), today()).
			Return([]*entity.Standup{waiting, stalled}, nil)
		m.mockStandupRepo.EXPECT().Update(waiting).Return(nil)
		m.mockUserRepo.EXPECT().GetByID(int64(8)).Return(&entity.User{ID: 8, SlackUserID: "U2"}, nil)

		// Skip notice plus the next question.
		m.mockSlackClient.EXPECT().PostMessage("C1", gomock.Any()).Return("", "", nil).Times(2)

		s := newScheduler(newTestService(m))

		require.NoError(t, s.sweepChannel(ctx, 1))
		assert.Equal(t, entity.StateIdle, stalled.State)
		assert.Equal(t, 3, stalled.Order)
		assert.Equal(t, 1, stalled.AutoSkippedTimes)
	})

	t.Run("Should leave fresh active records alone", func(t *testing.T) {
		m, ctrl := newServiceTestMock(t)
		defer ctrl.Finish()

		channel := &entity.Channel{ID: 1, SlackChannelID: "C1", IsActive: true}
		active := &entity.Standup{
			ID:          1,
			ChannelID:   1,
			UserID:      7,
			StandupDate: today(),
			State:       entity.StateActive,
			UpdatedAt:   time.Now(),
		}

		m.mockChannelRepo.EXPECT().GetByID(int64(1)).Return(channel, nil)
		m.mockStandupRepo.EXPECT().ListForDay(int64(1), today()).
			Return([]*entity.Standup{active}, nil)

		s := newScheduler(newTestService(m))

		require.NoError(t, s.sweepChannel(ctx, 1))
		assert.Equal(t, entity.StateActive, active.State)
	})

	t.Run("Should not skip a record answered between the listing and the lock", func(t *testing.T) {
		m, ctrl := newServiceTestMock(t)
		defer ctrl.Finish()

		channel := &entity.Channel{ID: 1, SlackChannelID: "C1", IsActive: true}
		listed := &entity.Standup{
			ID:          1,
			ChannelID:   1,
			UserID:      7,
			StandupDate: today(),
			State:       entity.StateActive,
			Order:       1,
			UpdatedAt:   time.Now().Add(-2 * stallThreshold),
		}
		fresh := &entity.Standup{
			ID:          1,
			ChannelID:   1,
			UserID:      7,
			StandupDate: today(),
			State:       entity.StateAnswering,
			Order:       1,
			Yesterday:   "madras",
			UpdatedAt:   time.Now(),
		}

		m.mockChannelRepo.EXPECT().GetByID(int64(1)).Return(channel, nil)
		m.mockStandupRepo.EXPECT().ListForDay(int64(1), today()).
			Return([]*entity.Standup{listed}, nil)
		// The stored record moved on since the listing; no skip, no messages.
		m.mockStandupRepo.EXPECT().GetForDay(int64(1), int64(7), today()).Return(fresh, nil)

		s := newScheduler(newTestService(m))

		require.NoError(t, s.sweepChannel(ctx, 1))
		assert.Equal(t, entity.StateAnswering, fresh.State)
		assert.Equal(t, 0, fresh.AutoSkippedTimes)
	})
}
