package database

import (
	"context"
	"testing"
	"time"

	"github.com/diegoclair/slack-standup-bot/internal/domain/contract"
	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestChannelAndUser(t *testing.T, dm *instance) (*entity.Channel, *entity.User) {
	t.Helper()

	channel := &entity.Channel{
		SlackChannelID:   "C123456",
		SlackChannelName: "test-channel",
		SlackTeamID:      "T123456",
		IsActive:         true,
	}
	require.NoError(t, dm.Channel().Create(channel))

	user := &entity.User{
		ChannelID:     channel.ID,
		SlackUserID:   "U123456",
		SlackUserName: "testuser",
		DisplayName:   "Test User",
		IsActive:      true,
	}
	require.NoError(t, dm.User().Create(user))

	return channel, user
}

func createTestUser(t *testing.T, dm *instance, channelID int64, slackUserID string) *entity.User {
	t.Helper()

	user := &entity.User{
		ChannelID:     channelID,
		SlackUserID:   slackUserID,
		SlackUserName: slackUserID,
		DisplayName:   slackUserID,
		IsActive:      true,
	}
	require.NoError(t, dm.User().Create(user))

	return user
}

func TestStandupRepo_CreateIfAbsent(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	dm := NewInstance(db).(*instance)
	channel, user := createTestChannelAndUser(t, dm)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	standup := &entity.Standup{
		ChannelID:   channel.ID,
		UserID:      user.ID,
		StandupDate: day,
		State:       entity.StateIdle,
		Order:       1,
	}
	require.NoError(t, dm.Standup().CreateIfAbsent(standup))
	require.NotZero(t, standup.ID)

	t.Run("Should be idempotent for the same channel, user and day", func(t *testing.T) {
		again := &entity.Standup{
			ChannelID:   channel.ID,
			UserID:      user.ID,
			StandupDate: day,
			State:       entity.StateIdle,
			Order:       5,
		}
		require.NoError(t, dm.Standup().CreateIfAbsent(again))

		assert.Equal(t, standup.ID, again.ID)
		assert.Equal(t, 1, again.Order, "existing row wins over the caller's values")
	})

	t.Run("Should load the stored state instead of resetting it", func(t *testing.T) {
		standup.State = entity.StateActive
		require.NoError(t, dm.Standup().Update(standup))

		reloaded := &entity.Standup{
			ChannelID:   channel.ID,
			UserID:      user.ID,
			StandupDate: day,
		}
		require.NoError(t, dm.Standup().CreateIfAbsent(reloaded))

		assert.Equal(t, standup.ID, reloaded.ID)
		assert.Equal(t, entity.StateActive, reloaded.State)
	})

	t.Run("Should create a separate record for another day", func(t *testing.T) {
		nextDay := &entity.Standup{
			ChannelID:   channel.ID,
			UserID:      user.ID,
			StandupDate: day.AddDate(0, 0, 1),
		}
		require.NoError(t, dm.Standup().CreateIfAbsent(nextDay))

		assert.NotEqual(t, standup.ID, nextDay.ID)
		assert.Equal(t, entity.StateIdle, nextDay.State)
	})
}

func TestStandupRepo_GetForDay(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	dm := NewInstance(db).(*instance)
	channel, user := createTestChannelAndUser(t, dm)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	standup := &entity.Standup{ChannelID: channel.ID, UserID: user.ID, StandupDate: day}
	require.NoError(t, dm.Standup().CreateIfAbsent(standup))

	t.Run("Should find the record for its day", func(t *testing.T) {
		got, err := dm.Standup().GetForDay(channel.ID, user.ID, day)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, standup.ID, got.ID)
		assert.True(t, got.StandupDate.Equal(day))
	})

	t.Run("Should ignore the time of day of the argument", func(t *testing.T) {
		got, err := dm.Standup().GetForDay(channel.ID, user.ID, day.Add(15*time.Hour))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, standup.ID, got.ID)
	})

	t.Run("Should return nil for a day without a record", func(t *testing.T) {
		got, err := dm.Standup().GetForDay(channel.ID, user.ID, day.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestStandupRepo_Update(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	dm := NewInstance(db).(*instance)
	channel, user := createTestChannelAndUser(t, dm)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	standup := &entity.Standup{ChannelID: channel.ID, UserID: user.ID, StandupDate: day}
	require.NoError(t, dm.Standup().CreateIfAbsent(standup))

	standup.State = entity.StateDone
	standup.Yesterday = "chicken madras"
	standup.Today = "pulau"
	standup.Conflicts = "garlic naan"
	standup.Order = 4
	standup.AutoSkippedTimes = 1
	standup.Reason = "late start"
	require.NoError(t, dm.Standup().Update(standup))

	got, err := dm.Standup().GetForDay(channel.ID, user.ID, day)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, entity.StateDone, got.State)
	assert.Equal(t, "chicken madras", got.Yesterday)
	assert.Equal(t, "pulau", got.Today)
	assert.Equal(t, "garlic naan", got.Conflicts)
	assert.Equal(t, 4, got.Order)
	assert.Equal(t, 1, got.AutoSkippedTimes)
	assert.Equal(t, "late start", got.Reason)
}

func TestStandupRepo_Queues(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	dm := NewInstance(db).(*instance)
	channel, alice := createTestChannelAndUser(t, dm)
	bob := createTestUser(t, dm, channel.ID, "U234567")
	carol := createTestUser(t, dm, channel.ID, "U345678")

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	first := &entity.Standup{ChannelID: channel.ID, UserID: alice.ID, StandupDate: day, Order: 1}
	second := &entity.Standup{ChannelID: channel.ID, UserID: bob.ID, StandupDate: day, Order: 2}
	third := &entity.Standup{ChannelID: channel.ID, UserID: carol.ID, StandupDate: day, Order: 3}
	for _, standup := range []*entity.Standup{first, second, third} {
		require.NoError(t, dm.Standup().CreateIfAbsent(standup))
	}

	second.State = entity.StateDone
	require.NoError(t, dm.Standup().Update(second))

	t.Run("Should list every record of the day in queue order", func(t *testing.T) {
		standups, err := dm.Standup().ListForDay(channel.ID, day)
		require.NoError(t, err)
		require.Len(t, standups, 3)
		assert.Equal(t, []int64{first.ID, second.ID, third.ID},
			[]int64{standups[0].ID, standups[1].ID, standups[2].ID})
	})

	t.Run("Should only return idle records as pending", func(t *testing.T) {
		pending, err := dm.Standup().PendingForDay(channel.ID, day)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, first.ID, pending[0].ID)
		assert.Equal(t, third.ID, pending[1].ID)
	})

	t.Run("Should report the maximum queue order of the day", func(t *testing.T) {
		max, err := dm.Standup().MaxOrderForDay(channel.ID, day)
		require.NoError(t, err)
		assert.Equal(t, 3, max)
	})

	t.Run("Should report zero for a day without records", func(t *testing.T) {
		max, err := dm.Standup().MaxOrderForDay(channel.ID, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 0, max)
	})

	t.Run("Should reorder a postponed record behind the maximum", func(t *testing.T) {
		first.State = entity.StateIdle
		first.Order = 4
		require.NoError(t, dm.Standup().Update(first))

		standups, err := dm.Standup().ListForDay(channel.ID, day)
		require.NoError(t, err)
		require.Len(t, standups, 3)
		assert.Equal(t, first.ID, standups[2].ID, "postponed record moves to the back")
	})
}

func TestInstance_WithTransaction(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	dm := NewInstance(db).(*instance)
	channel, user := createTestChannelAndUser(t, dm)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	standup := &entity.Standup{ChannelID: channel.ID, UserID: user.ID, StandupDate: day}
	require.NoError(t, dm.Standup().CreateIfAbsent(standup))

	t.Run("Should commit the callback's writes", func(t *testing.T) {
		err := dm.WithTransaction(context.Background(), func(tx contract.DataManager) error {
			standup.Order = 9
			return tx.Standup().Update(standup)
		})
		require.NoError(t, err)

		got, err := dm.Standup().GetForDay(channel.ID, user.ID, day)
		require.NoError(t, err)
		assert.Equal(t, 9, got.Order)
	})

	t.Run("Should roll back when the callback fails", func(t *testing.T) {
		err := dm.WithTransaction(context.Background(), func(tx contract.DataManager) error {
			standup.Order = 99
			if err := tx.Standup().Update(standup); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		got, err := dm.Standup().GetForDay(channel.ID, user.ID, day)
		require.NoError(t, err)
		assert.Equal(t, 9, got.Order, "rolled back write must not be visible")
	})
}
