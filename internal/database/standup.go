package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/diegoclair/slack-standup-bot/internal/domain/contract"
	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
)

const standupColumns = `id, channel_id, user_id, standup_date, state,
		yesterday, today, conflicts, queue_order, auto_skipped_times, reason,
		created_at, updated_at`

// dateOnly normalizes a day argument to the stored calendar-date format.
func dateOnly(day time.Time) string {
	return day.Format("2006-01-02")
}

type standupRepo struct {
	db dbConn
}

func newStandupRepo(db dbConn) contract.StandupRepo {
	return &standupRepo{db: db}
}

func (r *standupRepo) CreateIfAbsent(standup *entity.Standup) error {
	if standup.State == "" {
		standup.State = entity.StateIdle
	}
	if standup.Order == 0 {
		standup.Order = 1
	}

	// The unique index on (channel_id, user_id, standup_date) makes this
	// idempotent even across concurrent callers.
	query := `
		INSERT OR IGNORE INTO standups (channel_id, user_id, standup_date, state, queue_order)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		standup.ChannelID,
		standup.UserID,
		dateOnly(standup.StandupDate),
		standup.State,
		standup.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to create standup: %w", err)
	}

	stored, err := r.GetForDay(standup.ChannelID, standup.UserID, standup.StandupDate)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("standup not found after create for channel %d user %d", standup.ChannelID, standup.UserID)
	}

	*standup = *stored
	return nil
}

func (r *standupRepo) GetForDay(channelID, userID int64, day time.Time) (*entity.Standup, error) {
	query := `
		SELECT ` + standupColumns + `
		FROM standups
		WHERE channel_id = ? AND user_id = ? AND standup_date = ?
	`

	standup, err := scanStandupRow(r.db.QueryRow(query, channelID, userID, dateOnly(day)))
	if err != nil {
		return nil, err
	}

	return standup, nil
}

func (r *standupRepo) Update(standup *entity.Standup) error {
	query := `
		UPDATE standups SET
			state = ?,
			yesterday = ?,
			today = ?,
			conflicts = ?,
			queue_order = ?,
			auto_skipped_times = ?,
			reason = ?,
			updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		standup.State,
		standup.Yesterday,
		standup.Today,
		standup.Conflicts,
		standup.Order,
		standup.AutoSkippedTimes,
		standup.Reason,
		time.Now(),
		standup.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update standup: %w", err)
	}

	return nil
}

func (r *standupRepo) ListForDay(channelID int64, day time.Time) ([]*entity.Standup, error) {
	query := `
		SELECT ` + standupColumns + `
		FROM standups
		WHERE channel_id = ? AND standup_date = ?
		ORDER BY queue_order ASC, id ASC
	`

	return r.queryStandups(query, channelID, dateOnly(day))
}

func (r *standupRepo) PendingForDay(channelID int64, day time.Time) ([]*entity.Standup, error) {
	query := `
		SELECT ` + standupColumns + `
		FROM standups
		WHERE channel_id = ? AND standup_date = ? AND state = ?
		ORDER BY queue_order ASC, id ASC
	`

	return r.queryStandups(query, channelID, dateOnly(day), entity.StateIdle)
}

func (r *standupRepo) MaxOrderForDay(channelID int64, day time.Time) (int, error) {
	query := `
		SELECT COALESCE(MAX(queue_order), 0)
		FROM standups
		WHERE channel_id = ? AND standup_date = ?
	`

	var max int
	if err := r.db.QueryRow(query, channelID, dateOnly(day)).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max standup order: %w", err)
	}

	return max, nil
}

func (r *standupRepo) queryStandups(query string, args ...interface{}) ([]*entity.Standup, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get standups: %w", err)
	}
	defer rows.Close()

	var standups []*entity.Standup
	for rows.Next() {
		standup, err := scanStandup(rows.Scan)
		if err != nil {
			return nil, err
		}
		standups = append(standups, standup)
	}

	return standups, nil
}

func scanStandupRow(row *sql.Row) (*entity.Standup, error) {
	standup, err := scanStandup(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return standup, err
}

func scanStandup(scan func(dest ...interface{}) error) (*entity.Standup, error) {
	standup := &entity.Standup{}
	var date string

	err := scan(
		&standup.ID,
		&standup.ChannelID,
		&standup.UserID,
		&date,
		&standup.State,
		&standup.Yesterday,
		&standup.Today,
		&standup.Conflicts,
		&standup.Order,
		&standup.AutoSkippedTimes,
		&standup.Reason,
		&standup.CreatedAt,
		&standup.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan standup: %w", err)
	}

	standup.StandupDate, err = time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse standup date %q: %w", date, err)
	}

	return standup, nil
}
