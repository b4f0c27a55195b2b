package database

import (
	"database/sql"
	"fmt"

	"github.com/diegoclair/slack-standup-bot/internal/domain/contract"
	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
)

const userColumns = `id, channel_id, slack_user_id, slack_user_name, display_name,
		is_bot, is_admin, send_report, is_active, joined_at`

type userRepo struct {
	db dbConn
}

func newUserRepo(db dbConn) contract.UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) Create(user *entity.User) error {
	query := `
		INSERT INTO users (channel_id, slack_user_id, slack_user_name, display_name, is_bot, is_admin, send_report, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		user.ChannelID,
		user.SlackUserID,
		user.SlackUserName,
		user.DisplayName,
		user.IsBot,
		user.IsAdmin,
		user.SendReport,
		user.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

func (r *userRepo) scanUser(row *sql.Row) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(
		&user.ID,
		&user.ChannelID,
		&user.SlackUserID,
		&user.SlackUserName,
		&user.DisplayName,
		&user.IsBot,
		&user.IsAdmin,
		&user.SendReport,
		&user.IsActive,
		&user.JoinedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (r *userRepo) GetByID(id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	return r.scanUser(r.db.QueryRow(query, id))
}

func (r *userRepo) GetByChannelAndSlackID(channelID int64, slackUserID string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE channel_id = ? AND slack_user_id = ?`

	return r.scanUser(r.db.QueryRow(query, channelID, slackUserID))
}

func (r *userRepo) GetBySlackID(slackUserID string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE slack_user_id = ? LIMIT 1`

	return r.scanUser(r.db.QueryRow(query, slackUserID))
}

func (r *userRepo) GetActiveUsersByChannel(channelID int64) ([]*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE channel_id = ? AND is_active = 1
		ORDER BY joined_at ASC
	`

	return r.queryUsers(query, channelID)
}

func (r *userRepo) GetReportRecipients(channelID int64) ([]*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE channel_id = ? AND is_active = 1 AND send_report = 1
		ORDER BY joined_at ASC
	`

	return r.queryUsers(query, channelID)
}

func (r *userRepo) queryUsers(query string, args ...interface{}) ([]*entity.User, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user := &entity.User{}
		err := rows.Scan(
			&user.ID,
			&user.ChannelID,
			&user.SlackUserID,
			&user.SlackUserName,
			&user.DisplayName,
			&user.IsBot,
			&user.IsAdmin,
			&user.SendReport,
			&user.IsActive,
			&user.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, nil
}

func (r *userRepo) Delete(userID int64) error {
	query := `DELETE FROM users WHERE id = ?`

	_, err := r.db.Exec(query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
