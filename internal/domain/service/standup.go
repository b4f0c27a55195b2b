package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/diegoclair/slack-standup-bot/internal/domain"
	"github.com/diegoclair/slack-standup-bot/internal/domain/contract"
	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
	"github.com/slack-go/slack"
)

type standupService struct {
	dm          contract.DataManager
	slackClient contract.SlackClient
	locks       *recordLocks
	scheduler   *scheduler
}

func newStandup(dm contract.DataManager, slackClient contract.SlackClient) *standupService {
	return &standupService{
		dm:          dm,
		slackClient: slackClient,
		locks:       newRecordLocks(),
		scheduler:   nil, // Will be set later to avoid circular dependency
	}
}

func (s *standupService) SetScheduler(scheduler *scheduler) {
	s.scheduler = scheduler
}

// today returns the current calendar day. Standup records are keyed by this
// date, so a new day means new records.
func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func (s *standupService) SetupChannel(slackChannelID, slackChannelName, slackTeamID string) (*entity.Channel, bool, error) {
	// Check if channel already exists
	channel, err := s.dm.Channel().GetBySlackID(slackChannelID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check channel: %w", err)
	}

	if channel != nil {
		return channel, false, nil // Channel already existed
	}

	channel = &entity.Channel{
		SlackChannelID:   slackChannelID,
		SlackChannelName: slackChannelName,
		SlackTeamID:      slackTeamID,
		IsActive:         true,
	}

	if err := s.dm.Channel().Create(channel); err != nil {
		return nil, false, fmt.Errorf("failed to create channel: %w", err)
	}

	// Create default scheduler config
	scheduler := &entity.Scheduler{
		ChannelID:        channel.ID,
		NotificationTime: domain.DefaultNotificationTime,
		ActiveDays:       domain.DefaultActiveDays,
		IsEnabled:        true,
	}

	if err := s.dm.Scheduler().Create(scheduler); err != nil {
		return nil, false, fmt.Errorf("failed to create scheduler config: %w", err)
	}

	return channel, true, nil // Channel was auto-created
}

func (s *standupService) AddUser(channelID int64, slackUserID string) error {
	userInfo, err := s.slackClient.GetUserInfo(slackUserID)
	if err != nil {
		return fmt.Errorf("failed to get user info from Slack: %w", err)
	}

	existingUser, err := s.dm.User().GetByChannelAndSlackID(channelID, slackUserID)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if existingUser != nil {
		return fmt.Errorf("user is already in the standup")
	}

	displayName := userInfo.Profile.RealName
	if displayName == "" {
		displayName = userInfo.Profile.DisplayName
	}
	if displayName == "" {
		displayName = userInfo.Name
	}

	user := &entity.User{
		ChannelID:     channelID,
		SlackUserID:   slackUserID,
		SlackUserName: userInfo.Name,
		DisplayName:   displayName,
		IsBot:         userInfo.IsBot,
		IsAdmin:       userInfo.IsAdmin,
		SendReport:    userInfo.IsAdmin,
		IsActive:      true,
	}

	return s.dm.User().Create(user)
}

func (s *standupService) RemoveUser(channelID int64, slackUserID string) error {
	user, err := s.dm.User().GetByChannelAndSlackID(channelID, slackUserID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		return fmt.Errorf("user not found in standup")
	}

	return s.dm.User().Delete(user.ID)
}

func (s *standupService) ListUsers(channelID int64) ([]*entity.User, error) {
	return s.dm.User().GetActiveUsersByChannel(channelID)
}

// CreateIfNeeded loads or creates the user's standup record for today. Bots
// never get a record; the call returns nil for them.
func (s *standupService) CreateIfNeeded(ctx context.Context, user *entity.User, channelID int64) (*entity.Standup, error) {
	if user.IsBot {
		return nil, nil
	}

	standup := &entity.Standup{
		ChannelID:   channelID,
		UserID:      user.ID,
		StandupDate: today(),
		State:       entity.StateIdle,
		Order:       1,
	}

	if err := s.dm.Standup().CreateIfAbsent(standup); err != nil {
		return nil, fmt.Errorf("failed to create standup: %w", err)
	}

	return standup, nil
}

// ProcessAnswer normalizes rawText, stores it in the first unanswered slot
// and finishes the standup once all three answers are in. It returns the
// message to post back: the next question, or the completion note.
func (s *standupService) ProcessAnswer(ctx context.Context, user *entity.User, standup *entity.Standup, rawText string) (string, error) {
	answer := s.replaceMentions(rawText)

	if !standup.SetNextAnswer(answer) {
		return "", nil
	}

	if standup.AllAnswered() {
		if err := standup.Fire(entity.EventFinish); err != nil {
			return "", err
		}
	}

	if err := s.dm.Standup().Update(standup); err != nil {
		return "", fmt.Errorf("failed to update standup: %w", err)
	}

	if standup.State == entity.StateDone {
		return fmt.Sprintf("Thanks <@%s>! Your order is complete.", user.SlackUserID), nil
	}

	return fmt.Sprintf("<@%s> %s", user.SlackUserID, standup.CurrentQuestion()), nil
}

// DeleteAnswer clears the answer for the given question number. It never
// changes the record's state.
func (s *standupService) DeleteAnswer(ctx context.Context, standup *entity.Standup, number int) error {
	standup.ClearAnswer(number)

	if err := s.dm.Standup().Update(standup); err != nil {
		return fmt.Errorf("failed to update standup: %w", err)
	}

	return nil
}

// Postpone sends the record back to the queue, behind everyone else. The
// max-order read and the new order write happen in one transaction so two
// concurrent postpones cannot compute the same position.
func (s *standupService) Postpone(ctx context.Context, standup *entity.Standup) error {
	return s.dm.WithTransaction(ctx, func(tx contract.DataManager) error {
		maxOrder, err := tx.Standup().MaxOrderForDay(standup.ChannelID, standup.StandupDate)
		if err != nil {
			return err
		}

		if err := standup.Fire(entity.EventSkip); err != nil {
			return err
		}
		standup.Order = maxOrder + 1

		if err := tx.Standup().Update(standup); err != nil {
			return fmt.Errorf("failed to update standup: %w", err)
		}

		return nil
	})
}

// AutoSkip postpones a stalled active record on the participant's behalf,
// bounded by MaximumAutoSkippedTimes. Past the cap the record is left
// untouched for a human to resolve. It reports whether a skip happened.
func (s *standupService) AutoSkip(ctx context.Context, standup *entity.Standup) (bool, error) {
	if standup.State != entity.StateActive {
		return false, nil
	}
	if standup.AutoSkippedTimes >= domain.MaximumAutoSkippedTimes {
		return false, nil
	}

	err := s.dm.WithTransaction(ctx, func(tx contract.DataManager) error {
		maxOrder, err := tx.Standup().MaxOrderForDay(standup.ChannelID, standup.StandupDate)
		if err != nil {
			return err
		}

		if err := standup.Fire(entity.EventSkip); err != nil {
			return err
		}
		standup.Order = maxOrder + 1
		standup.AutoSkippedTimes++

		if err := tx.Standup().Update(standup); err != nil {
			return fmt.Errorf("failed to update standup: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// Vacation marks the record as on vacation for the day.
func (s *standupService) Vacation(ctx context.Context, standup *entity.Standup) error {
	return s.fireAndUpdate(standup, entity.EventVacation)
}

// NotAvailable marks the record as not available for the day.
func (s *standupService) NotAvailable(ctx context.Context, standup *entity.Standup) error {
	return s.fireAndUpdate(standup, entity.EventNotAvailable)
}

// MarkUnavailable closes a participant's turn for the day as not available
// and moves the queue forward. Only an activated record can be closed this
// way; any other state surfaces the transition error.
func (s *standupService) MarkUnavailable(ctx context.Context, channelID int64, slackUserID string) error {
	user, err := s.dm.User().GetByChannelAndSlackID(channelID, slackUserID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user not found in standup")
	}

	unlock := s.locks.acquire(recordKey(channelID, user.ID, today()))
	defer unlock()

	standup, err := s.CreateIfNeeded(ctx, user, channelID)
	if err != nil {
		return err
	}
	if standup == nil {
		return fmt.Errorf("user not found in standup")
	}

	if err := s.NotAvailable(ctx, standup); err != nil {
		return err
	}

	channel, err := s.dm.Channel().GetByID(channelID)
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	if channel == nil {
		return nil
	}

	question, err := s.ActivateNext(ctx, channelID, today())
	if err != nil {
		return err
	}
	if question != "" {
		return s.postMessage(channel.SlackChannelID, question)
	}

	done, err := s.AllCompleted(ctx, channelID, today())
	if err != nil {
		return err
	}
	if done {
		return s.SendTodayReport(ctx, channel)
	}

	return nil
}

func (s *standupService) fireAndUpdate(standup *entity.Standup, event entity.StandupEvent) error {
	if err := standup.Fire(event); err != nil {
		return err
	}

	if err := s.dm.Standup().Update(standup); err != nil {
		return fmt.Errorf("failed to update standup: %w", err)
	}

	return nil
}

// ActivateNext moves the channel's daily queue forward: if nobody is in
// progress it activates the first pending record and returns its opening
// question. When the queue is exhausted it returns an empty string.
func (s *standupService) ActivateNext(ctx context.Context, channelID int64, day time.Time) (string, error) {
	standups, err := s.dm.Standup().ListForDay(channelID, day)
	if err != nil {
		return "", fmt.Errorf("failed to list standups: %w", err)
	}

	for _, st := range standups {
		if st.InProgress() {
			return "", nil
		}
	}

	pending, err := s.dm.Standup().PendingForDay(channelID, day)
	if err != nil {
		return "", fmt.Errorf("failed to list pending standups: %w", err)
	}

	if len(pending) == 0 {
		return "", nil
	}

	next := pending[0]
	if err := next.Fire(entity.EventInit); err != nil {
		return "", err
	}

	if err := s.dm.Standup().Update(next); err != nil {
		return "", fmt.Errorf("failed to update standup: %w", err)
	}

	user, err := s.dm.User().GetByID(next.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", fmt.Errorf("user %d not found for standup %d", next.UserID, next.ID)
	}

	return fmt.Sprintf("<@%s> %s", user.SlackUserID, next.CurrentQuestion()), nil
}

// AllCompleted reports whether every record of the channel-day is done,
// on vacation or not available.
func (s *standupService) AllCompleted(ctx context.Context, channelID int64, day time.Time) (bool, error) {
	standups, err := s.dm.Standup().ListForDay(channelID, day)
	if err != nil {
		return false, fmt.Errorf("failed to list standups: %w", err)
	}

	if len(standups) == 0 {
		return false, nil
	}

	for _, st := range standups {
		if !st.Completed() {
			return false, nil
		}
	}

	return true, nil
}

// TodayReport renders the status of every record of the channel for today.
// It returns an empty string when there are no records, and nothing should
// be sent in that case.
func (s *standupService) TodayReport(ctx context.Context, channelID int64) (string, error) {
	day := today()

	standups, err := s.dm.Standup().ListForDay(channelID, day)
	if err != nil {
		return "", fmt.Errorf("failed to list standups: %w", err)
	}

	if len(standups) == 0 {
		return "", nil
	}

	var report strings.Builder
	report.WriteString(fmt.Sprintf("*Order for %s*\n", day.Format("Monday, 02 January, 2006")))

	for _, st := range standups {
		user, err := s.dm.User().GetByID(st.UserID)
		if err != nil {
			return "", fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			continue
		}

		report.WriteString(st.StatusLine(user.SlackUserID))
		report.WriteString("\n")
	}

	return report.String(), nil
}

// SendTodayReport posts the daily report to the channel and sends a copy by
// direct message to every report recipient. No records means no messages.
func (s *standupService) SendTodayReport(ctx context.Context, channel *entity.Channel) error {
	report, err := s.TodayReport(ctx, channel.ID)
	if err != nil {
		return err
	}

	if report == "" {
		return nil
	}

	if err := s.postMessage(channel.SlackChannelID, report); err != nil {
		return err
	}

	recipients, err := s.dm.User().GetReportRecipients(channel.ID)
	if err != nil {
		return fmt.Errorf("failed to get report recipients: %w", err)
	}

	for _, recipient := range recipients {
		if err := s.postMessage(recipient.SlackUserID, report); err != nil {
			return err
		}
	}

	return nil
}

func (s *standupService) UpdateChannelConfig(channelID int64, configType, value string) error {
	scheduler, err := s.dm.Scheduler().GetByChannelID(channelID)
	if err != nil {
		return fmt.Errorf("failed to get scheduler config: %w", err)
	}

	if scheduler == nil {
		// Create default scheduler config if it doesn't exist
		scheduler = &entity.Scheduler{
			ChannelID:        channelID,
			NotificationTime: domain.DefaultNotificationTime,
			ActiveDays:       domain.DefaultActiveDays,
			IsEnabled:        true,
		}
		if err := s.dm.Scheduler().Create(scheduler); err != nil {
			return fmt.Errorf("failed to create scheduler config: %w", err)
		}
	}

	switch configType {
	case "time":
		// Validate time format HH:MM
		if _, err := time.Parse("15:04", value); err != nil {
			return fmt.Errorf("invalid time format. Use HH:MM (24-hour format). Example: 09:30")
		}
		scheduler.NotificationTime = value
	case "days":
		days := parseDays(value)
		if len(days) == 0 {
			return fmt.Errorf("invalid days. Use numbers 1-7 (1=Mon, 2=Tue, 3=Wed, 4=Thu, 5=Fri, 6=Sat, 7=Sun). Example: 1,2,4,5")
		}
		scheduler.ActiveDays = days
	default:
		return fmt.Errorf("invalid configuration type. Use 'time' or 'days'")
	}

	if err := s.dm.Scheduler().Update(scheduler); err != nil {
		return err
	}

	// Notify scheduler of configuration change
	if s.scheduler != nil {
		s.scheduler.NotifyConfigChange()
	}

	return nil
}

func (s *standupService) PauseScheduler(channelID int64) error {
	err := s.dm.Scheduler().SetEnabled(channelID, false)
	if err != nil {
		return fmt.Errorf("failed to pause scheduler: %w", err)
	}

	if s.scheduler != nil {
		s.scheduler.NotifyConfigChange()
	}

	return nil
}

func (s *standupService) ResumeScheduler(channelID int64) error {
	err := s.dm.Scheduler().SetEnabled(channelID, true)
	if err != nil {
		return fmt.Errorf("failed to resume scheduler: %w", err)
	}

	if s.scheduler != nil {
		s.scheduler.NotifyConfigChange()
	}

	return nil
}

func parseDays(input string) []int {
	parts := strings.Split(strings.TrimSpace(input), ",")
	var days []int

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if dayNum, ok := domain.WeekdayNumbers[part]; ok {
			days = append(days, dayNum)
		}
	}

	// Sort days in week order (1-7)
	sort.Ints(days)
	return days
}

func (s *standupService) postMessage(slackID, text string) error {
	_, _, err := s.slackClient.PostMessage(slackID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}

	return nil
}
