package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
)

// stallThreshold is how long an activated record may sit unanswered before
// the scheduler postpones it on the participant's behalf.
const stallThreshold = 1 * time.Hour

type scheduler struct {
	svc           *standupService
	configChanged chan struct{}
	stopChan      chan struct{}
	running       bool
}

func newScheduler(svc *standupService) *scheduler {
	return &scheduler{
		svc:           svc,
		configChanged: make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		running:       false,
	}
}

func (s *scheduler) Start() {
	if s.running {
		return
	}
	s.running = true
	log.Println("Scheduler starting...")
	go s.mainLoop()
}

func (s *scheduler) Stop() {
	if !s.running {
		return
	}
	log.Println("Scheduler stopping...")
	close(s.stopChan)
	s.running = false
}

func (s *scheduler) NotifyConfigChange() {
	// Non-blocking send to config change channel
	select {
	case s.configChanged <- struct{}{}:
	default:
		// Channel is full, scheduler will recalculate eventually
	}
}

func (s *scheduler) mainLoop() {
	sweep := time.NewTicker(stallThreshold)
	defer sweep.Stop()

	for {
		nextTime, channelIDs := s.findNextOpening()

		if len(channelIDs) == 0 {
			// No active non-paused channels - wait 1 hour and check again
			log.Println("No active channels found, waiting 1 hour...")
			timer := time.NewTimer(1 * time.Hour)
			select {
			case <-timer.C:
				continue
			case <-s.configChanged:
				timer.Stop()
				continue
			case <-s.stopChan:
				timer.Stop()
				return
			}
		}

		log.Printf("Next standup opening at %s for %d channels", nextTime.Format("2006-01-02 15:04:05 UTC"), len(channelIDs))

		waitDuration := time.Until(nextTime)
		if waitDuration <= 0 {
			// Time has already passed, open the day immediately
			s.openDay(channelIDs)
			// Wait 1 minute to prevent re-processing the same time
			log.Println("Opened standups, waiting 1 minute to prevent re-processing...")
			time.Sleep(1 * time.Minute)
			continue
		}

		timer := time.NewTimer(waitDuration)

		select {
		case <-timer.C:
			s.openDay(channelIDs)
			// Wait 1 minute to prevent re-processing the same time
			log.Println("Opened standups, waiting 1 minute to prevent re-processing...")
			time.Sleep(1 * time.Minute)

		case <-sweep.C:
			timer.Stop()
			s.sweepStalled()

		case <-s.configChanged:
			// Configuration changed, recalculate
			timer.Stop()
			log.Println("Configuration changed, recalculating schedule...")

		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

func (s *scheduler) findNextOpening() (time.Time, []int64) {
	schedulers, err := s.svc.dm.Scheduler().GetEnabled()
	if err != nil {
		log.Printf("Error getting enabled schedulers: %v", err)
		return time.Time{}, nil
	}

	if len(schedulers) == 0 {
		return time.Time{}, nil
	}

	now := time.Now().UTC()

	type channelNext struct {
		channelID int64
		nextTime  time.Time
	}

	var allNext []channelNext

	for _, sched := range schedulers {
		nextTime := s.calculateNextForScheduler(sched, now)
		if !nextTime.IsZero() {
			allNext = append(allNext, channelNext{
				channelID: sched.ChannelID,
				nextTime:  nextTime,
			})
		}
	}

	if len(allNext) == 0 {
		return time.Time{}, nil
	}

	sort.Slice(allNext, func(i, j int) bool {
		return allNext[i].nextTime.Before(allNext[j].nextTime)
	})

	earliestTime := allNext[0].nextTime

	var channelIDs []int64
	for _, cn := range allNext {
		if cn.nextTime.Equal(earliestTime) {
			channelIDs = append(channelIDs, cn.channelID)
		} else {
			break // Since it's sorted, we can break early
		}
	}

	return earliestTime, channelIDs
}

func (s *scheduler) calculateNextForScheduler(sched *entity.Scheduler, now time.Time) time.Time {
	parts := strings.Split(sched.NotificationTime, ":")
	if len(parts) != 2 {
		log.Printf("Invalid notification time format for scheduler %d: %s", sched.ID, sched.NotificationTime)
		return time.Time{}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		log.Printf("Invalid hour in notification time for scheduler %d: %s", sched.ID, parts[0])
		return time.Time{}
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		log.Printf("Invalid minute in notification time for scheduler %d: %s", sched.ID, parts[1])
		return time.Time{}
	}

	if len(sched.ActiveDays) == 0 {
		log.Printf("No active days configured for scheduler %d", sched.ID)
		return time.Time{}
	}

	activeDaysMap := make(map[int]bool)
	for _, day := range sched.ActiveDays {
		activeDaysMap[day] = true
	}

	// Try today first
	today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	todayWeekday := int(today.Weekday())
	if todayWeekday == 0 { // Sunday = 0 in Go, but we want 7 for ISO 8601
		todayWeekday = 7
	}

	if activeDaysMap[todayWeekday] && today.After(now) {
		return today
	}

	// Find next active day
	for i := 1; i <= 7; i++ {
		nextDay := today.AddDate(0, 0, i)
		nextWeekday := int(nextDay.Weekday())
		if nextWeekday == 0 {
			nextWeekday = 7
		}

		if activeDaysMap[nextWeekday] {
			return nextDay
		}
	}

	log.Printf("Could not find next opening time for scheduler %d", sched.ID)
	return time.Time{}
}

func (s *scheduler) openDay(channelIDs []int64) {
	log.Printf("Opening standups for %d channels", len(channelIDs))

	for _, channelID := range channelIDs {
		go func(cID int64) {
			if err := s.openDayForChannel(cID); err != nil {
				log.Printf("Failed to open standup for channel %d: %v", cID, err)
			}
		}(channelID)
	}
}

// openDayForChannel creates today's records for every active participant of
// the channel and activates the first one in queue order.
func (s *scheduler) openDayForChannel(channelID int64) error {
	ctx := context.Background()

	channel, err := s.svc.dm.Channel().GetByID(channelID)
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	if channel == nil {
		return fmt.Errorf("channel not found")
	}

	users, err := s.svc.ListUsers(channelID)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	order := 0
	for _, user := range users {
		if user.IsBot {
			continue
		}

		order++
		standup := &entity.Standup{
			ChannelID:   channelID,
			UserID:      user.ID,
			StandupDate: today(),
			State:       entity.StateIdle,
			Order:       order,
		}
		if err := s.svc.dm.Standup().CreateIfAbsent(standup); err != nil {
			return fmt.Errorf("failed to create standup: %w", err)
		}
	}

	if order == 0 {
		return s.svc.postMessage(channel.SlackChannelID,
			"No participants in the standup yet. Use `/standup add @user` to add team members!")
	}

	question, err := s.svc.ActivateNext(ctx, channelID, today())
	if err != nil {
		return err
	}
	if question == "" {
		return nil
	}

	log.Printf("Standup opened for channel %s", channel.SlackChannelID)
	return s.svc.postMessage(channel.SlackChannelID, question)
}

// sweepStalled postpones records that were activated but never answered, so
// one absent participant does not block the whole queue.
func (s *scheduler) sweepStalled() {
	ctx := context.Background()

	schedulers, err := s.svc.dm.Scheduler().GetEnabled()
	if err != nil {
		log.Printf("Error getting enabled schedulers: %v", err)
		return
	}

	for _, sched := range schedulers {
		if err := s.sweepChannel(ctx, sched.ChannelID); err != nil {
			log.Printf("Failed to sweep channel %d: %v", sched.ChannelID, err)
		}
	}
}

func (s *scheduler) sweepChannel(ctx context.Context, channelID int64) error {
	channel, err := s.svc.dm.Channel().GetByID(channelID)
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	if channel == nil {
		return nil
	}

	standups, err := s.svc.dm.Standup().ListForDay(channelID, today())
	if err != nil {
		return fmt.Errorf("failed to list standups: %w", err)
	}

	for _, candidate := range standups {
		if candidate.State != entity.StateActive || time.Since(candidate.UpdatedAt) < stallThreshold {
			continue
		}

		unlock := s.svc.locks.acquire(recordKey(candidate.ChannelID, candidate.UserID, candidate.StandupDate))
		// The listing above ran outside the lock; reload the record under
		// it so an answer that arrived in between is not skipped over.
		standup, err := s.svc.dm.Standup().GetForDay(candidate.ChannelID, candidate.UserID, candidate.StandupDate)
		if err != nil {
			unlock()
			return fmt.Errorf("failed to reload standup: %w", err)
		}
		if standup == nil || standup.State != entity.StateActive || time.Since(standup.UpdatedAt) < stallThreshold {
			unlock()
			continue
		}

		skipped, err := s.svc.AutoSkip(ctx, standup)
		unlock()
		if err != nil {
			return err
		}
		if !skipped {
			continue
		}

		user, err := s.svc.dm.User().GetByID(standup.UserID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user != nil {
			msg := fmt.Sprintf("<@%s> did not answer in time and has been moved to the back of the queue.", user.SlackUserID)
			if err := s.svc.postMessage(channel.SlackChannelID, msg); err != nil {
				return err
			}
		}

		question, err := s.svc.ActivateNext(ctx, channelID, today())
		if err != nil {
			return err
		}
		if question != "" {
			if err := s.svc.postMessage(channel.SlackChannelID, question); err != nil {
				return err
			}
		}
	}

	return nil
}
