package service

import (
	"github.com/diegoclair/slack-standup-bot/internal/domain/contract"
)

var (
	_ contract.StandupService    = (*standupService)(nil)
	_ contract.MessageDispatcher = (*dispatcher)(nil)
)

type Instance struct {
	Standup    *standupService
	Dispatcher *dispatcher
	Scheduler  *scheduler
}

func NewInstance(dm contract.DataManager, slackClient contract.SlackClient) *Instance {
	standupService := newStandup(dm, slackClient)
	scheduler := newScheduler(standupService)
	standupService.SetScheduler(scheduler)

	return &Instance{
		Standup:    standupService,
		Dispatcher: newDispatcher(standupService),
		Scheduler:  scheduler,
	}
}
