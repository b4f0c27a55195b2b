package service

import (
	"context"
	"testing"

	"github.com/diegoclair/slack-standup-bot/internal/domain/contract"
	"github.com/diegoclair/slack-standup-bot/mocks"
	"go.uber.org/mock/gomock"
)

type allMocks struct {
	mockDataManager   *mocks.MockDataManager
	mockChannelRepo   *mocks.MockChannelRepo
	mockUserRepo      *mocks.MockUserRepo
	mockStandupRepo   *mocks.MockStandupRepo
	mockSchedulerRepo *mocks.MockSchedulerRepo
	mockSlackClient   *mocks.MockSlackClient
}

func newServiceTestMock(t *testing.T) (m allMocks, ctrl *gomock.Controller) {
	t.Helper()

	ctrl = gomock.NewController(t)

	m = allMocks{
		mockDataManager:   mocks.NewMockDataManager(ctrl),
		mockChannelRepo:   mocks.NewMockChannelRepo(ctrl),
		mockUserRepo:      mocks.NewMockUserRepo(ctrl),
		mockStandupRepo:   mocks.NewMockStandupRepo(ctrl),
		mockSchedulerRepo: mocks.NewMockSchedulerRepo(ctrl),
		mockSlackClient:   mocks.NewMockSlackClient(ctrl),
	}

	m.mockDataManager.EXPECT().Channel().Return(m.mockChannelRepo).AnyTimes()
	m.mockDataManager.EXPECT().User().Return(m.mockUserRepo).AnyTimes()
	m.mockDataManager.EXPECT().Standup().Return(m.mockStandupRepo).AnyTimes()
	m.mockDataManager.EXPECT().Scheduler().Return(m.mockSchedulerRepo).AnyTimes()

	return m, ctrl
}

// newTestService builds a standupService on top of the mocks. The scheduler
// stays nil; services guard every scheduler notification with a nil check.
func newTestService(m allMocks) *standupService {
	return newStandup(m.mockDataManager, m.mockSlackClient)
}

// expectInlineTransaction makes WithTransaction run its callback against the
// same mocked repos, so tests can set expectations on them directly.
func expectInlineTransaction(m allMocks) {
	m.mockDataManager.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(contract.DataManager) error) error {
			return fn(m.mockDataManager)
		})
}
