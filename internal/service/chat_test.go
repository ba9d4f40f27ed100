package service_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/domain"
	"beacon/internal/service"
	mock_service "beacon/internal/service/mocks"
	"beacon/pkg/e"
)

func newChat(t *testing.T, ctrl *gomock.Controller) (service.ChatService, *mock_service.MockChatRepository, *mock_service.MockPublisher) {
	t.Helper()
	repo := mock_service.NewMockChatRepository(ctrl)
	pub := mock_service.NewMockPublisher(ctrl)
	return service.NewChatService(repo, pub, discardLogger()), repo, pub
}

func TestChat_Send_PersistsThenBroadcasts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, pub := newChat(t, ctrl)

	saved := &domain.ChatMessage{ID: uuid.New(), Sender: "dispatcher-7", Body: "crews en route"}

	gomock.InOrder(
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
				assert.Equal(t, "dispatcher-7", msg.Sender)
				assert.Equal(t, "crews en route", msg.Body)
				return saved, nil
			}),
		pub.EXPECT().Publish(gomock.Any(), domain.ChannelChat, domain.EventChatMessage, saved).
			Return(domain.DeliveryReport{Sequence: 1, Delivered: 2}, nil),
	)

	msg, warn, err := svc.Send(context.Background(), domain.SendChatMessageRequest{
		Sender: "dispatcher-7",
		Body:   "  crews en route  ",
	})
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Equal(t, saved, msg)
}

func TestChat_Send_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  domain.SendChatMessageRequest
	}{
		{name: "missing sender", req: domain.SendChatMessageRequest{Body: "hello"}},
		{name: "missing body", req: domain.SendChatMessageRequest{Sender: "x"}},
		{name: "blank body", req: domain.SendChatMessageRequest{Sender: "x", Body: "   "}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			svc, _, _ := newChat(t, ctrl)

			_, _, err := svc.Send(context.Background(), tc.req)
			assert.ErrorIs(t, err, e.ErrInvalidInput)
		})
	}
}

func TestChat_Send_DegradedBroadcastIsAWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, pub := newChat(t, ctrl)

	saved := &domain.ChatMessage{ID: uuid.New()}
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(saved, nil)
	pub.EXPECT().Publish(gomock.Any(), domain.ChannelChat, domain.EventChatMessage, saved).
		Return(domain.DeliveryReport{Sequence: 3, Delivered: 1, Failed: 1, Dropped: 1}, nil)

	msg, warn, err := svc.Send(context.Background(), domain.SendChatMessageRequest{Sender: "x", Body: "y"})
	require.NoError(t, err)
	assert.Equal(t, saved, msg)
	require.NotNil(t, warn)
	assert.Equal(t, 1, warn.Report.Failed)
}

func TestChat_Recent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, _ := newChat(t, ctrl)

	msgs := []domain.ChatMessage{{Body: "a"}, {Body: "b"}}
	repo.EXPECT().ListRecent(gomock.Any(), 50).Return(msgs, nil)

	got, err := svc.Recent(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestStats_DefaultsWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mock_service.NewMockStatsRepository(ctrl)
	svc := service.NewStatsService(repo)

	stats := &domain.IncidentStats{Total: 12, Minutes: 60}
	repo.EXPECT().IncidentStats(gomock.Any(), 60).Return(stats, nil)

	got, err := svc.GetStats(context.Background(), domain.StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, stats, got)
}

func TestStats_CustomWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mock_service.NewMockStatsRepository(ctrl)
	svc := service.NewStatsService(repo)

	repo.EXPECT().IncidentStats(gomock.Any(), 1440).Return(&domain.IncidentStats{Minutes: 1440}, nil)

	_, err := svc.GetStats(context.Background(), domain.StatsRequest{Minutes: 1440})
	require.NoError(t, err)
}
