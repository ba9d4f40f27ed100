package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/domain"
	"beacon/internal/service"
	mock_service "beacon/internal/service/mocks"
	"beacon/pkg/e"
)

func newIncidents(t *testing.T, ctrl *gomock.Controller) (service.IncidentService, *mock_service.MockIncidentRepository, *mock_service.MockPublisher, *mock_service.MockIncidentCache) {
	t.Helper()
	repo := mock_service.NewMockIncidentRepository(ctrl)
	pub := mock_service.NewMockPublisher(ctrl)
	cache := mock_service.NewMockIncidentCache(ctrl)
	svc := service.NewIncidentService(repo, pub, cache, discardLogger())
	return svc, repo, pub, cache
}

func someIncidents(n int) []domain.Incident {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]domain.Incident, n)
	for i := range out {
		out[i] = domain.Incident{
			ID:          uuid.New(),
			Type:        domain.IncidentFlood,
			Description: fmt.Sprintf("incident %d", i),
			Status:      domain.StatusPending,
			ReportedAt:  base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestIncidents_List_BadCursorRejectedBeforeStorage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, _, _, _ := newIncidents(t, ctrl)

	_, err := svc.List(context.Background(), domain.IncidentFilter{}, "not-base64!!!", 20)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestIncidents_List_DefaultsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, _, cache := newIncidents(t, ctrl)

	incidents := someIncidents(3)
	cache.EXPECT().GetFirstPage(gomock.Any()).Return(nil, nil)
	repo.EXPECT().List(gomock.Any(), domain.IncidentFilter{}, domain.Cursor{}, 20).
		Return(incidents, domain.Cursor{}, nil)
	cache.EXPECT().SetFirstPage(gomock.Any(), incidents).Return(nil)

	resp, err := svc.List(context.Background(), domain.IncidentFilter{}, "", 0)
	require.NoError(t, err)
	assert.Len(t, resp.Incidents, 3)
	assert.Empty(t, resp.NextCursor)
}

func TestIncidents_List_ServesFirstPageFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, _, _, cache := newIncidents(t, ctrl)

	cached := someIncidents(2)
	cache.EXPECT().GetFirstPage(gomock.Any()).Return(cached, nil)

	resp, err := svc.List(context.Background(), domain.IncidentFilter{}, "", 20)
	require.NoError(t, err)
	assert.Equal(t, cached, resp.Incidents)
}

func TestIncidents_List_FilteredQueryBypassesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, _, _ := newIncidents(t, ctrl)

	filter := domain.IncidentFilter{Status: domain.StatusPending}
	repo.EXPECT().List(gomock.Any(), filter, domain.Cursor{}, 20).
		Return(someIncidents(1), domain.Cursor{}, nil)

	_, err := svc.List(context.Background(), filter, "", 20)
	require.NoError(t, err)
}

func TestIncidents_List_ReturnsNextCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, _, _ := newIncidents(t, ctrl)

	incidents := someIncidents(2)
	last := incidents[1]
	next := domain.Cursor{ReportedAt: last.ReportedAt, ID: last.ID}

	filter := domain.IncidentFilter{Type: domain.IncidentFire}
	repo.EXPECT().List(gomock.Any(), filter, domain.Cursor{}, 2).
		Return(incidents, next, nil)

	resp, err := svc.List(context.Background(), filter, "", 2)
	require.NoError(t, err)
	require.NotEmpty(t, resp.NextCursor)

	decoded, err := domain.DecodeCursor(resp.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, last.ID, decoded.ID)
	assert.True(t, decoded.ReportedAt.Equal(last.ReportedAt))
}

func TestIncidents_List_PassesDecodedCursorToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, _, _ := newIncidents(t, ctrl)

	cur := domain.Cursor{ReportedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), ID: uuid.New()}
	filter := domain.IncidentFilter{Status: domain.StatusResolved}

	repo.EXPECT().List(gomock.Any(), filter, gomock.Any(), 20).DoAndReturn(
		func(_ context.Context, _ domain.IncidentFilter, got domain.Cursor, _ int) ([]domain.Incident, domain.Cursor, error) {
			assert.Equal(t, cur.ID, got.ID)
			assert.True(t, got.ReportedAt.Equal(cur.ReportedAt))
			return nil, domain.Cursor{}, nil
		})

	_, err := svc.List(context.Background(), filter, cur.Encode(), 20)
	require.NoError(t, err)
}

func TestIncidents_UpdateStatus_UnknownStatusRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, _, _, _ := newIncidents(t, ctrl)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), domain.UpdateStatusRequest{Status: "archived"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestIncidents_UpdateStatus_PublishesAfterCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, pub, cache := newIncidents(t, ctrl)

	id := uuid.New()
	updated := &domain.Incident{ID: id, Status: domain.StatusInProgress}

	gomock.InOrder(
		repo.EXPECT().UpdateStatus(gomock.Any(), id, domain.StatusInProgress).Return(updated, nil),
		cache.EXPECT().Invalidate(gomock.Any()).Return(nil),
		pub.EXPECT().Publish(gomock.Any(), domain.ChannelIncidents, domain.EventIncidentStatus, updated).
			Return(domain.DeliveryReport{Sequence: 4, Delivered: 2}, nil),
	)

	inc, err := svc.UpdateStatus(context.Background(), id, domain.UpdateStatusRequest{Status: domain.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, updated, inc)
}

func TestIncidents_UpdateStatus_RepoErrorSkipsBroadcast(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, _, _ := newIncidents(t, ctrl)

	id := uuid.New()
	repo.EXPECT().UpdateStatus(gomock.Any(), id, domain.StatusResolved).
		Return(nil, fmt.Errorf("op: %w", e.ErrInvalidTransition))

	_, err := svc.UpdateStatus(context.Background(), id, domain.UpdateStatusRequest{Status: domain.StatusResolved})
	assert.ErrorIs(t, err, e.ErrInvalidTransition)
}

func TestIncidents_Get_PassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, repo, _, _ := newIncidents(t, ctrl)

	id := uuid.New()
	repo.EXPECT().Get(gomock.Any(), id).Return(nil, fmt.Errorf("op: %w", e.ErrNotFound))

	_, err := svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, e.ErrNotFound)
}
