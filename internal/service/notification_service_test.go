package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
)

type mockNotificationRepo struct {
	created    []models.Notification
	failFor    map[string]error
	listed     []models.Notification
	total      int
	unread     int
	markErr    error
	markCalls  int
	markAllFor string
}

func (m *mockNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	if err, ok := m.failFor[n.RecipientID]; ok {
		return err
	}
	m.created = append(m.created, *n)
	return nil
}

func (m *mockNotificationRepo) ListForRecipient(_ context.Context, _ string, _ bool, _, _ int) ([]models.Notification, int, error) {
	return m.listed, m.total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, _ string) (int, error) {
	return m.unread, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, _, _ string) error {
	m.markCalls++
	return m.markErr
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, recipientID string) error {
	m.markAllFor = recipientID
	return nil
}

type mockPusher struct {
	pushed  []string
	pushErr error
}

func (m *mockPusher) PushToUser(userID string, _ interface{}) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushed = append(m.pushed, userID)
	return nil
}

func TestNotificationFanoutDedupesAndSkipsSender(t *testing.T) {
	repo := &mockNotificationRepo{}
	pusher := &mockPusher{}
	svc := NewNotificationService(repo, pusher, nil, zap.NewNop())

	err := svc.Fanout(context.Background(), Event{
		Type:       models.NotificationAnnouncement,
		Title:      "Exam schedule",
		SenderID:   "teacher-1",
		RelatedID:  "ann-1",
		Recipients: []string{"student-1", "student-2", "student-1", "teacher-1", ""},
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 2)
	assert.Equal(t, "student-1", repo.created[0].RecipientID)
	assert.Equal(t, "student-2", repo.created[1].RecipientID)
	assert.Equal(t, []string{"student-1", "student-2"}, pusher.pushed)
}

func TestNotificationFanoutIsolatesFailures(t *testing.T) {
	bad := errors.New("insert failed")
	repo := &mockNotificationRepo{failFor: map[string]error{"student-2": bad}}
	pusher := &mockPusher{}
	svc := NewNotificationService(repo, pusher, nil, zap.NewNop())

	err := svc.Fanout(context.Background(), Event{
		Type:       models.NotificationJob,
		Title:      "Internship",
		SenderID:   "coord-1",
		Recipients: []string{"student-1", "student-2", "student-3"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bad)
	assert.Contains(t, err.Error(), "fan-out failed for 1 of 3 recipients")

	// The failing recipient never blocks the rest.
	require.Len(t, repo.created, 2)
	assert.Equal(t, []string{"student-1", "student-3"}, pusher.pushed)
}

func TestNotificationFanoutPushFailureIsBestEffort(t *testing.T) {
	repo := &mockNotificationRepo{}
	pusher := &mockPusher{pushErr: errors.New("no session")}
	svc := NewNotificationService(repo, pusher, nil, zap.NewNop())

	err := svc.Fanout(context.Background(), Event{
		Type:       models.NotificationComment,
		SenderID:   "student-1",
		Recipients: []string{"teacher-1"},
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestNotificationMarkReadWrapsMissingRow(t *testing.T) {
	repo := &mockNotificationRepo{markErr: errors.New("notification not found")}
	svc := NewNotificationService(repo, nil, nil, zap.NewNop())

	err := svc.MarkRead(context.Background(), "n-1", "student-1")
	require.Error(t, err)
}

func TestNotificationListClampsPaging(t *testing.T) {
	repo := &mockNotificationRepo{
		listed: []models.Notification{{ID: "n-1"}},
		total:  1,
		unread: 1,
	}
	svc := NewNotificationService(repo, nil, nil, zap.NewNop())

	items, pagination, err := svc.List(context.Background(), "student-1", dto.NotificationFilter{Page: -3, Limit: 0})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 1, pagination.TotalCount)
}
