package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/coursewatch/coursewatch-api/internal/models"
)

func TestNotificationRepositorySave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.NotificationRecord{
		MonitorID: "mon-1",
		SectionID: "001",
		Kind:      models.TransitionSeatsOpened,
		Message:   "section 001 open seats increased 0 -> 3",
		Success:   true,
	}
	require.NoError(t, repo.Save(context.Background(), record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.SentAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListByMonitor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "monitor_id", "section_id", "kind", "message", "success", "sent_at"}).
		AddRow("not-1", "mon-1", "001", models.TransitionSeatsOpened, "seats opened", true, time.Now()).
		AddRow("not-2", "mon-1", "001", models.TransitionStatusChanged, "delivery failed", false, time.Now())
	mock.ExpectQuery("FROM notifications WHERE monitor_id").
		WithArgs("mon-1").
		WillReturnRows(rows)

	records, err := repo.ListByMonitor(context.Background(), "mon-1", 50)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.False(t, records[1].Success)
	require.NoError(t, mock.ExpectationsWereMet())
}
