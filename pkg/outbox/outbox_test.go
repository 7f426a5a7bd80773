package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

const outboxDDL = `CREATE TABLE outbox_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at DATETIME,
	published_at DATETIME,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT
)`

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(outboxDDL).Error)
	return conn
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := newOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)
	orderID := uuid.New()
	actor := uuid.New()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: actor, Role: enums.UserRoleCustomer},
			Data:          map[string]any{"order_number": 7},
			OccurredAt:    at,
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.True(t, envelope.OccurredAt.Equal(at))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor, envelope.Actor.UserID)
	assert.JSONEq(t, `{"order_number":7}`, string(envelope.Data))
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := newOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return errors.New("order write failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidatesEvent(t *testing.T) {
	conn := newOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)
	ctx := context.Background()

	require.Error(t, svc.Emit(ctx, nil, DomainEvent{}))
	require.Error(t, svc.Emit(ctx, conn, DomainEvent{
		EventType:     "order.unknown",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	}))
	require.Error(t, svc.Emit(ctx, conn, DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
	}))
}

func TestRepositoryFetchAndMark(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, repo.Insert(conn, models.OutboxEvent{
			ID:            ids[i],
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ids[0], rows[0].ID, "oldest first")

	require.NoError(t, repo.MarkPublishedTx(conn, ids[0]))
	require.NoError(t, repo.MarkFailedTx(conn, ids[1], errors.New("redis down")))
	require.NoError(t, repo.MarkTerminalTx(conn, ids[2], errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "redis down", *rows[0].LastError)

	var published models.OutboxEvent
	require.NoError(t, conn.First(&published, "id = ?", ids[0]).Error)
	assert.NotNil(t, published.PublishedAt)
}

func TestTruncateError(t *testing.T) {
	long := make([]byte, maxErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, truncateError(errors.New(string(long))), maxErrorLen)
	assert.Equal(t, "", truncateError(nil))
}
