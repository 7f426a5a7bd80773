package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/pkg/config"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
	"github.com/crumbhouse/bakery-backend/pkg/metrics"
	"github.com/crumbhouse/bakery-backend/pkg/outbox"
	"github.com/crumbhouse/bakery-backend/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{newEvent(t, 0), newEvent(t, 0)}}
	pub := &fakePublisher{errs: []error{errors.New("connection reset"), nil}}
	service := newTestService(t, repo, pub, newRegistry(t), nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{repo.events[0].ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{repo.events[1].ID}, repo.published)
	assert.Empty(t, repo.terminal)

	require.Len(t, pub.sent, 2)
	assert.Equal(t, "bakery:order-events", pub.sent[1].channel)
	var msg registry.Message
	require.NoError(t, json.Unmarshal(pub.sent[1].body, &msg))
	assert.Equal(t, repo.events[1].AggregateID, msg.AggregateID)
	assert.Equal(t, enums.EventOrderCreated, msg.EventType)
}

func TestServiceProcessBatchParksUndecodableRows(t *testing.T) {
	event := newEvent(t, 0)
	event.Payload = json.RawMessage(`{"data":null}`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, newRegistry(t), nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Equal(t, 5, repo.terminalAttempts)
	assert.Empty(t, pub.sent)
}

func TestServiceProcessBatchParksAfterMaxAttempts(t *testing.T) {
	event := newEvent(t, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{errors.New("timeout")}}
	reg := prometheus.NewRegistry()
	m := metrics.NewShopMetrics(reg)
	service := newTestService(t, repo, pub, newRegistry(t), &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
		Channel:        "bakery:order-events",
	})
	service.metrics = m

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Empty(t, repo.failed)
	assert.Equal(t, 2, repo.terminalAttempts)

	expected := `
# HELP bakery_outbox_failed_total Outbox relay attempts that failed.
# TYPE bakery_outbox_failed_total counter
bakery_outbox_failed_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bakery_outbox_failed_total"))
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, newRegistry(t), nil)
	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestRunStopsOnCancel(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, newRegistry(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := service.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunFailsWhenRedisUnavailable(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{pingErr: errors.New("refused")}, newRegistry(t), nil)
	err := service.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestNextBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, 200*time.Millisecond, nextBackoff(0, base, time.Second))
	assert.Equal(t, 800*time.Millisecond, nextBackoff(400*time.Millisecond, base, time.Second))
	assert.Equal(t, time.Second, nextBackoff(800*time.Millisecond, base, time.Second))
}

func TestWithJitter(t *testing.T) {
	assert.Zero(t, withJitter(0))
	d := withJitter(time.Second)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, time.Second+jitterWindow)
}

func newTestService(t *testing.T, repo outboxRepository, pub channelPublisher, reg registryResolver, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
		Channel:        "bakery:order-events",
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:     &config.Config{Outbox: outboxCfg},
		Logger:     logg,
		DB:         &fakeDB{},
		Publisher:  pub,
		Repository: repo,
		Registry:   reg,
	})
	require.NoError(t, err)
	return service
}

func newRegistry(t *testing.T) *registry.EventRegistry {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.OutboxConfig{Channel: "bakery:order-events"})
	require.NoError(t, err)
	return reg
}

func newEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_number":12}`),
	}
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type sentMessage struct {
	channel string
	body    []byte
}

type fakePublisher struct {
	errs    []error
	sent    []sentMessage
	pingErr error
}

func (f *fakePublisher) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	f.sent = append(f.sent, sentMessage{channel: channel, body: payload})
	if len(f.errs) == 0 {
		return 1, nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	if err != nil {
		return 0, err
	}
	return 1, nil
}
