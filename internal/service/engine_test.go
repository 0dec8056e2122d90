package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/internal/notify"
	"github.com/coursewatch/coursewatch-api/internal/upstream"
	"github.com/coursewatch/coursewatch-api/pkg/config"
	appErrors "github.com/coursewatch/coursewatch-api/pkg/errors"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	results  []notify.ChannelResult
	payloads []notify.Payload
}

func (d *fakeDispatcher) Deliver(ctx context.Context, payload notify.Payload) []notify.ChannelResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, payload)
	return d.results
}

func (d *fakeDispatcher) deliveredCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.payloads)
}

func newTestEngine(client *fakeClient, monitors *fakeMonitorStore, dispatcher *fakeDispatcher) (*Engine, *fakeSnapshotStore, *fakeRecordStore) {
	snapshots := newFakeSnapshotStore()
	records := &fakeRecordStore{}
	engine := NewEngine(config.CheckerConfig{}, client, monitors, snapshots, records, dispatcher, NewMetricsService(), zap.NewNop())
	return engine, snapshots, records
}

func TestEngineStartRegistersActiveMonitors(t *testing.T) {
	reading := models.NewSectionReading("001", "12345", "Someone", 30, 25, 0, 0, time.Now())
	client := &fakeClient{doc: testDoc(reading)}

	first := schedulerMonitor()
	second := schedulerMonitor()
	second.ID = "m2"
	monitors := newFakeMonitorStore(first, second)

	engine, _, _ := newTestEngine(client, monitors, &fakeDispatcher{})
	defer engine.Cleanup()

	engine.Initialize(context.Background())
	require.NoError(t, engine.Start(context.Background()))
	assert.True(t, engine.Running())
	assert.Equal(t, 2, engine.scheduler.Count())

	// Start is idempotent.
	require.NoError(t, engine.Start(context.Background()))
	assert.Equal(t, 2, engine.scheduler.Count())

	engine.Stop()
	assert.False(t, engine.Running())
	assert.Equal(t, 0, engine.scheduler.Count())
}

func TestEngineAddMonitorRegistersWhenRunning(t *testing.T) {
	reading := models.NewSectionReading("001", "12345", "Someone", 30, 25, 0, 0, time.Now())
	client := &fakeClient{doc: testDoc(reading)}
	monitors := newFakeMonitorStore()

	engine, _, _ := newTestEngine(client, monitors, &fakeDispatcher{})
	defer engine.Cleanup()

	monitor := schedulerMonitor()
	monitor.ID = ""

	// Not running yet: persisted but not scheduled.
	created, err := engine.AddMonitor(context.Background(), &monitor)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 0, engine.scheduler.Count())

	require.NoError(t, engine.Start(context.Background()))

	another := schedulerMonitor()
	another.ID = "m9"
	_, err = engine.AddMonitor(context.Background(), &another)
	require.NoError(t, err)
	assert.True(t, engine.scheduler.Registered("m9"))
}

func TestEngineRemoveMonitorSoftDeletes(t *testing.T) {
	reading := models.NewSectionReading("001", "12345", "Someone", 30, 25, 0, 0, time.Now())
	client := &fakeClient{doc: testDoc(reading)}
	monitors := newFakeMonitorStore(schedulerMonitor())

	engine, _, _ := newTestEngine(client, monitors, &fakeDispatcher{})
	defer engine.Cleanup()

	require.NoError(t, engine.Start(context.Background()))
	require.True(t, engine.scheduler.Registered("m1"))

	require.NoError(t, engine.RemoveMonitor(context.Background(), "m1"))
	assert.False(t, engine.scheduler.Registered("m1"))
	assert.Contains(t, monitors.deactivated, "m1")
}

func TestEngineRescheduleDeregistersInactive(t *testing.T) {
	reading := models.NewSectionReading("001", "12345", "Someone", 30, 25, 0, 0, time.Now())
	client := &fakeClient{doc: testDoc(reading)}
	monitors := newFakeMonitorStore(schedulerMonitor())

	engine, _, _ := newTestEngine(client, monitors, &fakeDispatcher{})
	defer engine.Cleanup()

	require.NoError(t, engine.Start(context.Background()))

	updated := schedulerMonitor()
	updated.Active = false
	engine.Reschedule(updated)
	assert.False(t, engine.scheduler.Registered("m1"))

	updated.Active = true
	engine.Reschedule(updated)
	assert.True(t, engine.scheduler.Registered("m1"))
}

func TestEngineCheckOnceMapsFetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		fetchErr *upstream.FetchError
		wantCode string
	}{
		{"not found", &upstream.FetchError{Kind: upstream.KindNotFound, Err: errors.New("404")}, appErrors.ErrCourseNotFound.Code},
		{"rate limited", &upstream.FetchError{Kind: upstream.KindRateLimited, Err: errors.New("429")}, appErrors.ErrUpstreamRateLimited.Code},
		{"transient", &upstream.FetchError{Kind: upstream.KindTransient, Err: errors.New("502")}, appErrors.ErrUpstreamUnavailable.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{err: tt.fetchErr}
			engine, snapshots, _ := newTestEngine(client, newFakeMonitorStore(), &fakeDispatcher{})
			defer engine.Cleanup()

			_, err := engine.CheckOnce(context.Background(), "1252", "COMP SCI", "400")
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, appErrors.FromError(err).Code)
			assert.Zero(t, snapshots.savedCount(), "ad-hoc checks never write history")
		})
	}
}

func TestEngineCheckOnceReturnsDocument(t *testing.T) {
	reading := models.NewSectionReading("001", "12345", "Someone", 30, 25, 0, 0, time.Now())
	client := &fakeClient{doc: testDoc(reading)}
	engine, snapshots, _ := newTestEngine(client, newFakeMonitorStore(), &fakeDispatcher{})
	defer engine.Cleanup()

	doc, err := engine.CheckOnce(context.Background(), "1252", "COMP SCI", "400")
	require.NoError(t, err)
	assert.Equal(t, "Programming III", doc.Title)
	assert.Len(t, doc.Sections, 1)
	assert.Zero(t, snapshots.savedCount())
}

func TestEngineDeliverAndRecordSuccess(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []notify.ChannelResult{
		{Channel: "email"},
		{Channel: "webhook"},
	}}
	client := &fakeClient{doc: testDoc()}
	engine, _, records := newTestEngine(client, newFakeMonitorStore(), dispatcher)
	defer engine.Cleanup()

	ok := engine.deliverAndRecord(context.Background(), schedulerMonitor(), notify.TestPayload())
	assert.True(t, ok)

	saved := records.records()
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Success)
	assert.Equal(t, "m1", saved[0].MonitorID)
	assert.Equal(t, models.TransitionSeatsOpened, saved[0].Kind)
	assert.NotEmpty(t, saved[0].Message)
}

func TestEngineDeliverAndRecordPartialFailureStillSucceeds(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []notify.ChannelResult{
		{Channel: "email", Err: errors.New("smtp down")},
		{Channel: "webhook"},
	}}
	client := &fakeClient{doc: testDoc()}
	engine, _, records := newTestEngine(client, newFakeMonitorStore(), dispatcher)
	defer engine.Cleanup()

	ok := engine.deliverAndRecord(context.Background(), schedulerMonitor(), notify.TestPayload())
	assert.True(t, ok, "one healthy channel is a delivered notification")

	saved := records.records()
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Success)
}

func TestEngineDeliverAndRecordTotalFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []notify.ChannelResult{
		{Channel: "email", Err: errors.New("smtp down")},
	}}
	client := &fakeClient{doc: testDoc()}
	engine, _, records := newTestEngine(client, newFakeMonitorStore(), dispatcher)
	defer engine.Cleanup()

	ok := engine.deliverAndRecord(context.Background(), schedulerMonitor(), notify.TestPayload())
	assert.False(t, ok)

	saved := records.records()
	require.Len(t, saved, 1)
	assert.False(t, saved[0].Success)
}

func TestEngineAsyncDeliveryThroughQueue(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []notify.ChannelResult{{Channel: "webhook"}}}
	client := &fakeClient{doc: testDoc()}
	monitors := newFakeMonitorStore()
	snapshots := newFakeSnapshotStore()
	records := &fakeRecordStore{}

	cfg := config.CheckerConfig{DeliveryAsync: true, DeliveryWorkers: 2, DeliveryQueueSize: 8}
	engine := NewEngine(cfg, client, monitors, snapshots, records, dispatcher, NewMetricsService(), zap.NewNop())
	defer engine.Cleanup()

	engine.Initialize(context.Background())
	engine.dispatch(schedulerMonitor(), notify.TestPayload())

	require.Eventually(t, func() bool { return len(records.records()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, records.records()[0].Success)
	assert.Equal(t, 1, dispatcher.deliveredCount())
}

func TestEngineTestDelivery(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []notify.ChannelResult{{Channel: "email"}, {Channel: "sms"}}}
	client := &fakeClient{doc: testDoc()}
	engine, _, records := newTestEngine(client, newFakeMonitorStore(), dispatcher)
	defer engine.Cleanup()

	results := engine.TestDelivery(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, 1, dispatcher.deliveredCount())
	assert.Empty(t, records.records(), "test deliveries are not audited")
}
