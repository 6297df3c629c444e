package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/observability"
	"github.com/couchcryptid/storm-wind-forcing/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockForcer struct {
	failAt   time.Time
	err      error
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockForcer) Query(ctx context.Context, t time.Time, targets []domain.Point) ([]domain.Forcing, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	if m.err != nil && t.Equal(m.failAt) {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Forcing, len(targets))
	for i := range out {
		out[i] = domain.Forcing{StressX: float64(t.Sub(start) / time.Second), PressurePa: 101300 - float64(i)}
	}
	return out, nil
}

type written struct {
	file  string
	first domain.Forcing
	rows  int
}

type mockWriter struct {
	mu    sync.Mutex
	files []written
	err   error
}

func (m *mockWriter) WriteStep(_ context.Context, file string, f []domain.Forcing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.files = append(m.files, written{file: file, first: f[0], rows: len(f)})
	return nil
}

// sorted returns the written files ordered by valid time, which the mock
// forcer encodes in StressX.
func (m *mockWriter) sorted() []written {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]written(nil), m.files...)
	sort.Slice(out, func(i, j int) bool { return out[i].first.StressX < out[j].first.StressX })
	return out
}

type mockPublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	events   []domain.StepEvent
}

func (m *mockPublisher) Publish(_ context.Context, ev domain.StepEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.events = append(m.events, ev)
	return nil
}

var start = time.Date(2008, 9, 1, 0, 0, 0, 0, time.UTC)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func targets() []domain.Point {
	return []domain.Point{{Lon: -90, Lat: 25}, {Lon: -89, Lat: 26}, {Lon: -88, Lat: 27}}
}

func sixHours() pipeline.Schedule {
	return pipeline.Schedule{Start: start, End: 6 * time.Hour, Frequency: time.Hour, DT: 2 * time.Second, Prefix: "out/fort.22"}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	w := &mockWriter{}
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockForcer{}, w, pub, discard(), metrics, 3, "run-1")

	require.Error(t, p.CheckReadiness(context.Background()))
	require.NoError(t, p.Run(context.Background(), sixHours(), targets()))

	files := w.sorted()
	require.Len(t, files, 7)
	for k, f := range files {
		assert.Equal(t, float64(k*3600), f.first.StressX, "step %d queried at its own time", k)
		assert.Equal(t, fmt.Sprintf("out/fort.22_%d", k*1800), f.file)
		assert.Equal(t, 3, f.rows)
	}

	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 7, p.Written())
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.StepsCompleted))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.StepsPublished))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StepErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RunRunning))
	assert.Len(t, pub.events, 7)
}

func TestPipeline_Run_StepErrorIsFatal(t *testing.T) {
	rangeErr := &domain.TimeRangeError{Query: start.Add(3 * time.Hour), First: start, Last: start.Add(2 * time.Hour)}
	f := &mockForcer{failAt: start.Add(3 * time.Hour), err: rangeErr}
	w := &mockWriter{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(f, w, nil, discard(), metrics, 1, "run-2")

	err := p.Run(context.Background(), sixHours(), targets())
	require.ErrorIs(t, err, domain.ErrTimeRange)
	assert.Contains(t, err.Error(), "step 3")

	// One worker: steps after the failure never start.
	assert.Len(t, w.sorted(), 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StepErrors))
}

func TestPipeline_Run_BoundedWorkers(t *testing.T) {
	f := &mockForcer{}
	sched := pipeline.Schedule{Start: start, End: 48 * time.Hour, Frequency: time.Hour, DT: time.Second, Prefix: "p"}
	p := pipeline.New(f, &mockWriter{}, nil, discard(), observability.NewMetricsForTesting(), 2, "run-3")

	require.NoError(t, p.Run(context.Background(), sched, targets()))
	assert.LessOrEqual(t, f.peak.Load(), int32(2))
	assert.Equal(t, 49, p.Written())
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pipeline.New(&mockForcer{}, &mockWriter{}, nil, discard(), observability.NewMetricsForTesting(), 4, "run-4")
	err := p.Run(ctx, sixHours(), targets())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Run_PublishRetriesThenGivesUp(t *testing.T) {
	pub := &mockPublisher{failures: 1000}
	metrics := observability.NewMetricsForTesting()
	sched := pipeline.Schedule{Start: start, End: 0, Frequency: time.Hour, DT: time.Second, Prefix: "p"}
	p := pipeline.New(&mockForcer{}, &mockWriter{}, pub, discard(), metrics, 1, "run-5")

	require.NoError(t, p.Run(context.Background(), sched, targets()), "publishing failures do not fail the run")
	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StepsCompleted))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StepsPublished))
}

func TestPipeline_Run_PublishRecovers(t *testing.T) {
	pub := &mockPublisher{failures: 1}
	metrics := observability.NewMetricsForTesting()
	sched := pipeline.Schedule{Start: start, End: 0, Frequency: time.Hour, DT: time.Second, Prefix: "p"}
	p := pipeline.New(&mockForcer{}, &mockWriter{}, pub, discard(), metrics, 1, "run-6")

	require.NoError(t, p.Run(context.Background(), sched, targets()))
	assert.Equal(t, 2, pub.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StepsPublished))
}

func TestPipeline_StepEvent(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	pub := &mockPublisher{}
	sched := pipeline.Schedule{Start: start, End: 0, Frequency: time.Hour, DT: time.Second, Prefix: "out/fort.22"}
	p := pipeline.New(&mockForcer{}, &mockWriter{}, pub, discard(), observability.NewMetricsForTesting(), 1, "run-7")
	require.NoError(t, p.Run(context.Background(), sched, targets()))

	require.Len(t, pub.events, 1)
	want := domain.StepEvent{
		RunID:     "run-7",
		Step:      0,
		ValidTime: start,
		File:      "out/fort.22_0",
		Summary: domain.Summary{
			Points:        3,
			MinPressurePa: 101298,
		},
		ProcessedAt: fake.Now(),
	}
	if diff := cmp.Diff(want, pub.events[0]); diff != "" {
		t.Errorf("step event mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Run_WriteErrorIsFatal(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockForcer{}, &mockWriter{err: errors.New("disk full")}, nil, discard(), metrics, 2, "run-10")

	err := p.Run(context.Background(), sixHours(), targets())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_InvalidSchedule(t *testing.T) {
	p := pipeline.New(&mockForcer{}, &mockWriter{}, nil, discard(), observability.NewMetricsForTesting(), 1, "run-8")
	err := p.Run(context.Background(), pipeline.Schedule{Start: start, End: time.Hour}, targets())
	assert.Error(t, err)
	assert.Equal(t, 0, p.Written())
}

func TestPipeline_Progress(t *testing.T) {
	p := pipeline.New(&mockForcer{}, &mockWriter{}, nil, discard(), observability.NewMetricsForTesting(), 2, "run-9")
	assert.Equal(t, domain.RunProgress{RunID: "run-9"}, p.Progress())

	require.NoError(t, p.Run(context.Background(), sixHours(), targets()))
	assert.Equal(t, domain.RunProgress{RunID: "run-9", Steps: 7, Written: 7}, p.Progress())
}
