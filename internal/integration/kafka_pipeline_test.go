//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkaadapter "github.com/couchcryptid/storm-wind-forcing/internal/adapter/kafka"
	"github.com/couchcryptid/storm-wind-forcing/internal/adapter/stepfile"
	"github.com/couchcryptid/storm-wind-forcing/internal/config"
	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/engine"
	"github.com/couchcryptid/storm-wind-forcing/internal/interp"
	"github.com/couchcryptid/storm-wind-forcing/internal/observability"
	"github.com/couchcryptid/storm-wind-forcing/internal/pipeline"
	"github.com/couchcryptid/storm-wind-forcing/internal/series"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

var t0 = time.Date(2008, time.September, 1, 0, 0, 0, 0, time.UTC)

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("forcing-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// consumedEvent is one step event read back from the topic.
type consumedEvent struct {
	Event   domain.StepEvent
	Key     string
	Headers map[string]string
}

func readEvent(ctx context.Context, t *testing.T, r *kafkago.Reader) consumedEvent {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := r.ReadMessage(readCtx)
	require.NoError(t, err, "read step topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.StepEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	return consumedEvent{Event: event, Key: string(msg.Key), Headers: headers}
}

func newReader(broker, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   500 * time.Millisecond,
	})
}

func testConfig(broker, topic string) *config.Config {
	return &config.Config{
		KafkaEnabled:      true,
		KafkaBrokers:      []string{broker},
		KafkaTopic:        topic,
		KafkaBatchSize:    1,
		KafkaBatchTimeout: 50 * time.Millisecond,
	}
}

// TestPublisherRoundTrip verifies a step event survives the trip through Kafka
// with its key and headers.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "steps-roundtrip"
	createTopic(t, broker, topic)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := kafkaadapter.NewPublisher(testConfig(broker, topic), logger)
	defer pub.Close()

	event := domain.StepEvent{
		RunID:       "run-1",
		Step:        4,
		ValidTime:   t0.Add(4 * time.Hour),
		File:        "/out/fort.22_24",
		Summary:     domain.Summary{Points: 2, MaxStress: 0.17, MinPressurePa: 98000},
		ProcessedAt: t0.Add(5 * time.Hour),
	}
	require.NoError(t, pub.Publish(ctx, event))

	r := newReader(broker, topic)
	defer r.Close()
	got := readEvent(ctx, t, r)

	assert.Equal(t, "run-1", got.Key)
	assert.Equal(t, "forcing_step", got.Headers["event_type"])
	assert.Equal(t, "run-1-000004", got.Headers["event_key"])
	assert.Equal(t, "4", got.Headers["step"])
	assert.Equal(t, event.File, got.Event.File)
	assert.True(t, event.ValidTime.Equal(got.Event.ValidTime))
	assert.Equal(t, event.Summary, got.Event.Summary)
}

func griddedSeries(t *testing.T) *series.Series {
	t.Helper()
	grid := domain.RegularGrid{
		Origin:  domain.Point{Lon: -90, Lat: 25},
		StepLon: 1, StepLat: 1,
		NLon: 3, NLat: 3,
	}
	snap := func(at time.Time, u, p float64) domain.Snapshot {
		n := grid.Len()
		s := &domain.GriddedSnapshot{
			Time:     at,
			Coords:   grid,
			VX:       make([]float64, n),
			VY:       make([]float64, n),
			Pressure: make([]float64, n),
		}
		for k := range n {
			s.VX[k], s.Pressure[k] = u, p
		}
		return s
	}
	s, err := series.New([]domain.Snapshot{
		snap(t0, 10, 1000),
		snap(t0.Add(2*time.Hour), 20, 990),
	}, series.Meta{Multiplier: 1})
	require.NoError(t, err)
	return s
}

// TestForcingRunPublishesEveryStep drives the full chain: engine queries, step
// files on disk and one Kafka event per step.
func TestForcingRunPublishesEveryStep(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "steps-run"
	createTopic(t, broker, topic)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	cache, err := interp.NewCache(4, metrics)
	require.NoError(t, err)
	eng, err := engine.New(griddedSeries(t), engine.Config{AirDensity: 1.2}, cache, logger, metrics)
	require.NoError(t, err)

	pub := kafkaadapter.NewPublisher(testConfig(broker, topic), logger)
	defer pub.Close()

	prefix := filepath.Join(t.TempDir(), "fort.22")
	p := pipeline.New(eng, stepfile.NewWriter(logger), pub, logger, metrics, 2, "run-int")
	targets := []domain.Point{{Lon: -89.5, Lat: 25.5}, {Lon: -88.5, Lat: 26.5}}
	sched := pipeline.Schedule{Start: t0, End: 2 * time.Hour, Frequency: time.Hour, DT: 30 * time.Minute, Prefix: prefix}
	require.NoError(t, p.Run(ctx, sched, targets))

	steps, err := sched.Steps()
	require.NoError(t, err)
	require.Len(t, steps, 3)

	// The middle step sits halfway between the snapshots: 15 m/s, 995 mb.
	mid, err := stepfile.Read(steps[1].File)
	require.NoError(t, err)
	require.Len(t, mid, 2)
	for _, f := range mid {
		assert.InDelta(t, 99500, f.PressurePa, 1e-6)
		assert.Greater(t, f.StressX, 0.0)
		assert.InDelta(t, 0, f.StressY, 1e-12)
	}

	r := newReader(broker, topic)
	defer r.Close()
	seen := make(map[int]string, len(steps))
	for range steps {
		got := readEvent(ctx, t, r)
		assert.Equal(t, "run-int", got.Key)
		seen[got.Event.Step] = got.Event.File
	}
	for _, st := range steps {
		assert.Equal(t, st.File, seen[st.Index], "step %d", st.Index)
	}
}
