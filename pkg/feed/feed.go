// Package feed keeps a windowed median of integer values read from a Kafka
// topic and exports it as Prometheus metrics.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/pliu/medianmon/pkg/clients"
	"github.com/pliu/medianmon/pkg/config"
	"github.com/pliu/medianmon/pkg/median"
	"github.com/pliu/medianmon/pkg/metrics"
	"github.com/pliu/medianmon/pkg/stats"
)

// Records carry a base-10 int64 as their value. The optional "op" header
// selects between adding (the default) and removing one occurrence.
const (
	OpHeader = "op"
	OpAdd    = "add"
	OpRemove = "remove"
)

var ErrUnknownOp = errors.New("unknown record op")

type Feeder struct {
	client           clients.KgoClient
	topic            string
	instanceUUID     string
	window           *stats.Window
	publishFrequency time.Duration
}

func NewFeederWithClient(client clients.KgoClient, topic string, instanceUUID string, window *stats.Window, publishFrequency time.Duration) *Feeder {
	window.OnExpire(func(n int) {
		metrics.ExpiredCount.Add(float64(n))
	})
	return &Feeder{
		client:           client,
		topic:            topic,
		instanceUUID:     instanceUUID,
		window:           window,
		publishFrequency: publishFrequency,
	}
}

func NewFeederFromConfig(cfg *config.Config) (*Feeder, error) {
	instanceUUID := uuid.NewString()
	group := cfg.ConsumerGroup
	if group == "" {
		group = "medianmon-" + instanceUUID
	}

	client, err := clients.GetConsumer(cfg, group)
	if err != nil {
		return nil, err
	}

	window := stats.NewWindow(time.Duration(cfg.GetWindowSeconds()) * time.Second)
	publishFrequency := time.Duration(cfg.GetPublishFrequencyMs()) * time.Millisecond

	return NewFeederWithClient(client, cfg.Topic, instanceUUID, window, publishFrequency), nil
}

// Window exposes the tracker the feeder writes into.
func (f *Feeder) Window() *stats.Window {
	return f.window
}

// Start consumes until ctx is cancelled or the client is closed.
func (f *Feeder) Start(ctx context.Context) {
	defer f.client.Close()
	log.Info().Msgf("Starting feeder instance %s on topic %s", f.instanceUUID, f.topic)

	go f.publishLoop(ctx)
	f.consumeLoop(ctx)

	log.Info().Msgf("Stopping feeder instance %s", f.instanceUUID)
}

func (f *Feeder) consumeLoop(ctx context.Context) {
	for {
		fetches := f.client.PollFetches(ctx)

		select {
		case <-ctx.Done():
			return
		default:
			if fetches.IsClientClosed() {
				return
			}

			fetches.EachError(func(topic string, partition int32, err error) {
				log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("fetch failed")
			})

			fetches.EachRecord(func(record *kgo.Record) {
				if err := f.handleRecord(record); err != nil {
					metrics.DecodeFailureCount.Inc()
					log.Debug().Err(err).Int32("partition", record.Partition).Int64("offset", record.Offset).Msg("skipping record")
				}
			})
		}
	}
}

func (f *Feeder) handleRecord(record *kgo.Record) error {
	value, err := strconv.ParseInt(strings.TrimSpace(string(record.Value)), 10, 64)
	if err != nil {
		return fmt.Errorf("decoding value %q: %w", record.Value, err)
	}

	switch op := recordOp(record); op {
	case OpAdd:
		f.window.Add(value)
		metrics.AddCount.Inc()
	case OpRemove:
		result := "miss"
		if f.window.Remove(value) {
			result = "hit"
		}
		metrics.RemoveCount.WithLabelValues(result).Inc()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, op)
	}
	return nil
}

func recordOp(record *kgo.Record) string {
	for _, h := range record.Headers {
		if h.Key == OpHeader {
			return strings.ToLower(string(h.Value))
		}
	}
	return OpAdd
}

func (f *Feeder) publishLoop(ctx context.Context) {
	ticker := time.NewTicker(f.publishFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.publish()
		}
	}
}

func (f *Feeder) publish() {
	metrics.LiveValues.Set(float64(f.window.Len()))
	metrics.StaleEntries.Set(float64(f.window.Stale()))

	m, err := f.window.Median()
	if errors.Is(err, median.ErrEmpty) {
		log.Debug().Msg("window is empty, keeping last published median")
		return
	}
	metrics.Median.Set(float64(m))
}
