package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/pliu/medianmon/pkg/clients"
	"github.com/pliu/medianmon/pkg/median"
	"github.com/pliu/medianmon/pkg/stats"
)

// MockKgoClient is a mock implementation of the KgoClient interface
type MockKgoClient struct {
	clients.KgoClient
	PollFetchesFunc func(context.Context) clients.KgoFetches
	closed          bool
}

func (m *MockKgoClient) PollFetches(ctx context.Context) clients.KgoFetches {
	if m.PollFetchesFunc != nil {
		return m.PollFetchesFunc(ctx)
	}
	return &MockKgoFetches{}
}

func (m *MockKgoClient) Close() { m.closed = true }

// MockKgoFetches is a mock implementation of the KgoFetches interface
type MockKgoFetches struct {
	clients.KgoFetches
	Records      []*kgo.Record
	Errors       []error
	ClientClosed bool
}

func (m *MockKgoFetches) IsClientClosed() bool { return m.ClientClosed }

func (m *MockKgoFetches) EachError(f func(string, int32, error)) {
	for _, err := range m.Errors {
		f("test-topic", 0, err)
	}
}

func (m *MockKgoFetches) EachRecord(f func(*kgo.Record)) {
	for _, r := range m.Records {
		f(r)
	}
}

// MockKadmClient is a mock implementation of the KadmClient interface
type MockKadmClient struct {
	clients.KadmClient
	ListTopicsFunc  func(context.Context, ...string) (kadm.TopicDetails, error)
	CreateTopicFunc func(context.Context, int32, int16, map[string]*string, string) (kadm.CreateTopicResponse, error)
}

func (m *MockKadmClient) ListTopics(ctx context.Context, topics ...string) (kadm.TopicDetails, error) {
	if m.ListTopicsFunc != nil {
		return m.ListTopicsFunc(ctx, topics...)
	}
	return nil, nil
}

func (m *MockKadmClient) CreateTopic(ctx context.Context, partitions int32, rf int16, configs map[string]*string, topic string) (kadm.CreateTopicResponse, error) {
	if m.CreateTopicFunc != nil {
		return m.CreateTopicFunc(ctx, partitions, rf, configs, topic)
	}
	return kadm.CreateTopicResponse{Topic: topic}, nil
}

func addRecord(v string) *kgo.Record {
	return &kgo.Record{Topic: "test-topic", Value: []byte(v)}
}

func removeRecord(v string) *kgo.Record {
	return &kgo.Record{
		Topic:   "test-topic",
		Value:   []byte(v),
		Headers: []kgo.RecordHeader{{Key: OpHeader, Value: []byte(OpRemove)}},
	}
}

func newTestFeeder(client clients.KgoClient) *Feeder {
	window := stats.NewWindowWithClock(time.Minute, clock.NewMock())
	return NewFeederWithClient(client, "test-topic", "test-uuid", window, time.Millisecond)
}

func TestHandleRecord(t *testing.T) {
	f := newTestFeeder(&MockKgoClient{})

	for _, v := range []string{"5", "3", " 8\n"} {
		assert.NoError(t, f.handleRecord(addRecord(v)))
	}
	m, err := f.window.Median()
	assert.NoError(t, err)
	assert.Equal(t, int64(5), m)

	assert.NoError(t, f.handleRecord(removeRecord("5")))
	assert.NoError(t, f.handleRecord(removeRecord("42"))) // a miss is not an error
	m, err = f.window.Median()
	assert.NoError(t, err)
	assert.Equal(t, int64(3), m)
	assert.Equal(t, 2, f.window.Len())
}

func TestHandleRecord_Invalid(t *testing.T) {
	f := newTestFeeder(&MockKgoClient{})

	assert.Error(t, f.handleRecord(addRecord("not-a-number")))
	assert.Error(t, f.handleRecord(addRecord("1.5")))

	record := addRecord("1")
	record.Headers = []kgo.RecordHeader{{Key: OpHeader, Value: []byte("multiply")}}
	assert.ErrorIs(t, f.handleRecord(record), ErrUnknownOp)

	_, err := f.window.Median()
	assert.ErrorIs(t, err, median.ErrEmpty)
}

func TestRecordOp(t *testing.T) {
	assert.Equal(t, OpAdd, recordOp(addRecord("1")))
	assert.Equal(t, OpRemove, recordOp(removeRecord("1")))

	record := addRecord("1")
	record.Headers = []kgo.RecordHeader{{Key: "other", Value: []byte("x")}, {Key: OpHeader, Value: []byte("REMOVE")}}
	assert.Equal(t, OpRemove, recordOp(record))
}

func TestStart_ConsumesUntilClientClosed(t *testing.T) {
	batches := []*MockKgoFetches{
		{Records: []*kgo.Record{addRecord("1"), addRecord("2"), addRecord("3"), addRecord("bad")}},
		{Errors: []error{errors.New("broker unavailable")}},
		{Records: []*kgo.Record{removeRecord("1"), addRecord("10")}},
		{ClientClosed: true},
	}
	calls := 0
	client := &MockKgoClient{
		PollFetchesFunc: func(ctx context.Context) clients.KgoFetches {
			b := batches[calls]
			calls++
			return b
		},
	}
	f := newTestFeeder(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.Start(ctx)

	assert.True(t, client.closed)
	assert.Equal(t, len(batches), calls)
	assert.Equal(t, 3, f.window.Len())
	m, err := f.window.Median()
	assert.NoError(t, err)
	assert.Equal(t, int64(3), m) // {2, 3, 10}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &MockKgoClient{
		PollFetchesFunc: func(ctx context.Context) clients.KgoFetches {
			cancel()
			return &MockKgoFetches{Records: []*kgo.Record{addRecord("7")}}
		},
	}
	f := newTestFeeder(client)

	done := make(chan struct{})
	go func() {
		f.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("feeder did not stop after cancellation")
	}
	assert.True(t, client.closed)
	// Records polled after cancellation are dropped.
	assert.Equal(t, 0, f.window.Len())
}

func TestPublish_EmptyWindow(t *testing.T) {
	f := newTestFeeder(&MockKgoClient{})
	assert.NotPanics(t, f.publish)

	f.window.Add(4)
	assert.NotPanics(t, f.publish)
}

func TestEnsureTopic_Exists(t *testing.T) {
	created := false
	adm := &MockKadmClient{
		ListTopicsFunc: func(ctx context.Context, topics ...string) (kadm.TopicDetails, error) {
			return kadm.TopicDetails{
				"test-topic": {
					Topic:      "test-topic",
					Partitions: map[int32]kadm.PartitionDetail{0: {}, 1: {}},
				},
			}, nil
		},
		CreateTopicFunc: func(context.Context, int32, int16, map[string]*string, string) (kadm.CreateTopicResponse, error) {
			created = true
			return kadm.CreateTopicResponse{}, nil
		},
	}

	assert.NoError(t, EnsureTopic(context.Background(), adm, "test-topic", 1, 1))
	assert.False(t, created)
}

func TestEnsureTopic_CreatesMissing(t *testing.T) {
	var gotPartitions int32
	var gotRF int16
	adm := &MockKadmClient{
		ListTopicsFunc: func(ctx context.Context, topics ...string) (kadm.TopicDetails, error) {
			return kadm.TopicDetails{
				"test-topic": {Topic: "test-topic", Err: kerr.UnknownTopicOrPartition},
			}, nil
		},
		CreateTopicFunc: func(_ context.Context, partitions int32, rf int16, _ map[string]*string, topic string) (kadm.CreateTopicResponse, error) {
			gotPartitions, gotRF = partitions, rf
			return kadm.CreateTopicResponse{Topic: topic}, nil
		},
	}

	assert.NoError(t, EnsureTopic(context.Background(), adm, "test-topic", 3, 2))
	assert.Equal(t, int32(3), gotPartitions)
	assert.Equal(t, int16(2), gotRF)
}

func TestEnsureTopic_Errors(t *testing.T) {
	listErr := errors.New("list failed")
	adm := &MockKadmClient{
		ListTopicsFunc: func(ctx context.Context, topics ...string) (kadm.TopicDetails, error) {
			return nil, listErr
		},
	}
	assert.ErrorIs(t, EnsureTopic(context.Background(), adm, "test-topic", 1, 1), listErr)

	adm = &MockKadmClient{
		ListTopicsFunc: func(ctx context.Context, topics ...string) (kadm.TopicDetails, error) {
			return kadm.TopicDetails{"test-topic": {Err: kerr.TopicAuthorizationFailed}}, nil
		},
	}
	assert.ErrorIs(t, EnsureTopic(context.Background(), adm, "test-topic", 1, 1), kerr.TopicAuthorizationFailed)

	// A concurrent creator winning the race is fine.
	adm = &MockKadmClient{
		CreateTopicFunc: func(_ context.Context, _ int32, _ int16, _ map[string]*string, topic string) (kadm.CreateTopicResponse, error) {
			return kadm.CreateTopicResponse{Topic: topic, Err: kerr.TopicAlreadyExists}, nil
		},
	}
	assert.NoError(t, EnsureTopic(context.Background(), adm, "test-topic", 1, 1))
}
