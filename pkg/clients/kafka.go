package clients

import (
	"context"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/pliu/medianmon/pkg/config"
)

// KgoClient is the subset of *kgo.Client used by the feed.
type KgoClient interface {
	PollFetches(ctx context.Context) KgoFetches
	Close()
}

// KgoFetches is the subset of kgo.Fetches used by the feed.
type KgoFetches interface {
	IsClientClosed() bool
	EachError(func(string, int32, error))
	EachRecord(func(*kgo.Record))
}

// KadmClient is the subset of *kadm.Client used to manage the input topic.
type KadmClient interface {
	ListTopics(ctx context.Context, topics ...string) (kadm.TopicDetails, error)
	CreateTopic(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topic string) (kadm.CreateTopicResponse, error)
}

type franzClient struct {
	*kgo.Client
}

func (c franzClient) PollFetches(ctx context.Context) KgoFetches {
	return c.Client.PollFetches(ctx)
}

// GetFranzGoClient returns a new franz-go kafka client for the given cluster.
func GetFranzGoClient(kafkaCfg *config.KafkaConfig, extra ...kgo.Opt) (*kgo.Client, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(kafkaCfg.SeedBrokers...),
	}
	client, err := kgo.NewClient(append(opts, extra...)...)
	return client, err
}

// GetConsumer returns a KgoClient reading cfg.Topic from the start, as a
// member of group when group is not empty.
func GetConsumer(cfg *config.Config, group string) (KgoClient, error) {
	opts := []kgo.Opt{
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	if group != "" {
		opts = append(opts, kgo.ConsumerGroup(group))
	}
	client, err := GetFranzGoClient(cfg.KafkaConfig, opts...)
	if err != nil {
		return nil, err
	}
	return franzClient{client}, nil
}

// GetAdminClient returns a kadm client for the configured cluster. The
// returned close func releases the underlying kgo client.
func GetAdminClient(cfg *config.Config) (*kadm.Client, func(), error) {
	client, err := GetFranzGoClient(cfg.KafkaConfig)
	if err != nil {
		return nil, nil, err
	}
	return kadm.NewClient(client), client.Close, nil
}
