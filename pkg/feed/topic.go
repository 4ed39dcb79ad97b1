package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/phuslu/log"
	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/pliu/medianmon/pkg/clients"
)

// EnsureTopic creates topic if the cluster does not know it yet.
func EnsureTopic(ctx context.Context, adm clients.KadmClient, topic string, partitions int32, replicationFactor int16) error {
	details, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("listing topic %s: %w", topic, err)
	}

	detail, ok := details[topic]
	if ok && detail.Err == nil {
		log.Info().Msgf("Topic %s exists with %d partitions", topic, len(detail.Partitions))
		return nil
	}
	if ok && !errors.Is(detail.Err, kerr.UnknownTopicOrPartition) {
		return fmt.Errorf("describing topic %s: %w", topic, detail.Err)
	}

	log.Info().Msgf("Creating topic %s with %d partitions", topic, partitions)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("creating topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("creating topic %s: %w", topic, resp.Err)
	}
	return nil
}
