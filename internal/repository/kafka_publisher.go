package repository

import (
	"context"
	"strconv"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	pkgkafka "SolPulse/pkg/kafka"
)

// eventPublisher is the slice of *pkgkafka.Producer the publisher needs.
type eventPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaRankingPublisher fans ranking snapshots out to a Kafka topic, one
// message per snapshot keyed by its unix timestamp.
type KafkaRankingPublisher struct {
	producer eventPublisher
	topic    string
}

func NewKafkaRankingPublisher(producer *pkgkafka.Producer, topic string) *KafkaRankingPublisher {
	return &KafkaRankingPublisher{producer: producer, topic: topic}
}

var _ domrepo.RankingSink = (*KafkaRankingPublisher)(nil)

type rankingEvent struct {
	Type    string                 `json:"type"`
	Payload models.RankingSnapshot `json:"payload"`
}

func (p *KafkaRankingPublisher) SaveRanking(ctx context.Context, snap models.RankingSnapshot) error {
	key := []byte(strconv.FormatInt(snap.RankingTime.Unix(), 10))
	return p.producer.Publish(ctx, p.topic, key, rankingEvent{Type: "rankings.updated", Payload: snap})
}
