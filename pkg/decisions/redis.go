package decisions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/penf-outreach/pkg/logging"
)

// ChannelDecisionSelected is the Redis pub/sub channel decisions go to.
const ChannelDecisionSelected = "events.channel_decision.selected"

// DecisionEvent is the payload published for each decision.
type DecisionEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Decision  Decision  `json:"decision"`
}

// NewDecisionEvent wraps d in an event envelope.
func NewDecisionEvent(d Decision) DecisionEvent {
	return DecisionEvent{
		EventType: EventType,
		Timestamp: d.Timestamp,
		Source:    "outreach",
		Version:   "1.0",
		Decision:  d,
	}
}

// publisher is the subset of *redis.Client used for publishing.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes decisions on a Redis pub/sub channel.
type RedisPublisher struct {
	client  publisher
	channel string
	logger  logging.Logger
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// NewRedisPublisher creates a publisher on client. An empty channel means
// ChannelDecisionSelected.
func NewRedisPublisher(client publisher, channel string, logger logging.Logger) *RedisPublisher {
	if channel == "" {
		channel = ChannelDecisionSelected
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.With(logging.F("component", "decision_publisher")),
	}
}

// NewRedisClient opens and pings a Redis connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Record implements Recorder.
func (p *RedisPublisher) Record(ctx context.Context, d Decision) error {
	data, err := json.Marshal(NewDecisionEvent(d))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", p.channel))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published event",
		logging.F("channel", p.channel),
		logging.F("decision_id", d.ID.String()))
	return nil
}
