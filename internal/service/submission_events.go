package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/observability"
)

const submissionEventBufferSize = 16

// AllAssignments subscribes to events of every assignment.
const AllAssignments uint = 0

// SubmissionEventPublisher announces submission changes.
type SubmissionEventPublisher interface {
	Publish(ctx context.Context, event dto.SubmissionEvent)
}

// SubmissionEvents fans submission events out to local stream subscribers and,
// when configured, to other API nodes over Redis pub/sub and NATS.
type SubmissionEvents interface {
	SubmissionEventPublisher
	Subscribe(assignmentID uint) (<-chan dto.SubmissionEvent, func())
	Start(ctx context.Context)
}

type submissionEvents struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *submissionBroker
	nodeID       string
	now          func() time.Time
}

type submissionEnvelope struct {
	Source string              `json:"source"`
	Event  dto.SubmissionEvent `json:"event"`
	SentAt time.Time           `json:"sent_at"`
}

type submissionBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.SubmissionEvent]struct{}
}

// NewSubmissionEvents constructs the event hub. Either transport may be nil.
func NewSubmissionEvents(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) SubmissionEvents {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":submissions"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".submissions"
	}

	return &submissionEvents{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "submission_events").Logger(),
		broker: &submissionBroker{
			subscribers: make(map[uint]map[chan dto.SubmissionEvent]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
}

func (s *submissionEvents) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *submissionEvents) Publish(ctx context.Context, event dto.SubmissionEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}

	s.broadcast(event)
	if err := s.forward(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to forward submission event")
	}
}

func (s *submissionEvents) Subscribe(assignmentID uint) (<-chan dto.SubmissionEvent, func()) {
	channel := make(chan dto.SubmissionEvent, submissionEventBufferSize)

	s.broker.subscribe(assignmentID, channel)
	observability.EventSubscribers().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(assignmentID, channel)
			observability.EventSubscribers().Dec()
		})
	}

	return channel, cleanup
}

func (s *submissionEvents) broadcast(event dto.SubmissionEvent) {
	observability.EventsPublished().WithLabelValues(event.Type).Inc()
	s.broker.broadcast(event.AssignmentID, event)
	if event.AssignmentID != AllAssignments {
		s.broker.broadcast(AllAssignments, event)
	}
}

func (s *submissionEvents) forward(ctx context.Context, event dto.SubmissionEvent) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(submissionEnvelope{
		Source: s.nodeID,
		Event:  event,
		SentAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *submissionEvents) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("submission redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *submissionEvents) consumeNATS(ctx context.Context) {
	// Every node needs every event, so this is a plain subscription rather
	// than a queue group.
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats submission subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain submission nats subscription")
		}
	}()
}

func (s *submissionEvents) handleEnvelope(payload []byte) {
	var envelope submissionEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid submission event payload")
		return
	}

	if envelope.Source == s.nodeID || envelope.Event.Type == "" {
		return
	}

	s.broadcast(envelope.Event)
}

func (b *submissionBroker) subscribe(assignmentID uint, ch chan dto.SubmissionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[assignmentID]; !exists {
		b.subscribers[assignmentID] = make(map[chan dto.SubmissionEvent]struct{})
	}
	b.subscribers[assignmentID][ch] = struct{}{}
}

func (b *submissionBroker) unsubscribe(assignmentID uint, ch chan dto.SubmissionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[assignmentID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, assignmentID)
		}
	}
}

func (b *submissionBroker) broadcast(assignmentID uint, event dto.SubmissionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[assignmentID] {
		select {
		case ch <- event:
		default:
		}
	}
}
