package services

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kxshrx/flynch/internal/domain"
)

// AnalysisBroadcaster fans analysis lifecycle events out to per-user
// subscribers. Events for one user are never delivered to another.
type AnalysisBroadcaster interface {
	// Subscribe registers a subscriber for the user's events. The returned
	// cancel function releases the subscription and closes the channel.
	Subscribe(userID string) (<-chan *domain.AnalysisEvent, func(), error)

	// Publish delivers the event to every subscriber of event.UserID.
	// Delivery is best-effort: subscribers that cannot keep up lose events
	// rather than blocking the publisher.
	Publish(event *domain.AnalysisEvent)

	// SubscriberCount reports the number of active subscriptions.
	SubscriberCount() int
}

// AnalysisBroadcasterConfig holds tuning knobs for the broadcaster.
type AnalysisBroadcasterConfig struct {
	// BufferSize is the per-subscriber channel capacity.
	BufferSize int

	// MaxSubscriptionsPerUser limits concurrent subscriptions per user.
	MaxSubscriptionsPerUser int
}

type analysisSubscriber struct {
	id     string
	userID string
	events chan *domain.AnalysisEvent
}

type analysisBroadcaster struct {
	config      AnalysisBroadcasterConfig
	subscribers map[string]*analysisSubscriber
	userSubs    map[string][]string
	mu          sync.RWMutex
	logger      *slog.Logger
}

// NewAnalysisBroadcaster creates a broadcaster with the given configuration.
// Zero-value config fields fall back to sensible defaults.
func NewAnalysisBroadcaster(config AnalysisBroadcasterConfig, logger *slog.Logger) AnalysisBroadcaster {
	if config.BufferSize <= 0 {
		config.BufferSize = 16
	}
	if config.MaxSubscriptionsPerUser <= 0 {
		config.MaxSubscriptionsPerUser = 5
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &analysisBroadcaster{
		config:      config,
		subscribers: make(map[string]*analysisSubscriber),
		userSubs:    make(map[string][]string),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for the user's events.
func (b *analysisBroadcaster) Subscribe(userID string) (<-chan *domain.AnalysisEvent, func(), error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("user ID cannot be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.userSubs[userID]) >= b.config.MaxSubscriptionsPerUser {
		return nil, nil, fmt.Errorf("user %s has reached the maximum of %d subscriptions",
			userID, b.config.MaxSubscriptionsPerUser)
	}

	sub := &analysisSubscriber{
		id:     uuid.New().String(),
		userID: userID,
		events: make(chan *domain.AnalysisEvent, b.config.BufferSize),
	}
	b.subscribers[sub.id] = sub
	b.userSubs[userID] = append(b.userSubs[userID], sub.id)

	cancel := func() { b.unsubscribe(sub.id) }
	return sub.events, cancel, nil
}

func (b *analysisBroadcaster) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscribers[subID]
	if !exists {
		return
	}
	delete(b.subscribers, subID)

	ids := b.userSubs[sub.userID]
	for i, id := range ids {
		if id == subID {
			b.userSubs[sub.userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(b.userSubs[sub.userID]) == 0 {
		delete(b.userSubs, sub.userID)
	}

	close(sub.events)
}

// Publish delivers the event to every subscriber of event.UserID.
func (b *analysisBroadcaster) Publish(event *domain.AnalysisEvent) {
	if event == nil || event.UserID == "" {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, subID := range b.userSubs[event.UserID] {
		sub, exists := b.subscribers[subID]
		if !exists {
			continue
		}
		select {
		case sub.events <- event:
		default:
			b.logger.Warn("dropping analysis event for slow subscriber",
				"subscription_id", sub.id,
				"user_id", sub.userID,
				"analysis_id", event.AnalysisID)
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (b *analysisBroadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
