// Package events publishes pipeline milestones to Kafka for downstream
// consumers (alerting, persistence replication). Publishing is best
// effort: a dead broker degrades to a logged warning, never a failed
// search.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"carscout/models"
	"carscout/utils"
)

const (
	EventNewListings     = "new_listings"
	EventSearchCompleted = "search_completed"
)

// NewListingsEvent announces the scored outcome of one search.
type NewListingsEvent struct {
	EventType   string                    `json:"event_type"`
	Query       models.SearchQuery        `json:"query"`
	Listings    []ListingSummary          `json:"listings"`
	Diagnostics []models.SourceDiagnostic `json:"diagnostics"`
	FoundAt     time.Time                 `json:"found_at"`
}

// ListingSummary is the compact listing shape carried on the wire.
type ListingSummary struct {
	ID             string `json:"id"`
	Source         string `json:"source"`
	Title          string `json:"title"`
	Price          *int   `json:"price"`
	URL            string `json:"url"`
	RelevanceScore int    `json:"relevance_score"`
	FraudScore     int    `json:"fraud_score"`
}

// SearchCompletedEvent announces that one search finished, listings or not.
type SearchCompletedEvent struct {
	EventType     string                    `json:"event_type"`
	Query         models.SearchQuery        `json:"query"`
	TotalListings int                       `json:"total_listings"`
	Diagnostics   []models.SourceDiagnostic `json:"diagnostics"`
	CompletedAt   time.Time                 `json:"completed_at"`
}

// Producer wraps a kafka writer for pipeline events.
type Producer struct {
	writer *kafka.Writer
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// NewProducer builds a Producer for the given brokers and topic.
func NewProducer(brokers []string, topic string, logger *utils.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{
		writer: writer,
		retry: &utils.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// PublishNewListings emits one new_listings event for a completed search.
func (p *Producer) PublishNewListings(ctx context.Context, res *models.SearchResult) error {
	event := NewListingsEvent{
		EventType:   EventNewListings,
		Query:       res.Query,
		Diagnostics: res.Diagnostics,
		FoundAt:     time.Now(),
	}
	for _, l := range res.Listings {
		event.Listings = append(event.Listings, ListingSummary{
			ID:             l.ID,
			Source:         l.Source,
			Title:          l.Title,
			Price:          l.Price,
			URL:            l.URL,
			RelevanceScore: l.RelevanceScore,
			FraudScore:     l.FraudScore,
		})
	}

	if err := p.publish(ctx, EventNewListings, res.Query, event); err != nil {
		return err
	}
	p.logger.Info("[events] published %s: %d listings for %s %s",
		EventNewListings, len(event.Listings), res.Query.Brand, res.Query.Model)
	return nil
}

// PublishSearchCompleted emits one search_completed event. Unlike
// new_listings it fires for empty results too.
func (p *Producer) PublishSearchCompleted(ctx context.Context, res *models.SearchResult) error {
	event := SearchCompletedEvent{
		EventType:     EventSearchCompleted,
		Query:         res.Query,
		TotalListings: len(res.Listings),
		Diagnostics:   res.Diagnostics,
		CompletedAt:   time.Now(),
	}
	return p.publish(ctx, EventSearchCompleted, res.Query, event)
}

func (p *Producer) publish(ctx context.Context, eventType string, q models.SearchQuery, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s event: %w", eventType, err)
	}

	message := kafka.Message{
		Key:   []byte(fmt.Sprintf("search_%s_%s", q.Brand, q.Model)),
		Value: data,
		Time:  time.Now(),
	}

	err = p.retry.Do("kafka-publish", func() error {
		return p.writer.WriteMessages(ctx, message)
	})
	if err != nil {
		return fmt.Errorf("kafka: write %s message: %w", eventType, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
