// Package notifications publishes operational events (budget alerts, model
// health changes) to an SNS topic so billing and on-call tooling can react.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/pagecraft/ai-router/internal/budget"
	"github.com/pagecraft/ai-router/internal/domain"
)

type EventType string

const (
	EventBudgetWarning  EventType = "budget_warning"
	EventBudgetCritical EventType = "budget_critical"
	EventBudgetExceeded EventType = "budget_exceeded"
	EventModelDown      EventType = "model_down"
	EventModelRecovered EventType = "model_recovered"
)

type Event struct {
	Type     EventType      `json:"type"`
	TenantID string         `json:"tenant_id,omitempty"`
	ModelID  string         `json:"model_id,omitempty"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, event Event) error
}

type SNSNotifier struct {
	client   *sns.Client
	topicArn string
}

func NewSNSNotifier(ctx context.Context, region, topicArn string) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSNSNotifierWithConfig(cfg, topicArn), nil
}

func NewSNSNotifierWithConfig(cfg aws.Config, topicArn string) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}
}

func (n *SNSNotifier) Send(ctx context.Context, event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"Type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Type)),
			},
		},
	}
	if event.TenantID != "" {
		input.MessageAttributes["TenantID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(event.TenantID),
		}
	}

	if _, err := n.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Info("event published",
		"type", event.Type,
		"tenant_id", event.TenantID,
		"model", event.ModelID,
	)
	return nil
}

// BudgetAlertHandler adapts a Notifier to the budget monitor's handler hook.
func BudgetAlertHandler(n Notifier) budget.AlertHandler {
	levelToEvent := map[budget.AlertLevel]EventType{
		budget.AlertLevelWarning:  EventBudgetWarning,
		budget.AlertLevelCritical: EventBudgetCritical,
		budget.AlertLevelExceeded: EventBudgetExceeded,
	}

	return func(alert budget.Alert) {
		event := Event{
			Type:     levelToEvent[alert.Level],
			TenantID: alert.TenantID,
			Message:  fmt.Sprintf("tenant %s at %.0f%% of daily AI budget", alert.TenantID, alert.Percentage),
			Data: map[string]any{
				"date":        alert.Date,
				"limit_cents": alert.LimitCents,
				"spent_cents": alert.SpentCents,
			},
		}
		if err := n.Send(context.Background(), event); err != nil {
			slog.Warn("budget alert publish failed", "tenant_id", alert.TenantID, "error", err)
		}
	}
}

// HealthSink wraps an availability sink and additionally publishes model
// down/recovered transitions.
type HealthSink struct {
	mu       sync.Mutex
	inner    interface {
		SetAvailability(modelID string, availability domain.ModelAvailability)
	}
	notifier Notifier
	last     map[string]domain.ModelAvailability
}

func NewHealthSink(inner interface {
	SetAvailability(modelID string, availability domain.ModelAvailability)
}, notifier Notifier) *HealthSink {
	return &HealthSink{
		inner:    inner,
		notifier: notifier,
		last:     make(map[string]domain.ModelAvailability),
	}
}

func (s *HealthSink) SetAvailability(modelID string, availability domain.ModelAvailability) {
	s.inner.SetAvailability(modelID, availability)

	s.mu.Lock()
	prev, seen := s.last[modelID]
	s.last[modelID] = availability
	s.mu.Unlock()

	var event *Event
	switch {
	case availability == domain.AvailabilityDown && prev != domain.AvailabilityDown:
		event = &Event{
			Type:    EventModelDown,
			ModelID: modelID,
			Message: fmt.Sprintf("model %s marked down", modelID),
		}
	case seen && prev != domain.AvailabilityAvailable && availability == domain.AvailabilityAvailable:
		event = &Event{
			Type:    EventModelRecovered,
			ModelID: modelID,
			Message: fmt.Sprintf("model %s recovered", modelID),
		}
	}
	if event == nil {
		return
	}
	if err := s.notifier.Send(context.Background(), *event); err != nil {
		slog.Warn("health event publish failed", "model", modelID, "error", err)
	}
}

// InMemoryNotifier collects events, for tests and local runs.
type InMemoryNotifier struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

func (n *InMemoryNotifier) Send(ctx context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *InMemoryNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.events))
	copy(out, n.events)
	return out
}
