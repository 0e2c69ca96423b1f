package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/domain/identity"
	"github.com/donation/backend/internal/domain/shared"
)

// EventSerializer converts domain events to and from JSON
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type // eventType -> struct type
}

// NewEventSerializer creates an empty event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]reflect.Type),
	}
}

// NewDomainEventSerializer creates a serializer that knows every campaign,
// donation and admin event
func NewDomainEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(campaign.EventTypeCampaignCreated, &campaign.CampaignCreatedEvent{})
	s.Register(campaign.EventTypeCampaignUpdated, &campaign.CampaignUpdatedEvent{})
	s.Register(campaign.EventTypeCampaignApproved, &campaign.CampaignApprovedEvent{})
	s.Register(campaign.EventTypeCampaignRejected, &campaign.CampaignRejectedEvent{})
	s.Register(campaign.EventTypeCampaignCancelled, &campaign.CampaignCancelledEvent{})
	s.Register(campaign.EventTypeCampaignStatusChanged, &campaign.CampaignStatusChangedEvent{})
	s.Register(campaign.EventTypeCampaignDeleted, &campaign.CampaignDeletedEvent{})
	s.Register(donation.EventTypeDonationRecorded, &donation.DonationRecordedEvent{})
	s.Register(donation.EventTypePaymentStatusChanged, &donation.PaymentStatusChangedEvent{})
	s.Register(identity.EventTypeAdminCreated, &identity.AdminCreatedEvent{})
	return s
}

// Register registers an event type for deserialization.
// eventType must match what EventType() returns on the event.
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Serialize encodes a domain event as JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes JSON into the registered type for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	eventPtr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns all registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
