package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	registry := NewHandlerRegistry()
	donations := newTestHandler()
	both := newTestHandler()
	everything := newTestHandler()

	registry.Register(donations, "DonationRecorded")
	registry.Register(both, "DonationRecorded", "CampaignApproved")
	registry.Register(everything)

	handlers := registry.GetHandlers("DonationRecorded")
	assert.Len(t, handlers, 3)
	// wildcard handlers come after typed ones
	assert.Same(t, everything, handlers[2])

	assert.Len(t, registry.GetHandlers("CampaignApproved"), 2)
	assert.Len(t, registry.GetHandlers("Unknown"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := newTestHandler()
	wildcard := newTestHandler()
	registry.Register(typed, "DonationRecorded", "CampaignApproved")
	registry.Register(wildcard)

	registry.Unregister(typed)
	assert.Len(t, registry.GetHandlers("DonationRecorded"), 1)
	assert.Len(t, registry.GetHandlers("CampaignApproved"), 1)

	registry.Unregister(wildcard)
	assert.Empty(t, registry.GetHandlers("DonationRecorded"))
}
