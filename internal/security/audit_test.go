package security

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/reception/internal/infrastructure/redpanda"
)

func TestAuditOutboxEntry(t *testing.T) {
	entry := &AuditEntry{
		ID:       uuid.New(),
		OfficeID: uuid.New(),
		Actor:    "env-client",
		Action:   ActionAppointmentBooked,
		Detail:   json.RawMessage(`{"slotId":"abc"}`),
	}

	ob, err := outboxEntryFor(entry)
	require.NoError(t, err)

	assert.Equal(t, redpanda.TopicAuditTrail, ob.Topic)
	assert.Equal(t, entry.OfficeID.String(), ob.Key)
	assert.Equal(t, ActionAppointmentBooked, ob.EventType)
	assert.Equal(t, "audit_entry", ob.AggregateType)

	var decoded AuditEntry
	require.NoError(t, json.Unmarshal(ob.Payload, &decoded))
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, entry.Actor, decoded.Actor)
	assert.JSONEq(t, string(entry.Detail), string(decoded.Detail))
}
