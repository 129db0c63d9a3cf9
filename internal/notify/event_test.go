package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEnvelope_Marshal(t *testing.T) {
	incident := &models.Incident{ID: uuid.New(), Type: models.TypeFire}
	event := NewIncidentEvent(incident)

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "incident:new", decoded["type"])
	assert.NotContains(t, decoded, "IncidentID")

	// Timestamps must round-trip as ISO-8601.
	ts, ok := decoded["timestamp"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestIncidentUpdateEvent_AddressesPerIncidentChannel(t *testing.T) {
	incident := &models.Incident{ID: uuid.New()}
	event := IncidentUpdateEvent(incident)

	require.NotNil(t, event.IncidentID)
	assert.Equal(t, incident.ID, *event.IncidentID)
	assert.Equal(t, "incidents:"+incident.ID.String(), IncidentChannel(event.IncidentID.String()))
}

func TestEmergencyBroadcastEvent_Payload(t *testing.T) {
	event := EmergencyBroadcastEvent("Shelter in place")

	assert.Equal(t, EventEmergencyBroadcast, event.Type)
	assert.Nil(t, event.IncidentID)

	payload, ok := event.Payload.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Shelter in place", payload["message"])
}
