package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterai/recruit-engine/internal/candidate"
)

func TestParseNotificationInsert(t *testing.T) {
	payload := `{"new": {"id": 12, "project_id": 42, "linkedin_url": "https://linkedin.com/in/x", "status": "A_ENRICHIR"}}`

	evt, err := parseNotification(ChannelInsert, payload)
	require.NoError(t, err)
	assert.Equal(t, OpInsert, evt.Op)
	assert.Nil(t, evt.Old)

	rec, err := candidate.ParseRecord(evt.New)
	require.NoError(t, err)
	assert.Equal(t, int64(12), rec.ID)
	assert.Equal(t, candidate.StatusNeedsEnrichment, rec.Status)
}

func TestParseNotificationUpdate(t *testing.T) {
	payload := `{
		"new": {"id": 12, "status": "PRET_SEQUENCE", "phone": "+33600000000"},
		"old": {"id": 12, "status": "A_ENRICHIR"}
	}`

	evt, err := parseNotification(ChannelUpdate, payload)
	require.NoError(t, err)
	assert.Equal(t, OpUpdate, evt.Op)
	require.NotNil(t, evt.Old)

	oldRec, err := candidate.ParseRecord(evt.Old)
	require.NoError(t, err)
	assert.Equal(t, candidate.StatusNeedsEnrichment, oldRec.Status)
}

func TestParseNotificationRejects(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		payload string
	}{
		{"bad json", ChannelInsert, `{not json`},
		{"missing new", ChannelUpdate, `{"old": {"id": 1}}`},
		{"unknown channel", "candidates_delete", `{"new": {"id": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseNotification(tt.channel, tt.payload)
			assert.Error(t, err)
		})
	}
}
