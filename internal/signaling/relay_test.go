package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/translate/internal/commons"
)

type recordingSender struct {
	sent map[string][]byte
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[string][]byte)}
}

func (s *recordingSender) Send(userID string, message []byte) bool {
	s.sent[userID] = message
	return true
}

func TestForwardDeliversToTargetWithFromUserID(t *testing.T) {
	sender := newRecordingSender()
	relay := New(commons.NewTestLogger(), sender)

	env := InboundEnvelope{
		Type:         "webrtc_offer",
		TargetUserID: "B",
		Offer:        json.RawMessage(`"SDP_A"`),
	}
	relay.Forward("A", env, []string{"A", "B"})

	require.Contains(t, sender.sent, "B")
	var decoded outboundEnvelope
	require.NoError(t, json.Unmarshal(sender.sent["B"], &decoded))
	assert.Equal(t, "webrtc_offer", decoded.Type)
	assert.Equal(t, "A", decoded.FromUserID)
	assert.JSONEq(t, `"SDP_A"`, string(decoded.Offer))
}

func TestForwardDropsSilentlyWhenTargetAbsent(t *testing.T) {
	sender := newRecordingSender()
	relay := New(commons.NewTestLogger(), sender)

	env := InboundEnvelope{Type: "ice_candidate", TargetUserID: "ghost", Candidate: json.RawMessage(`{}`)}
	relay.Forward("A", env, []string{"A", "B"})

	assert.Empty(t, sender.sent)
}

func TestForwardDoesNotNotifyOtherRoomMembers(t *testing.T) {
	sender := newRecordingSender()
	relay := New(commons.NewTestLogger(), sender)

	env := InboundEnvelope{Type: "webrtc_answer", TargetUserID: "B", Answer: json.RawMessage(`"SDP_B"`)}
	relay.Forward("A", env, []string{"A", "B", "C"})

	assert.Contains(t, sender.sent, "B")
	assert.NotContains(t, sender.sent, "C")
	assert.NotContains(t, sender.sent, "A")
}
