package queue

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_JSON(t *testing.T) {
	id := uuid.New()
	req := NewRequest(RequestTypeStreamInteract, id, "Mina reacts: smiles.", ReasonChoice)
	req.TurnID = "t1_meet"

	data, err := req.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"game_state_id":"`+id.String()+`"`)
	assert.Contains(t, string(data), `"type":"stream.interact"`)

	got, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, req.RequestID, got.RequestID)
	assert.Equal(t, id, got.GameStateID)
	assert.Equal(t, "t1_meet", got.TurnID)
	assert.Equal(t, ReasonChoice, got.Reason)
}

func TestFromJSON_BadGameStateID(t *testing.T) {
	_, err := FromJSON([]byte(`{"request_id":"r","type":"stream.stop","game_state_id":"not-a-uuid"}`))
	require.Error(t, err)

	_, err = FromJSON([]byte(strings.Repeat("{", 3)))
	require.Error(t, err)
}
