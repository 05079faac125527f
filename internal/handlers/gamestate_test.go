package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/date-engine/internal/content"
	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/conditionals"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/meters"
	"github.com/jwebster45206/date-engine/pkg/queue"
	"github.com/jwebster45206/date-engine/pkg/state"
)

func TestGameStateHandler_CreateDefaults(t *testing.T) {
	env := newTestEnv(t)

	view := env.create(t, "")

	assert.NotEqual(t, uuid.Nil, view.ID)
	assert.Equal(t, "episode-1", view.EpisodeID)
	assert.Equal(t, "neon_cafe", view.Setup.LocationID)
	assert.Equal(t, "cozy", view.Setup.ToneID)
	assert.Equal(t, "mina", view.Setup.DateCharacterID)
	assert.Equal(t, "You", view.Setup.Player.Name)
	assert.Equal(t, character.Male, view.Setup.Player.Gender)

	assert.Equal(t, 0, view.TurnIndex)
	assert.Equal(t, 6, view.TotalTurns)
	assert.Equal(t, "t1_meet", view.TurnID)
	require.NotNil(t, view.NpcLine)
	assert.Contains(t, view.NpcLine.Text, "first impressions")
	assert.Len(t, view.Choices, 3)
	assert.Equal(t, meters.Meters{}, view.Meters)
	assert.False(t, view.IsComplete)
	assert.Nil(t, view.Outcome)
	assert.False(t, view.Video.Enabled)
	assert.NotEmpty(t, view.Video.Placeholder)

	saved, err := env.storage.LoadGameState(t.Context(), view.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)

	calls := env.streams.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "start", calls[0].kind)
	assert.Contains(t, calls[0].prompt, "ONE PERSON ONLY")
	assert.Contains(t, calls[0].prompt, "Location: ")
}

func TestGameStateHandler_CreateWithSetup(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		check          func(t *testing.T, v GameView)
	}{
		{
			name:           "custom character",
			body:           `{"date_character":{"name":"Rio","gender":"non-binary","appearance":"silver jacket, short curls"}}`,
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, v GameView) {
				assert.Equal(t, character.CustomID, v.Setup.DateCharacterID)
				assert.Equal(t, "Rio", v.DateCharacter.DisplayName)
				assert.Equal(t, character.NonBinary, v.DateCharacter.Gender)
			},
		},
		{
			name:           "unknown preset falls back",
			body:           `{"date_character_id":"nobody"}`,
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, v GameView) {
				assert.Equal(t, "mina", v.DateCharacter.CharacterID)
			},
		},
		{
			name:           "player override",
			body:           `{"player":{"name":"Sam","gender":"female"}}`,
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, v GameView) {
				assert.Equal(t, "Sam", v.Setup.Player.Name)
				assert.Equal(t, character.Female, v.Setup.Player.Gender)
			},
		},
		{
			name:           "custom character missing appearance",
			body:           `{"date_character":{"name":"Rio","gender":"female"}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid gender",
			body:           `{"player":{"name":"Sam","gender":"robot"}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown episode",
			body:           `{"episode_id":"episode-99"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			body:           `{"episode_id":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.do(t, http.MethodPost, "/v1/gamestate", tt.body)
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.check != nil {
				tt.check(t, decode[GameView](t, rr))
			}
		})
	}
}

func TestGameStateHandler_Read(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")

	rr := env.do(t, http.MethodGet, "/v1/gamestate/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[GameView](t, rr)
	assert.Equal(t, created.ID, view.ID)
	assert.Equal(t, "t1_meet", view.TurnID)

	rr = env.do(t, http.MethodGet, "/v1/gamestate/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/v1/gamestate/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/v1/gamestate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = env.do(t, http.MethodPut, "/v1/gamestate/"+created.ID.String(), "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/dance", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/v1/gamestate/"+created.ID.String()+"/choice", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestGameStateHandler_Choice(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.streams.reset()

	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/choice", `{"choice_id":"t1_a_sincere"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[TransitionResponse](t, rr)
	assert.True(t, resp.Applied)
	assert.Equal(t, "t1_a_sincere", resp.ChoiceID)
	require.NotNil(t, resp.MeterDelta)
	assert.Equal(t, meters.Delta{Trust: 1}, *resp.MeterDelta)
	require.NotNil(t, resp.Game)
	assert.Equal(t, 1, resp.Game.TurnIndex)
	assert.Equal(t, "t2_followup", resp.Game.TurnID)
	assert.Equal(t, meters.Meters{Trust: 1}, resp.Game.Meters)
	require.Len(t, resp.Game.Transcript, 1)
	assert.Equal(t, "t1_meet", resp.Game.Transcript[0].TurnID)
	assert.Contains(t, resp.Game.Transcript[0].NpcLine, "first impressions")

	calls := env.streams.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "interact", calls[0].kind)
	assert.Equal(t, queue.ReasonChoice, calls[0].reason)
	assert.Equal(t, "t1_meet", calls[0].turnID)
	assert.Contains(t, calls[0].prompt, "Mina reacts: ")
	assert.Contains(t, calls[0].prompt, "MAINTAIN SCENE CONTINUITY")

	assert.Equal(t, []string{"turn.advanced"}, env.events.all())
	assert.False(t, env.storage.IsLocked(created.ID), "lock must be released")
}

func TestGameStateHandler_ChoiceUnknownIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.streams.reset()

	// t2 choice while on t1: stale submission
	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/choice", `{"choice_id":"t2_a_honest"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[TransitionResponse](t, rr)
	assert.False(t, resp.Applied)
	assert.Nil(t, resp.MeterDelta)
	assert.Equal(t, 0, resp.Game.TurnIndex)
	assert.Empty(t, resp.Game.Transcript)
	assert.Empty(t, env.streams.all())
	assert.Empty(t, env.events.all())
}

func TestGameStateHandler_ChoiceValidation(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	path := "/v1/gamestate/" + created.ID.String() + "/choice"

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path, `{"choice_id":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path, `nope`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/v1/gamestate/"+uuid.NewString()+"/choice", `{"choice_id":"x"}`).Code)
}

func TestGameStateHandler_Locked(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")

	token, err := env.storage.AcquireGameLock(t.Context(), created.ID, DefaultLockTTL)
	require.NoError(t, err)

	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/choice", `{"choice_id":"t1_a_sincere"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/respond", `{"message":"hi"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	require.NoError(t, env.storage.ReleaseGameLock(t.Context(), created.ID, token))
	rr = env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/choice", `{"choice_id":"t1_a_sincere"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGameStateHandler_PlayToCompletion(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.streams.reset()
	path := "/v1/gamestate/" + created.ID.String() + "/choice"

	var resp TransitionResponse
	for _, choice := range []string{"t1_a_sincere", "t2_a_honest", "t3_a_validate", "t4_c_sincere", "t5_a_romantic", "t6_b_sweet"} {
		rr := env.do(t, http.MethodPost, path, fmt.Sprintf(`{"choice_id":%q}`, choice))
		require.Equal(t, http.StatusOK, rr.Code)
		resp = decode[TransitionResponse](t, rr)
		require.True(t, resp.Applied, choice)
	}

	game := resp.Game
	assert.True(t, game.IsComplete)
	assert.Equal(t, 6, game.TurnIndex)
	assert.Empty(t, game.Choices)
	assert.Nil(t, game.NpcLine)
	// trust clamps at the meter max
	assert.Equal(t, meters.Meters{Trust: 6, Chemistry: 4, Affection: 6}, game.Meters)
	require.NotNil(t, game.Outcome)
	assert.Equal(t, "spark", game.Outcome.OutcomeID)
	assert.Contains(t, game.ResultsURL, "trust=6")
	assert.Contains(t, game.ResultsURL, "chemistry=4")
	assert.Contains(t, game.ResultsURL, "episode=episode-1")

	events := env.events.all()
	assert.Equal(t, "game.completed", events[len(events)-1])
	assert.Equal(t, []string{"spark"}, env.events.outcomes)

	var transitions int
	for _, c := range env.streams.all() {
		if c.reason == queue.ReasonTransition {
			transitions++
		}
	}
	// scene1 -> scene2_transition -> scene2_walk -> scene2_end
	assert.Equal(t, 3, transitions)

	// further choices are ignored once complete
	rr := env.do(t, http.MethodPost, path, `{"choice_id":"t6_a_romantic"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[TransitionResponse](t, rr).Applied)
}

func TestGameStateHandler_Respond(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.streams.reset()

	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/respond", `{"message":"I love the rain on the window."}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[TransitionResponse](t, rr)
	assert.True(t, resp.Applied)
	assert.Equal(t, state.CustomChoiceID, resp.ChoiceID)
	assert.Equal(t, "That's sweet of you to say.", resp.NpcResponse)
	require.NotNil(t, resp.MeterDelta)
	assert.Equal(t, meters.Delta{Trust: 1, Chemistry: 1}, *resp.MeterDelta)
	require.NotNil(t, resp.IsAppropriate)
	assert.True(t, *resp.IsAppropriate)

	entry := resp.Game.Transcript[0]
	assert.Equal(t, state.CustomChoiceID, entry.ChoiceID)
	assert.Equal(t, "That's sweet of you to say.", entry.NpcLine)
	assert.Equal(t, "I love the rain on the window.", entry.PlayerText)

	_, chatCalls := env.llm.GetCalls()
	require.Len(t, chatCalls, 1)
	var userPrompt string
	for _, m := range chatCalls[0].Messages {
		userPrompt += m.Content
	}
	assert.Contains(t, userPrompt, "I love the rain on the window.")
	assert.Contains(t, userPrompt, "Mina")

	calls := env.streams.all()
	require.Len(t, calls, 1)
	assert.Equal(t, queue.ReasonCustom, calls[0].reason)
	assert.Contains(t, calls[0].prompt, "Character smiles warmly")
}

func TestGameStateHandler_RespondClampsAndFilters(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.llm.SetChatReply(`Sure! {"meterDelta":{"trust":9,"chemistry":-7,"affection":2},"npcDialogue":"Well damn, that's bold.","visualPrompt":"Raises an eyebrow.","isAppropriate":true}`)

	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/respond", `{"message":"Let's skip dessert."}`)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[TransitionResponse](t, rr)
	assert.Equal(t, meters.Delta{Trust: 3, Chemistry: -3, Affection: 2}, *resp.MeterDelta)
	assert.Equal(t, "Well dang, that's bold.", resp.NpcResponse)
	assert.Equal(t, meters.Meters{Trust: 3, Chemistry: -3, Affection: 2}, resp.Game.Meters)
}

func TestGameStateHandler_RespondFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(env *testEnv)
		dialogue string
	}{
		{
			name:     "llm error",
			setup:    func(env *testEnv) { env.llm.SetChatError(errors.New("upstream down")) },
			dialogue: "Sorry, I got a bit distracted. What were you saying?",
		},
		{
			name:     "unparseable reply",
			setup:    func(env *testEnv) { env.llm.SetChatReply("I am not JSON") },
			dialogue: "Hmm, I'm not sure what to say to that...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			created := env.create(t, "")
			tt.setup(env)

			rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/respond", `{"message":"hello"}`)
			require.Equal(t, http.StatusOK, rr.Code)

			resp := decode[TransitionResponse](t, rr)
			assert.True(t, resp.Applied, "fallback still advances the turn")
			assert.Equal(t, tt.dialogue, resp.NpcResponse)
			assert.Equal(t, meters.Delta{}, *resp.MeterDelta)
			assert.Equal(t, 1, resp.Game.TurnIndex)
		})
	}
}

func TestGameStateHandler_RespondValidation(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	path := "/v1/gamestate/" + created.ID.String() + "/respond"

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path, `{"message":"   "}`).Code)
	long := strings.Repeat("a", 501)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path, fmt.Sprintf(`{"message":%q}`, long)).Code)
	_, chatCalls := env.llm.GetCalls()
	assert.Empty(t, chatCalls)
}

func TestGameStateHandler_Restart(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/choice", `{"choice_id":"t1_b_playful"}`)
	before, _ := env.storage.LoadGameState(t.Context(), created.ID)
	env.streams.reset()

	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/restart", "")
	require.Equal(t, http.StatusOK, rr.Code)

	view := decode[GameView](t, rr)
	assert.Equal(t, created.ID, view.ID)
	assert.Equal(t, 0, view.TurnIndex)
	assert.Empty(t, view.Transcript)
	assert.Equal(t, meters.Meters{}, view.Meters)

	after, _ := env.storage.LoadGameState(t.Context(), created.ID)
	assert.NotEqual(t, before.Seed, after.Seed)

	assert.Contains(t, env.events.all(), "game.restarted")
	calls := env.streams.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "start", calls[0].kind)
}

func TestGameStateHandler_DriftReset(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.streams.reset()

	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/drift-reset", "")
	require.Equal(t, http.StatusAccepted, rr.Code)

	resp := decode[DriftResetResponse](t, rr)
	assert.True(t, resp.Queued)
	assert.True(t, strings.HasPrefix(resp.Prompt, "Return to the original setup"))

	calls := env.streams.all()
	require.Len(t, calls, 1)
	assert.Equal(t, queue.ReasonDriftReset, calls[0].reason)
	assert.Equal(t, "t1_meet", calls[0].turnID)

	// no state change
	saved, _ := env.storage.LoadGameState(t.Context(), created.ID)
	assert.Equal(t, 0, saved.TurnIndex)
}

func TestGameStateHandler_Delete(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.streams.reset()

	rr := env.do(t, http.MethodDelete, "/v1/gamestate/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	saved, err := env.storage.LoadGameState(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, saved)

	calls := env.streams.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "stop", calls[0].kind)
	assert.Equal(t, queue.ReasonLeave, calls[0].reason)

	rr = env.do(t, http.MethodGet, "/v1/gamestate/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGameStateHandler_SaveFailure(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "")
	env.storage.SetSaveError(errors.New("disk full"))

	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/choice", `{"choice_id":"t1_a_sincere"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, env.storage.IsLocked(created.ID))

	saved, _ := env.storage.LoadGameState(t.Context(), created.ID)
	assert.Equal(t, 0, saved.TurnIndex)
}

// brokenEpisode is the default episode whose second turn has no line for
// starting meters.
func brokenEpisode(t *testing.T) *episode.Episode {
	t.Helper()
	eps, err := content.Episodes()
	require.NoError(t, err)
	ep := eps[content.DefaultEpisodeID]
	ep.EpisodeID = "broken"
	high := 99
	ep.Turns[1].NpcLine = nil
	ep.Turns[1].NpcLineVariants = []episode.NpcLineVariant{{
		VariantID: "never",
		Condition: conditionals.Condition{TrustAtLeast: &high},
		Text:      "unreachable",
	}}
	return ep
}

func TestGameStateHandler_StrictContentErrorLeavesGameUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.storage.AddEpisode(brokenEpisode(t))
	env.handler.WithStrict(true)

	created := env.create(t, `{"episode_id":"broken"}`)
	env.streams.reset()

	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/choice", `{"choice_id":"t1_a_sincere"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Episode content error")
	assert.False(t, env.storage.IsLocked(created.ID))

	saved, _ := env.storage.LoadGameState(t.Context(), created.ID)
	assert.Equal(t, 0, saved.TurnIndex, "a failed transition must not be saved")
	assert.Empty(t, saved.Transcript)
	assert.Empty(t, env.streams.all())
	assert.Empty(t, env.events.all())

	rr = env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/respond", `{"message":"I like your jacket"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	saved, _ = env.storage.LoadGameState(t.Context(), created.ID)
	assert.Equal(t, 0, saved.TurnIndex)
}

func TestGameStateHandler_LenientContentErrorStillApplies(t *testing.T) {
	env := newTestEnv(t)
	env.storage.AddEpisode(brokenEpisode(t))

	created := env.create(t, `{"episode_id":"broken"}`)
	rr := env.do(t, http.MethodPost, "/v1/gamestate/"+created.ID.String()+"/choice", `{"choice_id":"t1_a_sincere"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[TransitionResponse](t, rr)
	assert.True(t, resp.Applied)
	require.NotNil(t, resp.Game.NpcLine)
	assert.Empty(t, resp.Game.NpcLine.Text)
}

func TestGameStateHandler_VideoEnabled(t *testing.T) {
	env := newTestEnv(t)
	env.handler.WithVideoEnabled(true)

	view := env.create(t, "")
	assert.True(t, view.Video.Enabled)
	assert.Empty(t, view.Video.Placeholder)
}
