package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/date-engine/internal/handlers"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted dates against a running date-engine API.
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadCase reads one YAML case file.
func LoadCase(filename string) (PlaythroughCase, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return PlaythroughCase{}, fmt.Errorf("failed to read case file %s: %w", filename, err)
	}

	var c PlaythroughCase
	if err := yaml.Unmarshal(content, &c); err != nil {
		return PlaythroughCase{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	for i, step := range c.Steps {
		if err := step.Validate(); err != nil {
			return PlaythroughCase{}, fmt.Errorf("%s step %d: %w", filename, i, err)
		}
	}
	return c, nil
}

// LoadCaseWithExpansion loads a case and, for a sequence, every case it
// references (paths relative to casesDir).
func LoadCaseWithExpansion(filename string, casesDir string) ([]CaseJob, error) {
	c, err := LoadCase(filename)
	if err != nil {
		return nil, err
	}
	if !c.IsSequence() {
		return []CaseJob{{Name: c.Name, Case: c, CaseFile: filename}}, nil
	}

	var jobs []CaseJob
	for _, ref := range c.Cases {
		sub, err := LoadCaseWithExpansion(filepath.Join(casesDir, ref), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", ref, c.Name, err)
		}
		jobs = append(jobs, sub...)
	}
	return jobs, nil
}

// RunCase creates a game from the case setup and plays every step.
func (r *Runner) RunCase(ctx context.Context, c PlaythroughCase) (CaseRunResult, error) {
	start := time.Now()
	result := CaseRunResult{
		Job:     CaseJob{Name: c.Name, Case: c},
		Results: make([]StepResult, 0, len(c.Steps)),
	}

	game, err := r.createGame(ctx, c.Setup)
	if err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = game.ID

	var watcher *EventWatcher
	if needsEvents(c.Steps) {
		watcher, err = WatchEvents(ctx, r.BaseURL, game.ID)
		if err != nil {
			result.Error = fmt.Errorf("failed to subscribe to events: %w", err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
		defer watcher.Close()
	}

	for i, step := range c.Steps {
		name := stepName(i, step)
		r.Logger("    [%d/%d] Running step: %s", i+1, len(c.Steps), name)

		stepResult := r.runStep(ctx, game.ID, step, watcher)
		stepResult.StepName = name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(c.Steps), name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(c.Steps), name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, step CaseStep, watcher *EventWatcher) StepResult {
	start := time.Now()
	res := StepResult{}

	var (
		resp *handlers.TransitionResponse
		game *handlers.GameView
		err  error
	)
	switch step.Action {
	case ActionChoice:
		resp, err = r.transition(ctx, gameID, "choice", map[string]string{"choice_id": step.ChoiceID})
	case ActionRespond:
		resp, err = r.transition(ctx, gameID, "respond", map[string]string{"message": step.Message})
	case ActionRestart:
		game = &handlers.GameView{}
		err = r.do(ctx, http.MethodPost, "/v1/gamestate/"+gameID.String()+"/restart", nil, http.StatusOK, game)
	case ActionDriftReset:
		err = r.do(ctx, http.MethodPost, "/v1/gamestate/"+gameID.String()+"/drift-reset", nil, http.StatusAccepted, nil)
	case ActionLeave:
		err = r.do(ctx, http.MethodDelete, "/v1/gamestate/"+gameID.String(), nil, http.StatusNoContent, nil)
	}
	if err != nil {
		res.Error = err
		res.Duration = time.Since(start)
		return res
	}

	if resp != nil {
		res.ResponseText = resp.NpcResponse
		game = resp.Game
	}
	if err := checkExpectations(step.Expect, resp, game); err != nil {
		res.Error = err
	} else if step.WaitEvent != "" {
		res.Error = watcher.WaitFor(ctx, step.WaitEvent, EventTimeout)
	}

	res.Success = res.Error == nil
	res.Duration = time.Since(start)
	return res
}

func checkExpectations(exp Expectations, resp *handlers.TransitionResponse, game *handlers.GameView) error {
	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	if exp.Applied != nil {
		if resp == nil {
			fail("applied checked on a step without a transition")
		} else if resp.Applied != *exp.Applied {
			fail("applied: want %v, got %v", *exp.Applied, resp.Applied)
		}
	}
	if exp.ResponseNotEmpty && (resp == nil || strings.TrimSpace(resp.NpcResponse) == "") {
		fail("expected a non-empty npc response")
	}
	if resp != nil {
		for _, s := range exp.ResponseNotContains {
			if strings.Contains(strings.ToLower(resp.NpcResponse), strings.ToLower(s)) {
				fail("npc response contains %q", s)
			}
		}
	}

	if game == nil {
		if exp.TurnIndex != nil || exp.TurnID != nil || exp.Meters != nil || exp.IsComplete != nil || exp.OutcomeID != nil {
			fail("game expectations set on a step that returns no game")
		}
	} else {
		if exp.TurnIndex != nil && game.TurnIndex != *exp.TurnIndex {
			fail("turn_index: want %d, got %d", *exp.TurnIndex, game.TurnIndex)
		}
		if exp.TurnID != nil && game.TurnID != *exp.TurnID {
			fail("turn_id: want %q, got %q", *exp.TurnID, game.TurnID)
		}
		if exp.Meters != nil && game.Meters != *exp.Meters {
			fail("meters: want %+v, got %+v", *exp.Meters, game.Meters)
		}
		if exp.IsComplete != nil && game.IsComplete != *exp.IsComplete {
			fail("is_complete: want %v, got %v", *exp.IsComplete, game.IsComplete)
		}
		if exp.OutcomeID != nil {
			got := ""
			if game.Outcome != nil {
				got = game.Outcome.OutcomeID
			}
			if got != *exp.OutcomeID {
				fail("outcome_id: want %q, got %q", *exp.OutcomeID, got)
			}
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return nil
}

func (r *Runner) createGame(ctx context.Context, setup CaseSetup) (*handlers.GameView, error) {
	req := handlers.CreateGameStateRequest{
		EpisodeID:       setup.EpisodeID,
		LocationID:      setup.LocationID,
		ToneID:          setup.ToneID,
		DateIdeaID:      setup.DateIdeaID,
		DateCharacterID: setup.DateCharacterID,
	}
	if setup.PlayerName != "" {
		req.Player = &handlers.PlayerRequest{Name: setup.PlayerName}
	}

	var game handlers.GameView
	if err := r.do(ctx, http.MethodPost, "/v1/gamestate", req, http.StatusCreated, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *Runner) transition(ctx context.Context, gameID uuid.UUID, action string, body any) (*handlers.TransitionResponse, error) {
	var resp handlers.TransitionResponse
	if err := r.do(ctx, http.MethodPost, "/v1/gamestate/"+gameID.String()+"/"+action, body, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *Runner) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func needsEvents(steps []CaseStep) bool {
	for _, s := range steps {
		if s.WaitEvent != "" {
			return true
		}
	}
	return false
}

func stepName(i int, s CaseStep) string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Action {
	case ActionChoice:
		return fmt.Sprintf("%d: choice %s", i+1, s.ChoiceID)
	default:
		return fmt.Sprintf("%d: %s", i+1, s.Action)
	}
}
