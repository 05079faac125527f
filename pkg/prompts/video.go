package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/date-engine/pkg/character"
)

// Config is what the video prompts are built from. Location, Tone and
// DateIdea are nil when the setup named an unknown id; their paragraphs are
// then omitted. The player is the camera and never appears.
type Config struct {
	Location      *character.Location
	Tone          *character.Tone
	DateIdea      *character.DateIdea
	DateCharacter character.DateCharacter
}

// ScenePromptOptions tunes the initial prompt.
type ScenePromptOptions struct {
	GlobalConstraints string // appended as a final paragraph when set
}

// ReactionPromptOptions tunes a reaction prompt.
type ReactionPromptOptions struct {
	Reaction          string
	GlobalConstraints string
}

// SceneTransitionOptions describes a move between scenes.
type SceneTransitionOptions struct {
	FromSceneID       string
	ToSceneID         string
	ShotTemplate      string // resolved shot template text
	TransitionContext string
}

func join(parts []string) string {
	return strings.Join(parts, "\n\n")
}

// BuildInitialPrompt starts the stream. The view is first person: only the
// date is ever on screen.
func BuildInitialPrompt(cfg Config, opts ScenePromptOptions) string {
	name := cfg.DateCharacter.DisplayName
	parts := []string{
		fmt.Sprintf("ONE PERSON ONLY. Do not add a second person. Do not show the viewer. Only show %s.", name),
		fmt.Sprintf("%s sitting behind a table, facing the camera. Table edge and drinks visible at bottom of frame. %s", name, cfg.DateCharacter.AppearancePrompt),
		"Medium shot framing. Full face visible, head in upper portion of frame, shoulders and chest visible, table at bottom edge.",
	}
	if cfg.Location != nil {
		parts = append(parts, "Location: "+cfg.Location.WorldBiblePrompt)
	}
	if cfg.Tone != nil {
		parts = append(parts, "Mood: "+cfg.Tone.PromptKit)
	}
	if cfg.DateIdea != nil {
		parts = append(parts, "Date: "+cfg.DateIdea.PromptKit)
	}
	if opts.GlobalConstraints != "" {
		parts = append(parts, opts.GlobalConstraints)
	}
	return join(parts)
}

// BuildReactionPrompt directs the date's reaction to the player's last move
// while holding the scene steady.
func BuildReactionPrompt(cfg Config, opts ReactionPromptOptions) string {
	name := cfg.DateCharacter.DisplayName
	parts := []string{
		fmt.Sprintf("ONE PERSON ONLY. Keep showing only %s.", name),
		"MAINTAIN SCENE CONTINUITY: Keep the existing drinks/glasses on the table. Do not remove any objects already in the scene. New objects should appear alongside existing ones, not replace them.",
		fmt.Sprintf("%s reacts: %s", name, opts.Reaction),
		"Same table with drinks, same location, same framing. Table visible at bottom of frame. Smooth gradual transition - no sudden object changes.",
	}
	if opts.GlobalConstraints != "" {
		parts = append(parts, opts.GlobalConstraints)
	}
	return join(parts)
}

// BuildDriftResetPrompt pulls a drifting stream back to the original setup.
func BuildDriftResetPrompt(cfg Config, driftResetText string) string {
	name := cfg.DateCharacter.DisplayName
	parts := []string{driftResetText}
	if cfg.Location != nil {
		parts = append(parts, "Location: "+cfg.Location.Label)
	}
	parts = append(parts,
		fmt.Sprintf("First-person view of %s: %s", name, cfg.DateCharacter.AppearancePrompt),
		fmt.Sprintf("Only %s visible, facing camera.", name),
	)
	return join(parts)
}

// BuildSceneTransitionPrompt moves the stream to a new scene and shot.
func BuildSceneTransitionPrompt(cfg Config, opts SceneTransitionOptions) string {
	name := cfg.DateCharacter.DisplayName
	var parts []string
	if opts.TransitionContext != "" {
		parts = append(parts, opts.TransitionContext)
	}
	parts = append(parts, fmt.Sprintf("First-person POV continues. %s (%s) facing camera.", name, cfg.DateCharacter.Gender))
	if opts.ShotTemplate != "" {
		parts = append(parts, opts.ShotTemplate)
	}
	if cfg.Tone != nil {
		parts = append(parts, cfg.Tone.PromptKit)
	}
	parts = append(parts, fmt.Sprintf("Smooth transition. Same %s, same outfit. First-person view. Stable camera.", name))
	return join(parts)
}
