package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jwebster45206/date-engine/internal/content"
	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/engine"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/state"
)

func main() {
	paths := flag.Bool("paths", false, "play every scripted path and report outcome coverage")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-paths] <episode.json|dir>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	files, err := collectFiles(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, f := range files {
		ep, err := validateFile(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		if *paths {
			if err := reportPaths(os.Stdout, ep); err != nil {
				fmt.Fprintf(os.Stderr, "Path check failed for %s: %v\n", f, err)
				failed = true
			}
		}
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println("Episode files are valid!")
}

func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, errors.New("no episode files found")
	}
	return files, nil
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func validateFile(filename string) (*episode.Episode, error) {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return nil, fmt.Errorf("episode file must have .json extension: %s", baseName)
	}
	// Allow 'x.' prefix for experimental episodes
	name := strings.TrimPrefix(strings.TrimSuffix(baseName, ".json"), "x.")
	if !validFilenameRegex.MatchString(name) {
		return nil, fmt.Errorf("episode filename '%s' must be lowercase snake_case (e.g., first_date.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	ep, err := content.ParseEpisode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return ep, nil
}

// reportPaths plays every combination of scripted choices in strict mode.
// It fails when some meter state reaches a turn with no matching line.
func reportPaths(w io.Writer, ep *episode.Episode) error {
	eng := engine.New(ep, slog.New(slog.NewTextHandler(io.Discard, nil))).WithStrict(true)
	counts := make(map[string]int)
	var problems []string

	var walk func(gs *state.GameState, path []string)
	walk = func(gs *state.GameState, path []string) {
		if gs.IsComplete {
			counts[episode.DetermineOutcomeOrDefault(gs.Meters, ep.Outcomes).OutcomeID]++
			return
		}
		if _, err := eng.ResolveNpcLine(gs); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", strings.Join(path, " > "), err))
			return
		}
		turn, _ := eng.CurrentTurn(gs)
		for _, c := range turn.Choices {
			next := *gs
			next.Transcript = append([]state.TranscriptEntry(nil), gs.Transcript...)
			eng.MakeChoice(&next, c.ChoiceID)
			walk(&next, append(append([]string(nil), path...), c.ChoiceID))
		}
	}
	walk(state.NewGameState(ep, character.Setup{}.WithDefaults()), nil)

	total := 0
	ids := make([]string, 0, len(counts))
	for id, n := range counts {
		ids = append(ids, id)
		total += n
	}
	sort.Strings(ids)

	fmt.Fprintf(w, "%s: %d scripted paths\n", ep.EpisodeID, total)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-14s %5d  (%.1f%%)  %s\n", id, counts[id], 100*float64(counts[id])/float64(total), ep.OutcomeByID(id).Label)
	}
	for _, o := range ep.Outcomes {
		if counts[o.OutcomeID] == 0 {
			fmt.Fprintf(w, "  warning: outcome %s is unreachable by scripted choices\n", o.OutcomeID)
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%d path(s) hit a turn with no line:\n  - %s", len(problems), strings.Join(problems, "\n  - "))
	}
	return nil
}
