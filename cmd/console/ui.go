package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/date-engine/internal/handlers"
	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/chat"
	"github.com/jwebster45206/date-engine/pkg/meters"
)

const (
	PlaceHolderText = "Pick 1-3, or type your own reply..."

	// nextTurnDelay leaves room for the date's reaction before the next line.
	nextTurnDelay = 3500 * time.Millisecond
	meterBarWidth = 12
)

type phase int

const (
	phaseSetup phase = iota
	phasePlaying
	phaseResults
)

// setupStep is one page of the setup modal.
type setupStep struct {
	title   string
	ids     []string
	labels  []string
	current int
}

type logLine struct {
	speaker string
	text    string
	style   lipgloss.Style
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig
	api    *apiClient

	phase    phase
	view     *handlers.GameView
	next     *handlers.GameView // shown once the reaction pause ends
	lines    []logLine
	notice   string
	err      error
	loading  bool
	pausing  bool
	videoMsg string

	steps         []setupStep
	step          int
	loadingSetup  bool
	showQuitModal bool

	events       chan SSEEvent
	stopEvents   context.CancelFunc
	chatWidth    int
	metaWidth    int
	chatView     viewport.Model
	metaView     viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	progressTick int
}

type setupLoadedMsg struct {
	setup *handlers.SetupResponse
	err   error
}

type gameCreatedMsg struct {
	view *handlers.GameView
	err  error
}

type transitionMsg struct {
	playerText string
	resp       *handlers.TransitionResponse
	err        error
}

type restartedMsg struct {
	view *handlers.GameView
	err  error
}

type noticeMsg struct {
	text string
	err  error
}

type advanceMsg struct{}

type sseMsg struct {
	event SSEEvent
	ok    bool
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	captionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = chat.MaxMessageLength
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:       cfg,
		api:          api,
		phase:        phaseSetup,
		textarea:     ta,
		chatView:     chatVp,
		metaView:     viewport.New(20, 20),
		loadingSetup: true,
		videoMsg:     "waiting",
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadSetup()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case sseMsg:
		if !msg.ok {
			return m, nil
		}
		m.applyStreamEvent(msg.event)
		m.refreshMeta()
		return m, m.waitForEvent()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.refreshChat()
			return m, progressTick()
		}
		return m, nil
	}

	switch m.phase {
	case phaseSetup:
		return m.updateSetup(msg)
	case phaseResults:
		return m.updateResults(msg)
	default:
		return m.updatePlaying(msg)
	}
}

func (m *ConsoleUI) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.chatWidth = int(float64(m.width)*0.7) - 4
	m.metaWidth = m.width - m.chatWidth - 6
	m.chatView.Width = m.chatWidth - 2
	m.chatView.Height = m.height - 6
	m.metaView.Width = m.metaWidth - 2
	m.metaView.Height = m.height - 2
	m.textarea.SetWidth(m.chatWidth - 4)
	m.ready = true
	m.refreshChat()
	m.refreshMeta()
}

// Setup modal

func (m ConsoleUI) loadSetup() tea.Cmd {
	return func() tea.Msg {
		s, err := m.api.setup()
		return setupLoadedMsg{s, err}
	}
}

func buildSteps(s *handlers.SetupResponse) []setupStep {
	chars := setupStep{title: "Who is your date?"}
	for _, c := range s.Characters {
		chars.ids = append(chars.ids, c.CharacterID)
		chars.labels = append(chars.labels, fmt.Sprintf("%s (%s)", c.DisplayName, strings.Join(c.PersonalityTags, ", ")))
	}
	locs := setupStep{title: "Where are you meeting?"}
	for _, l := range s.Locations {
		locs.ids = append(locs.ids, l.LocationID)
		locs.labels = append(locs.labels, l.Label)
	}
	tones := setupStep{title: "What's the vibe?"}
	for _, t := range s.Tones {
		tones.ids = append(tones.ids, t.ToneID)
		tones.labels = append(tones.labels, t.Label)
	}
	ideas := setupStep{title: "What's the plan?"}
	for _, d := range s.DateIdeas {
		ideas.ids = append(ideas.ids, d.DateIdeaID)
		ideas.labels = append(ideas.labels, d.Label)
	}

	steps := []setupStep{chars, locs, tones, ideas}
	defaults := []string{s.Defaults.DateCharacterID, s.Defaults.LocationID, s.Defaults.ToneID, s.Defaults.DateIdeaID}
	for i := range steps {
		for j, id := range steps[i].ids {
			if id == defaults[i] {
				steps[i].current = j
			}
		}
	}
	return steps
}

func (m ConsoleUI) selected(step int) string {
	if step >= len(m.steps) || len(m.steps[step].ids) == 0 {
		return ""
	}
	return m.steps[step].ids[m.steps[step].current]
}

func (m ConsoleUI) createGame() tea.Cmd {
	req := handlers.CreateGameStateRequest{
		DateCharacterID: m.selected(0),
		LocationID:      m.selected(1),
		ToneID:          m.selected(2),
		DateIdeaID:      m.selected(3),
	}
	if m.config.PlayerName != "" {
		req.Player = &handlers.PlayerRequest{Name: m.config.PlayerName}
	}
	return func() tea.Msg {
		view, err := m.api.createGame(req)
		return gameCreatedMsg{view, err}
	}
}

func (m ConsoleUI) updateSetup(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case setupLoadedMsg:
		m.loadingSetup = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.steps = buildSteps(msg.setup)

	case gameCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.phase = phasePlaying
		m.startTurn(msg.view)
		m.textarea.Focus()
		listen := m.subscribe()
		return m, tea.Batch(textarea.Blink, listen)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			if m.loadingSetup || m.err != nil {
				return m, tea.Quit
			}
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingSetup || m.loading || len(m.steps) == 0 {
			return m, nil
		}

		s := &m.steps[m.step]
		switch msg.Type {
		case tea.KeyUp:
			if s.current > 0 {
				s.current--
			}
		case tea.KeyDown:
			if s.current < len(s.ids)-1 {
				s.current++
			}
		case tea.KeyLeft, tea.KeyBackspace:
			if m.step > 0 {
				m.step--
			}
		case tea.KeyEnter:
			if m.step < len(m.steps)-1 {
				m.step++
				return m, nil
			}
			m.loading = true
			return m, m.createGame()
		}
	}
	return m, nil
}

func (m ConsoleUI) renderSetupModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.loadingSetup:
		content.WriteString(modalTitleStyle.Render("Loading..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Fetching characters and places..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(m.err.Error()))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Setting the table..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Your date is on the way."))
	default:
		s := m.steps[m.step]
		content.WriteString(modalTitleStyle.Render(fmt.Sprintf("%s  (%d/%d)", s.title, m.step+1, len(m.steps))))
		content.WriteString("\n\n")
		for i, label := range s.labels {
			if i == s.current {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("↑/↓ choose, Enter next, ← back, Esc quit"))
	}

	modal := modalStyle.Width(64).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

// Playing

// startTurn shows v and, unless the game is over, the date's current line.
func (m *ConsoleUI) startTurn(v *handlers.GameView) {
	m.view = v
	m.next = nil
	m.pausing = false
	if v.IsComplete {
		m.phase = phaseResults
		m.textarea.Blur()
	} else if v.NpcLine != nil {
		m.lines = append(m.lines, logLine{speaker: v.DateCharacter.DisplayName, text: v.NpcLine.Text, style: dateStyle})
		if v.NpcLine.Caption != "" {
			m.lines = append(m.lines, logLine{text: "(" + v.NpcLine.Caption + ")", style: captionStyle})
		}
	}
	m.refreshChat()
	m.refreshMeta()
}

func (m ConsoleUI) updatePlaying(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd, vpCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatView, vpCmd = m.chatView.Update(msg)
		return m, vpCmd

	case transitionMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.refreshChat()
			return m, nil
		}
		m.err = nil
		if !msg.resp.Applied {
			m.notice = "That moment has passed."
			m.view = msg.resp.Game
			m.refreshChat()
			m.refreshMeta()
			return m, nil
		}
		m.lines = append(m.lines, logLine{speaker: "You", text: msg.playerText, style: userStyle})
		if msg.resp.NpcResponse != "" {
			m.lines = append(m.lines, logLine{speaker: m.view.DateCharacter.DisplayName, text: msg.resp.NpcResponse, style: dateStyle})
		}
		if msg.resp.MeterDelta != nil {
			m.notice = formatDelta(*msg.resp.MeterDelta)
		}
		m.next = msg.resp.Game
		m.pausing = true
		m.refreshChat()
		return m, tea.Tick(nextTurnDelay, func(time.Time) tea.Msg { return advanceMsg{} })

	case advanceMsg:
		if m.next != nil {
			m.startTurn(m.next)
		}
		return m, nil

	case restartedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.lines = nil
		m.notice = "Starting over."
		m.phase = phasePlaying
		m.textarea.Focus()
		m.startTurn(msg.view)
		return m, textarea.Blink

	case noticeMsg:
		m.err = msg.err
		if msg.err == nil {
			m.notice = msg.text
		}
		m.refreshChat()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" || m.busy() {
				return m, nil
			}
			m.textarea.Reset()
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.submit(input, "")
		}

		// 1-3 pick a scripted choice while the input is empty
		if m.textarea.Value() == "" && len(msg.Runes) == 1 && !m.busy() {
			if i := int(msg.Runes[0] - '1'); i >= 0 && m.view != nil && i < len(m.view.Choices) {
				c := m.view.Choices[i]
				return m.submit(c.PlayerText, c.ChoiceID)
			}
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatView, vpCmd = m.chatView.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) busy() bool {
	return m.loading || m.pausing || m.view == nil
}

// submit sends a scripted choice when choiceID is set, otherwise free text.
func (m ConsoleUI) submit(text, choiceID string) (tea.Model, tea.Cmd) {
	m.loading = true
	m.progressTick = 0
	m.notice = ""
	m.refreshChat()

	id := m.view.ID
	api := m.api
	send := func() tea.Msg {
		var resp *handlers.TransitionResponse
		var err error
		if choiceID != "" {
			resp, err = api.choose(id, choiceID)
		} else {
			resp, err = api.respond(id, text)
		}
		return transitionMsg{playerText: text, resp: resp, err: err}
	}
	return m, tea.Batch(send, progressTick())
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	id := m.view.ID
	api := m.api

	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/help":
		m.notice = "1-3 pick a reply • type anything to improvise • /reset re-anchors the video • /restart • /copy • /quit"
	case "/reset":
		m.notice = "Re-anchoring the scene..."
		m.refreshChat()
		return m, func() tea.Msg {
			if err := api.driftReset(id); err != nil {
				return noticeMsg{err: err}
			}
			return noticeMsg{text: "Scene reset requested."}
		}
	case "/restart":
		m.loading = true
		return m, func() tea.Msg {
			v, err := api.restart(id)
			return restartedMsg{v, err}
		}
	case "/copy":
		return m, m.copyTranscript()
	case "/quit":
		m.showQuitModal = true
	default:
		m.notice = "Unknown command. Try /help."
	}
	m.refreshChat()
	return m, nil
}

func (m ConsoleUI) copyTranscript() tea.Cmd {
	var b strings.Builder
	for _, l := range m.lines {
		if l.speaker != "" {
			b.WriteString(l.speaker + ": ")
		}
		b.WriteString(l.text + "\n")
	}
	text := b.String()
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return noticeMsg{err: fmt.Errorf("copy failed: %w", err)}
		}
		return noticeMsg{text: "Transcript copied to clipboard."}
	}
}

// Results

func (m ConsoleUI) updateResults(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case restartedMsg, noticeMsg:
		return m.updatePlaying(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, m.quit()
		case "r":
			id := m.view.ID
			api := m.api
			m.loading = true
			return m, func() tea.Msg {
				v, err := api.restart(id)
				return restartedMsg{v, err}
			}
		case "c":
			return m, m.copyTranscript()
		}
	}
	return m, nil
}

func (m ConsoleUI) renderResults() string {
	v := m.view
	var content strings.Builder
	title := "The date is over"
	if v.Outcome != nil {
		title = v.Outcome.Label
	}
	content.WriteString(modalTitleStyle.Render(title))
	content.WriteString("\n\n")
	if v.Outcome != nil && v.Outcome.UISummary != "" {
		content.WriteString(wordwrap.String(v.Outcome.UISummary, 54))
		content.WriteString("\n\n")
	}
	content.WriteString(renderMeters(v.Meters, v.MeterConfig))
	content.WriteString("\n")
	content.WriteString(promptStyle.Render(m.config.APIBaseURL + v.ResultsURL))
	content.WriteString("\n\n")
	if m.notice != "" {
		content.WriteString(loadingStyle.Render(m.notice) + "\n\n")
	}
	content.WriteString(promptStyle.Render("r play again • c copy transcript • q quit"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

// Events

func (m *ConsoleUI) subscribe() tea.Cmd {
	if m.stopEvents != nil {
		m.stopEvents()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.stopEvents = cancel
	m.events = make(chan SSEEvent, 16)

	id := m.view.ID
	api := m.api
	ch := m.events
	go func() {
		defer close(ch)
		_ = api.listenToSSE(ctx, id, ch)
	}()
	return m.waitForEvent()
}

func (m ConsoleUI) waitForEvent() tea.Cmd {
	ch := m.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		return sseMsg{event: ev, ok: ok}
	}
}

func (m *ConsoleUI) applyStreamEvent(ev SSEEvent) {
	switch ev.Type {
	case "stream.connected":
		m.videoMsg = "connecting"
	case "stream.started":
		m.videoMsg = "live"
	case "stream.interact":
		m.videoMsg = "live"
	case "stream.ended":
		m.videoMsg = "ended"
	case "stream.error":
		if msg, ok := ev.Data["message"].(string); ok {
			m.videoMsg = "error: " + msg
		} else {
			m.videoMsg = "error"
		}
	}
}

func (m ConsoleUI) quit() tea.Cmd {
	if m.stopEvents != nil {
		m.stopEvents()
	}
	if m.view == nil {
		return tea.Quit
	}
	id := m.view.ID
	api := m.api
	return tea.Sequence(func() tea.Msg {
		_ = api.leave(id)
		return nil
	}, tea.Quit)
}

// Quit modal

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m, m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.phase == phasePlaying {
					m.textarea.Focus()
					return m, textarea.Blink
				}
				return m, nil
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the date?"))
	content.WriteString("\n\n")
	content.WriteString("Your date will be sad to see you go.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to leave, N to stay"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

// Rendering

func (m *ConsoleUI) refreshChat() {
	if !m.ready {
		return
	}
	width := m.chatView.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	if m.view != nil {
		content.WriteString(titleStyle.Render(strings.ToUpper(m.view.EpisodeTitle)) + "\n\n")
	}
	for _, l := range m.lines {
		content.WriteString(formatLine(l, width) + "\n\n")
	}

	if m.view != nil && !m.pausing && !m.view.IsComplete {
		for i, c := range m.view.Choices {
			content.WriteString(choiceStyle.Render(fmt.Sprintf("[%d] ", i+1)) + wordwrap.String(c.PlayerText, width-4) + "\n")
		}
		content.WriteString("\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar() + "\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.notice != "" {
		content.WriteString(loadingStyle.Render(m.notice) + "\n")
	}

	m.chatView.SetContent(content.String())
	m.chatView.GotoBottom()
}

func (m *ConsoleUI) refreshMeta() {
	if !m.ready || m.view == nil {
		return
	}
	v := m.view
	var content strings.Builder
	content.WriteString(titleStyle.Render("DATE") + "\n\n")
	content.WriteString(v.DateCharacter.DisplayName + "\n")
	pronoun, _ := character.Pronouns(v.DateCharacter.Gender)
	content.WriteString(promptStyle.Render(pronoun+" • "+v.Setup.LocationID) + "\n\n")

	content.WriteString(fmt.Sprintf("Turn %d of %d\n\n", min(v.TurnIndex+1, v.TotalTurns), v.TotalTurns))
	content.WriteString(renderMeters(v.Meters, v.MeterConfig))
	content.WriteString("\n")

	content.WriteString("Video:\n")
	if v.Video.Enabled {
		content.WriteString(m.videoMsg + "\n\n")
	} else {
		content.WriteString(wordwrap.String(v.Video.Placeholder, max(m.metaView.Width-2, 10)) + "\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• 1-3: Choose\n")
	content.WriteString("• Enter: Say it\n")
	content.WriteString("• /reset: Fix video\n")
	content.WriteString("• /copy: Transcript\n")
	content.WriteString("• /help\n")

	m.metaView.SetContent(content.String())
}

func renderMeters(m meters.Meters, cfg meters.ConfigSet) string {
	var b strings.Builder
	values := map[string]int{meters.Trust: m.Trust, meters.Chemistry: m.Chemistry, meters.Affection: m.Affection}
	configs := map[string]meters.Config{meters.Trust: cfg.Trust, meters.Chemistry: cfg.Chemistry, meters.Affection: cfg.Affection}
	for _, name := range meters.Names {
		b.WriteString(fmt.Sprintf("%-10s %s %d\n", name, meterBar(values[name], configs[name]), values[name]))
	}
	return b.String()
}

func meterBar(v int, c meters.Config) string {
	span := c.Max - c.Min
	if span <= 0 {
		return ""
	}
	filled := min(max((v-c.Min)*meterBarWidth/span, 0), meterBarWidth)
	return choiceStyle.Render(strings.Repeat("█", filled)) + separatorStyle.Render(strings.Repeat("░", meterBarWidth-filled))
}

func formatDelta(d meters.Delta) string {
	if d.IsZero() {
		return ""
	}
	var parts []string
	for _, p := range []struct {
		name string
		v    int
	}{{meters.Trust, d.Trust}, {meters.Chemistry, d.Chemistry}, {meters.Affection, d.Affection}} {
		if p.v != 0 {
			parts = append(parts, fmt.Sprintf("%s %+d", p.name, p.v))
		}
	}
	return strings.Join(parts, "  ")
}

func formatLine(l logLine, width int) string {
	if l.speaker == "" {
		return l.style.Render(wordwrap.String(l.text, width))
	}
	prefix := l.speaker + ": "
	wrapped := wordwrap.String(l.text, width-len(prefix))
	return l.style.Render(prefix) + wrapped
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	switch m.phase {
	case phaseSetup:
		return m.renderSetupModal()
	case phaseResults:
		return m.renderResults()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatPanel := chatPanelStyle.Width(m.chatWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatView.View(),
			separatorStyle.Render(strings.Repeat("─", max(m.chatWidth-4, 1))),
			m.textarea.View(),
		),
	)
	metaPanel := metaPanelStyle.Width(m.metaWidth).Height(m.height - 2).Render(m.metaView.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatView.Width - 6
	if usable > 60 {
		usable = 60
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
