package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ejpembleton/fateweaver/internal/config"
	"github.com/ejpembleton/fateweaver/internal/game"
	"github.com/ejpembleton/fateweaver/internal/services"
	"github.com/ejpembleton/fateweaver/internal/storage"
	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/player"
	"github.com/ejpembleton/fateweaver/pkg/textfilter"
	"github.com/ejpembleton/fateweaver/pkg/world"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"

	statBarWidth = 12
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	cfg       *config.Config
	log       *slog.Logger
	generator services.Generator
	store     storage.Storage
	character *player.Character

	ctrl    *game.Controller
	presets []adventure.Preset

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	status       string
	loading      bool

	// Start screen state
	showStartModal bool
	entries        []startEntry
	selectedEntry  int
	loadingEntries bool

	// Confirmation modal state
	showQuitModal    bool
	showRestartModal bool

	// Progress bar state
	progressTick int
	ticking      bool
}

// startEntry is one row on the start screen: a saved adventure to
// resume, or a preset to begin fresh.
type startEntry struct {
	label   string
	preset  *adventure.Preset
	summary *storage.Summary
}

type entriesLoadedMsg struct {
	entries []startEntry
	presets []adventure.Preset
	err     error
}

type adventureStartedMsg struct {
	ctrl *game.Controller
	err  error
}

type turnDoneMsg struct {
	err error
}

type restartDoneMsg struct {
	err error
}

type savedMsg struct {
	err error
}

type controllerEventMsg struct {
	event game.Event
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")) // white

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // red
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	barFilledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	barEnemyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	barEmptyStyle = lipgloss.NewStyle().
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
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var titleCaser = cases.Title(language.English)

func NewConsoleUI(cfg *config.Config, log *slog.Logger, generator services.Generator, store storage.Storage, character *player.Character) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		cfg:            cfg,
		log:            log,
		generator:      generator,
		store:          store,
		character:      character,
		textarea:       ta,
		chatViewport:   chatVp,
		metaViewport:   metaVp,
		ready:          false,
		showStartModal: true,
		loadingEntries: true,
		selectedEntry:  0,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showStartModal {
		return m.loadEntries()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Async completions land regardless of which modal is up, so route
	// them before the modal handlers.
	switch msg := msg.(type) {
	case turnDoneMsg:
		return m.handleTurnDone(msg.err)

	case restartDoneMsg:
		return m.handleTurnDone(msg.err)

	case savedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, game.ErrNoStorage) {
				m.status = "Saving is off: no storage configured."
			} else {
				m.err = msg.err
			}
		} else {
			m.status = "Adventure saved."
		}
		if m.ready {
			m.writeChatContent()
			m.writeMetadata()
		}
		return m, nil

	case controllerEventMsg:
		if m.ready {
			m.writeChatContent()
			m.writeMetadata()
		}
		cmds := []tea.Cmd{m.listenEvents()}
		if !m.ticking && m.hasPendingImage() {
			m.ticking = true
			cmds = append(cmds, progressTick())
		}
		return m, tea.Batch(cmds...)

	case progressTickMsg:
		if m.loading || m.hasPendingImage() {
			m.progressTick++
			if m.ready {
				m.writeChatContent()
			}
			return m, progressTick()
		}
		m.ticking = false
		return m, nil
	}

	// Handle start screen first
	if m.showStartModal {
		return m.updateStartModal(msg)
	}

	// Then confirmation modals
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showRestartModal {
		return m.updateRestartModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		// Pass mouse events to every component; each ignores events
		// outside its bounds.
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)

		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

		if !m.ready {
			m.ready = true
		}

		// Reformat all content for the new width
		m.writeChatContent()
		m.writeMetadata()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.err = nil
			m.status = ""
			m.loading = true
			m.progressTick = 0

			cmds := []tea.Cmd{m.playTurn(input)}
			if !m.ticking {
				m.ticking = true
				cmds = append(cmds, progressTick())
			}
			return m, tea.Batch(cmds...)
		}
	}

	// Update components for non-mouse events
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// handleTurnDone finishes a Play or Restart round trip. Failures land
// in the status line; generator outages additionally leave a system
// segment in the log, written by the controller.
func (m ConsoleUI) handleTurnDone(err error) (tea.Model, tea.Cmd) {
	m.loading = false
	if err != nil && !errors.Is(err, game.ErrBusy) {
		m.err = err
	}
	if m.ready {
		m.writeChatContent()
		m.writeMetadata()
		m.chatViewport.GotoBottom()
	}
	return m, nil
}

// resize recomputes panel dimensions from the window size. The chat
// panel takes three quarters of the width; the meta panel the rest.
func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 8
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

// writeChatContent rebuilds the narrative viewport from the world
// state for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	if m.ctrl == nil {
		return
	}
	chatWidth := m.chatViewport.Width - 6 // Account for panel padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("FATEWEAVER") + "\n\n")
	content.WriteString("Type your actions below to play.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 1))) + "\n\n")

	ws := m.ctrl.State()
	for i := range ws.Log {
		seg := ws.Log[i]
		switch seg.Kind {
		case world.SegmentAction:
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(seg.Text, chatWidth-6) + "\n\n")
		case world.SegmentSystem:
			content.WriteString(systemStyle.Render(wordwrap.String(seg.Text, chatWidth)) + "\n\n")
		default:
			content.WriteString(formatNarratorResponse(seg.Text, chatWidth) + "\n\n")
		}
		if line := imageLine(seg, m.progressTick); line != "" {
			content.WriteString(line + "\n\n")
		}
	}

	// If a turn is in flight, add the progress bar
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

// imageLine renders the illustration row under a segment: a spinner
// while the fetch is in flight, the file path once it lands, nothing
// for segments without one.
func imageLine(seg world.Segment, tick int) string {
	switch seg.ImageState {
	case world.ImagePending:
		frame := spinnerFrames[tick%len(spinnerFrames)]
		return loadingStyle.Render(frame + " illustrating")
	case world.ImageResolved:
		if seg.ImageRef == "" {
			return ""
		}
		return promptStyle.Render("illustration: " + seg.ImageRef)
	}
	return ""
}

// writeMetadata rebuilds the side panel: stats, combat, inventory,
// save status, and the command list.
func (m *ConsoleUI) writeMetadata() {
	if m.ctrl == nil {
		return
	}
	ws := m.ctrl.State()

	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURE") + "\n\n")

	if title := m.ctrl.PlayerTitle(); title != "" {
		content.WriteString(title + "\n")
	}
	content.WriteString(m.ctrl.Preset().Name + "\n")
	content.WriteString(fmt.Sprintf("Turn %d\n\n", ws.Turn))

	content.WriteString(renderStat("Health", ws.Stats.Health, barFilledStyle))
	if ws.Stats.Mana.Max > 0 {
		content.WriteString(renderStat("Mana", ws.Stats.Mana, barFilledStyle))
	}
	content.WriteString(renderStat("Stamina", ws.Stats.Stamina, barFilledStyle))
	content.WriteString("\n")

	if ws.Combat != nil {
		content.WriteString(errorStyle.Render("COMBAT") + "\n")
		content.WriteString(renderStat(ws.Combat.Name, ws.Combat.Health, barEnemyStyle))
		content.WriteString("\n")
	}

	content.WriteString("Inventory:\n")
	if len(ws.Inventory) == 0 {
		content.WriteString("Empty\n")
	} else {
		for _, item := range ws.Inventory {
			content.WriteString("• " + titleCaser.String(item) + "\n")
		}
	}
	content.WriteString("\n")

	content.WriteString("Saves:\n")
	st := m.ctrl.SaveStatus()
	switch {
	case !st.Enabled:
		content.WriteString("Off\n")
	case st.Err != nil:
		content.WriteString(errorStyle.Render("Failing") + "\n")
	case st.SavedAt.IsZero():
		content.WriteString("Not yet saved\n")
	default:
		content.WriteString("Saved " + st.SavedAt.Format("15:04:05") + "\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Act\n")
	content.WriteString("• /save: Save now\n")
	content.WriteString("• /copy: Copy reply\n")
	content.WriteString("• /restart: Start over\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• Ctrl+C: Quit\n")

	m.metaViewport.SetContent(content.String())
}

// renderStat renders a gauge name, its numbers, and a bar line.
func renderStat(name string, s world.Stat, filled lipgloss.Style) string {
	return fmt.Sprintf("%s %d/%d\n%s\n", name, s.Current, s.Max, renderBar(s, filled))
}

func renderBar(s world.Stat, filled lipgloss.Style) string {
	if s.Max <= 0 {
		return barEmptyStyle.Render(strings.Repeat("░", statBarWidth))
	}
	n := s.Current * statBarWidth / s.Max
	if s.Current > 0 && n == 0 {
		n = 1 // a sliver of life still shows
	}
	return filled.Render(strings.Repeat("█", n)) + barEmptyStyle.Render(strings.Repeat("░", statBarWidth-n))
}

func formatNarratorResponse(response string, width int) string {
	// Check if the response already has a speaker prefix
	hasPrefix := false
	if idx := strings.Index(response, ":"); idx > 0 && idx <= 20 {
		speaker := response[:idx]
		if len(strings.Fields(speaker)) <= 2 {
			hasPrefix = true
		}
	}

	// If no prefix, we'll add "Narrator: " so reduce available width
	wrapWidth := width
	if !hasPrefix {
		wrapWidth = width - len(AgentName+": ")
	}

	// Wrap the text to the available width
	wrappedResponse := wordwrap.String(response, wrapWidth)
	lines := strings.Split(wrappedResponse, "\n")
	var formattedLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			formattedLines = append(formattedLines, "")
			continue
		}

		if idx := strings.Index(trimmed, ":"); idx > 0 && idx <= 20 {
			speaker := trimmed[:idx]
			rest := trimmed[idx+1:]
			if len(strings.Fields(speaker)) <= 2 {
				formattedLines = append(formattedLines, speakerStyle.Render(speaker+":")+narratorStyle.Render(rest))
				continue
			}
		}

		formattedLines = append(formattedLines, narratorStyle.Render(line))
	}

	result := strings.Join(formattedLines, "\n")
	if !hasPrefix {
		result = speakerStyle.Render(AgentName+": ") + result
	}

	return result
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.textarea.Reset()
	m.err = nil
	m.status = ""

	switch cmd {
	case "/help":
		helpText := `
Commands:
• /save - Save the adventure now
• /copy - Copy the last narrator reply
• /restart - Start the adventure over
• /quit - Quit
• Ctrl+C - Quit

How to play:
• Type your actions and press Enter
• The narrator responds and the world updates
• Stats and inventory live in the side panel
`
		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + titleStyle.Render("Help:") + helpText + "\n")
		m.chatViewport.GotoBottom()

	case "/save":
		return m, m.saveNow()

	case "/copy":
		m.copyLastReply()

	case "/restart":
		m.showRestartModal = true

	case "/quit":
		m.showQuitModal = true

	default:
		m.status = fmt.Sprintf("Unknown command %s. Try /help.", cmd)
	}

	return m, nil
}

// copyLastReply puts the most recent narrator segment on the system
// clipboard.
func (m *ConsoleUI) copyLastReply() {
	ws := m.ctrl.State()
	var last string
	for i := len(ws.Log) - 1; i >= 0; i-- {
		if ws.Log[i].Kind == world.SegmentNarrative {
			last = ws.Log[i].Text
			break
		}
	}
	if last == "" {
		m.status = "Nothing to copy yet."
		return
	}
	if err := clipboard.WriteAll(last); err != nil {
		m.err = fmt.Errorf("failed to copy: %w", err)
		return
	}
	m.status = "Copied the last narrator reply."
}

func (m ConsoleUI) playTurn(action string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.Play(context.Background(), action)}
	}
}

func (m ConsoleUI) saveNow() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return savedMsg{err: m.ctrl.Save(ctx)}
	}
}

func (m ConsoleUI) doRestart() tea.Cmd {
	return func() tea.Msg {
		return restartDoneMsg{err: m.ctrl.Restart(context.Background())}
	}
}

// listenEvents waits for the next controller event. The handler
// re-arms it, so one receive is always outstanding.
func (m ConsoleUI) listenEvents() tea.Cmd {
	ch := m.ctrl.Events()
	return func() tea.Msg {
		return controllerEventMsg{event: <-ch}
	}
}

func (m ConsoleUI) hasPendingImage() bool {
	if m.ctrl == nil {
		return false
	}
	ws := m.ctrl.State()
	for i := range ws.Log {
		if ws.Log[i].ImageState == world.ImagePending {
			return true
		}
	}
	return false
}

// loadEntries builds the start screen list: saved adventures first,
// then the installed presets.
func (m ConsoleUI) loadEntries() tea.Cmd {
	return func() tea.Msg {
		var entries []startEntry

		if m.store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			summaries, err := m.store.ListSnapshots(ctx)
			if err != nil {
				return entriesLoadedMsg{err: fmt.Errorf("failed to list saved adventures: %w", err)}
			}
			for i := range summaries {
				s := summaries[i]
				label := fmt.Sprintf("Resume %s (turn %d, saved %s)", s.Preset, s.Turn, s.SavedAt.Format("Jan 2 15:04"))
				if s.PlayerName != "" {
					label = fmt.Sprintf("Resume %s as %s (turn %d, saved %s)", s.Preset, s.PlayerName, s.Turn, s.SavedAt.Format("Jan 2 15:04"))
				}
				entries = append(entries, startEntry{label: label, summary: &s})
			}
		}

		presets, err := adventure.LoadDir(filepath.Join(m.cfg.DataDir, "presets"))
		if err != nil {
			return entriesLoadedMsg{err: fmt.Errorf("failed to load presets: %w", err)}
		}
		for i := range presets {
			p := presets[i]
			entries = append(entries, startEntry{label: "New adventure: " + p.Name, preset: &p})
		}

		return entriesLoadedMsg{entries: entries, presets: presets}
	}
}

// startAdventure builds a controller for the chosen entry. For resume
// entries the snapshot is loaded first; a corrupt one is cleared so
// the list comes back clean.
func (m ConsoleUI) startAdventure(entry startEntry) tea.Cmd {
	return func() tea.Msg {
		opts := game.Options{
			Character: m.character,
			Generator: m.generator,
			Store:     m.store,
			ImageDir:  m.cfg.ImageDir,
			Rating:    m.cfg.Rating,
			Logger:    m.log,
		}

		if entry.summary != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			snap, err := m.store.LoadSnapshot(ctx, entry.summary.ID)
			if err != nil {
				if errors.Is(err, storage.ErrSnapshotCorrupt) {
					_ = m.store.DeleteSnapshot(ctx, entry.summary.ID)
					return adventureStartedMsg{err: fmt.Errorf("saved adventure was corrupt and has been cleared")}
				}
				return adventureStartedMsg{err: fmt.Errorf("failed to load saved adventure: %w", err)}
			}

			preset, err := m.findPreset(snap.Preset)
			if err != nil {
				return adventureStartedMsg{err: err}
			}
			opts.Preset = preset
			opts.Illustrator = m.buildIllustrator(preset)

			ctrl, err := game.Resume(snap, opts)
			if err != nil {
				return adventureStartedMsg{err: err}
			}
			return adventureStartedMsg{ctrl: ctrl}
		}

		opts.Preset = entry.preset
		opts.Illustrator = m.buildIllustrator(entry.preset)

		ctrl, err := game.New(opts)
		if err != nil {
			return adventureStartedMsg{err: err}
		}

		// The opening turn can fail without sinking the adventure; the
		// controller leaves a notice in the log and the player retries
		// by acting.
		err = ctrl.Begin(context.Background())
		return adventureStartedMsg{ctrl: ctrl, err: err}
	}
}

func (m ConsoleUI) findPreset(name string) (*adventure.Preset, error) {
	for i := range m.presets {
		if m.presets[i].Name == name {
			return &m.presets[i], nil
		}
	}
	return nil, fmt.Errorf("preset %q is not installed", name)
}

// buildIllustrator returns the image backend for a preset, nil when
// illustration is off. Safe mode follows the effective rating.
func (m ConsoleUI) buildIllustrator(p *adventure.Preset) services.Illustrator {
	if m.cfg.ImageProvider != config.ImageProviderVenice {
		return nil
	}
	rating := m.cfg.Rating
	if rating == "" {
		rating = p.Rating
	}
	return services.NewVeniceImageService(m.cfg.ImageAPIKey, m.cfg.ImageModel, textfilter.Active(rating))
}

func (m ConsoleUI) updateStartModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case entriesLoadedMsg:
		m.loadingEntries = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.entries = msg.entries
			m.presets = msg.presets
			if m.selectedEntry >= len(m.entries) {
				m.selectedEntry = 0
			}
		}

	case adventureStartedMsg:
		m.loading = false
		if msg.ctrl == nil {
			m.err = msg.err
			// A cleared snapshot changes the list, so rebuild it
			m.loadingEntries = true
			return m, m.loadEntries()
		}

		m.ctrl = msg.ctrl
		m.err = msg.err
		m.showStartModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
			m.ready = true
		}
		m.writeChatContent()
		m.writeMetadata()
		m.textarea.Focus()

		cmds := []tea.Cmd{textarea.Blink, m.listenEvents()}
		if !m.ticking && m.hasPendingImage() {
			m.ticking = true
			cmds = append(cmds, progressTick())
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.loadingEntries || m.loading {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		if m.err != nil && len(m.entries) == 0 {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selectedEntry > 0 {
				m.selectedEntry--
			}
		case tea.KeyDown:
			if m.selectedEntry < len(m.entries)-1 {
				m.selectedEntry++
			}
		case tea.KeyEnter:
			if len(m.entries) > 0 {
				m.err = nil
				m.loading = true
				return m, m.startAdventure(m.entries[m.selectedEntry])
			}
		default:
			switch msg.String() {
			case "k":
				if m.selectedEntry > 0 {
					m.selectedEntry--
				}
			case "j":
				if m.selectedEntry < len(m.entries)-1 {
					m.selectedEntry++
				}
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N", "esc":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateRestartModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			m.showRestartModal = false
			m.err = nil
			m.status = ""
			m.loading = true
			m.progressTick = 0
			m.textarea.Focus()

			cmds := []tea.Cmd{m.doRestart(), textarea.Blink}
			if !m.ticking {
				m.ticking = true
				cmds = append(cmds, progressTick())
			}
			return m, tea.Batch(cmds...)
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showRestartModal = false
			m.textarea.Focus()
			return m, textarea.Blink
		default:
			switch msg.String() {
			case "y", "Y":
				return m.updateRestartModal(tea.KeyMsg{Type: tea.KeyEnter})
			case "n", "N":
				m.showRestartModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderStartModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.loadingEntries {
		content.WriteString(modalTitleStyle.Render("Loading Adventures..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Reading presets and saved adventures..."))
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Preparing the Adventure..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("The narrator is setting the scene..."))
	} else if m.err != nil && len(m.entries) == 0 {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else {
		content.WriteString(modalTitleStyle.Render("FATEWEAVER"))
		content.WriteString("\n\n")

		if m.err != nil {
			content.WriteString(errorStyle.Render(fmt.Sprintf("%v", m.err)))
			content.WriteString("\n\n")
		}

		for i, entry := range m.entries {
			if i == m.selectedEntry {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", entry.label)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", entry.label)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ or j/k to navigate, Enter to select, Esc to quit"))
	}

	modal := modalStyle.Width(60).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Fateweaver?"))
	content.WriteString("\n\n")
	if st := m.saveNote(); st != "" {
		content.WriteString(st)
		content.WriteString("\n\n")
	}
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep playing, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

// saveNote says what quitting does to progress, so nobody has to guess.
func (m ConsoleUI) saveNote() string {
	if m.ctrl == nil {
		return ""
	}
	st := m.ctrl.SaveStatus()
	switch {
	case !st.Enabled:
		return "Saving is off, so this adventure will be lost."
	case st.Err != nil:
		return "The last save failed, so recent turns may be lost."
	default:
		return "Your adventure is saved and can be resumed later."
	}
}

func (m ConsoleUI) renderRestartModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Restart Adventure?"))
	content.WriteString("\n\n")
	content.WriteString("This clears the saved adventure and starts over from the beginning.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to restart, N to keep playing"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showStartModal {
		return m.renderStartModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showRestartModal {
		return m.renderRestartModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	statusLine := ""
	if m.err != nil {
		statusLine = errorStyle.Render("Error: " + m.err.Error())
	} else if m.status != "" {
		statusLine = promptStyle.Render(m.status)
	}

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"", // spacing
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
			statusLine,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar while the
// narrator is thinking
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
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
			bar.WriteString("▓") // Blinking effect at the progress point
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

// shutdown runs after the program exits: one final save, then the
// controller releases its saver. Called from main, outside the event
// loop.
func (m ConsoleUI) shutdown() {
	if m.ctrl == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.ctrl.Save(ctx); err != nil &&
		!errors.Is(err, game.ErrNoStorage) &&
		!errors.Is(err, storage.ErrQuotaExceeded) {
		m.log.Warn("Final save failed", "error", err)
	}
	if err := m.ctrl.Close(); err != nil {
		m.log.Warn("Error closing controller", "error", err)
	}
}
