// Package tui provides a terminal user interface for midiscore
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/midiscore/pkg/config"
	"github.com/james-see/midiscore/pkg/converter"
	"github.com/james-see/midiscore/pkg/logger"
	"github.com/james-see/midiscore/pkg/pianoroll"
	"github.com/james-see/midiscore/pkg/score"
	"github.com/james-see/midiscore/pkg/synth"
)

// Piano-roll color scheme
var (
	keyBlue    = lipgloss.Color("#4FC3F7")
	ivory      = lipgloss.Color("#FFF8E7")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(keyBlue).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(keyBlue).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(ivory).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(keyBlue).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(keyBlue).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateWorking
	StateResult
)

// Action identifies what a menu item does with the picked file
type Action int

const (
	ActionInspect Action = iota
	ActionResample
	ActionExportJSON
	ActionPianoroll
	ActionRender
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
}

var menuItems = []MenuItem{
	{Title: "Inspect", Description: "Show tracks, event counts and length of a MIDI file", Action: ActionInspect},
	{Title: "Resample", Description: "Re-encode a MIDI file at the configured ticks per quarter", Action: ActionResample},
	{Title: "MIDI → JSON", Description: "Export the score as JSON with times in seconds", Action: ActionExportJSON},
	{Title: "Piano roll", Description: "Render the notes to a PNG piano roll", Action: ActionPianoroll},
	{Title: "Render WAV", Description: "Synthesize audio with the configured SoundFont", Action: ActionRender},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

// Model represents the TUI model
type Model struct {
	cfg          *config.Config
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	item         MenuItem
	result       Result
	err          error
	width        int
	height       int
}

// Result is the outcome of an action
type Result struct {
	OutputFile string
	Lines      []string
}

// actionDoneMsg signals action completion
type actionDoneMsg struct {
	result Result
	err    error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(cfg *config.Config) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi", ".smf"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(keyBlue)

	return Model{
		cfg:        cfg,
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateWorking
			return m, tea.Batch(m.spinner.Tick, m.performAction())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		m.state = StateResult
		m.result = msg.result
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		m.item = menuItems[m.menuIndex]
		if m.item.Action == ActionExit {
			return m, tea.Quit
		}
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.result = Result{}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performAction() tea.Cmd {
	action, path, cfg := m.item.Action, m.selectedFile, m.cfg
	return func() tea.Msg {
		result, err := RunAction(action, path, cfg)
		if err != nil {
			logger.GetLogger().Error("action failed", "file", path, "error", err)
		}
		return actionDoneMsg{result: result, err: err}
	}
}

// RunAction applies action to the MIDI file at path. Output files are
// written next to the input.
func RunAction(action Action, path string, cfg *config.Config) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	s, err := converter.ParseMIDIWithOptions(data, cfg.ParseOptions())
	if err != nil {
		return Result{}, err
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))

	switch action {
	case ActionInspect:
		return Result{Lines: Describe(s)}, nil
	case ActionResample:
		out, err := converter.Resample(s, cfg.TicksPerQuarter, 0)
		if err != nil {
			return Result{}, err
		}
		midi, err := converter.DumpMIDI(out)
		if err != nil {
			return Result{}, err
		}
		file := fmt.Sprintf("%s.%d.mid", base, cfg.TicksPerQuarter)
		return Result{OutputFile: file}, os.WriteFile(file, midi, 0644)
	case ActionExportJSON:
		doc, err := converter.EncodeJSONAs(s, score.UnitSecond, 0)
		if err != nil {
			return Result{}, err
		}
		file := base + ".json"
		return Result{OutputFile: file}, os.WriteFile(file, doc, 0644)
	case ActionPianoroll:
		roll, err := pianoroll.New(s, pianoroll.Options{Resolution: score.Tick(cfg.Pianoroll.Resolution), Velocity: true})
		if err != nil {
			return Result{}, err
		}
		file := base + ".png"
		return Result{OutputFile: file}, roll.SavePNG(file, cfg.Pianoroll.Width, cfg.Pianoroll.Height)
	case ActionRender:
		return renderWAV(s, base+".wav", cfg)
	}
	return Result{}, fmt.Errorf("unsupported action %d", action)
}

func renderWAV(s *score.Score[score.Tick], file string, cfg *config.Config) (Result, error) {
	if cfg.SoundFont == "" {
		return Result{}, fmt.Errorf("no soundFont set in config")
	}
	sf, err := os.Open(cfg.SoundFont)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = sf.Close() }()

	audio, err := synth.Render(s, sf, synth.Options{SampleRate: int32(cfg.SampleRate)})
	if err != nil {
		return Result{}, err
	}
	out, err := os.Create(file)
	if err != nil {
		return Result{}, err
	}
	if err := audio.WriteWAV(out); err != nil {
		_ = out.Close()
		return Result{}, err
	}
	return Result{OutputFile: file, Lines: []string{fmt.Sprintf("Length: %s", audio.Duration())}}, out.Close()
}

// Describe summarises a score for display
func Describe(s *score.Score[score.Tick]) []string {
	sum := s.Summary()
	lines := []string{
		fmt.Sprintf("Resolution: %d ticks per quarter", s.TicksPerQuarter),
		fmt.Sprintf("Tracks: %d  Notes: %d  Controls: %d  Pedals: %d", sum.Tracks, sum.Notes, sum.Controls, sum.Pedals),
		fmt.Sprintf("Tempos: %d  Time signatures: %d  Key signatures: %d", sum.Tempos, sum.TimeSignatures, sum.KeySignatures),
	}
	if secs, err := converter.Convert[score.Second](s, 0); err == nil {
		lines = append(lines, fmt.Sprintf("Length: %.2fs (%d ticks)", secs.EndTime(), s.EndTime()))
	}
	if len(s.KeySignatures) > 0 {
		lines = append(lines, "Key: "+s.KeySignatures[0].String())
	}
	for i, t := range s.Tracks {
		kind := fmt.Sprintf("program %d", t.Program)
		if t.IsDrum {
			kind = "drums"
		}
		name := t.Name
		if name == "" {
			name = "(unnamed)"
		}
		lines = append(lines, fmt.Sprintf("  %2d. %s, %s, %d notes", i+1, name, kind, len(t.Notes)))
	}
	return lines
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateWorking:
		s.WriteString(m.viewWorking())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(ivory).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewWorking() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Reading %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render("  " + m.item.Title))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s failed: %s", m.item.Title, m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" DONE "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ " + m.item.Title + " complete"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		if m.result.OutputFile != "" {
			s.WriteString(fmt.Sprintf("Output: %s\n", filepath.Base(m.result.OutputFile)))
		}
		for _, line := range m.result.Lines {
			s.WriteString(line)
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
             _     _
   _ __ ___ (_) __| (_)___  ___ ___  _ __ ___
  | '_ ` + "`" + ` _ \| |/ _` + "`" + ` | / __|/ __/ _ \| '__/ _ \
  | | | | | | | (_| | \__ \ (_| (_) | | |  __/
  |_| |_| |_|_|\__,_|_|___/\___\___/|_|  \___|
`
	return lipgloss.NewStyle().Foreground(keyBlue).Render(logo)
}

// Run starts the TUI application
func Run(cfg *config.Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
