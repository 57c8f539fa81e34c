// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/patentchat/internal/conversation"
	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// ViewModel is the part of conversation.ViewModel the screen drives.
type ViewModel interface {
	State() conversation.State
	Subscribe() (<-chan conversation.State, func())
	CreateNewChat()
	SelectSession(ctx context.Context, id string)
	DeleteSession(ctx context.Context, id string) bool
	RefreshSessions(ctx context.Context) error
}

// SendFunc submits a question and returns the text appended to the
// transcript: the answer, or an error line starting with model.ErrorPrefix.
type SendFunc func(ctx context.Context, text string) string

var _ ViewModel = (*conversation.ViewModel)(nil)

// =============================================================================
// CHAT MODEL
// =============================================================================

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// Fixed rows around the viewport: header, activity line, input (border and
// line) and status bar.
const (
	headerHeight   = 1
	activityHeight = 1
	inputHeight    = 2
	statusHeight   = 1

	minSidebarWidth = 12
)

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	theme *styles.Theme
	keys  KeyMap

	vm     ViewModel
	send   SendFunc
	ctx    context.Context
	cancel context.CancelFunc

	updates     <-chan conversation.State
	unsubscribe func()

	// Latest snapshot from the view-model
	state conversation.State

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	focus         focusArea
	cursor        int
	followTail    bool
	pendingDelete string
	statusMsg     string
	sendStarted   time.Time

	markdown     bool
	sidebarWidth int
	md           *markdownRenderer
	now          func() time.Time
}

// New creates the chat screen. It subscribes to vm immediately; the
// subscription is released when the screen quits.
func New(theme *styles.Theme, vm ViewModel, send SendFunc) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "질문을 입력하세요..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}
	sp.Style = theme.Spinner

	ctx, cancel := context.WithCancel(context.Background())
	updates, unsubscribe := vm.Subscribe()

	return Model{
		theme:        theme,
		keys:         DefaultKeyMap(),
		vm:           vm,
		send:         send,
		ctx:          ctx,
		cancel:       cancel,
		updates:      updates,
		unsubscribe:  unsubscribe,
		state:        vm.State(),
		viewport:     vp,
		input:        ti,
		spinner:      sp,
		followTail:   true,
		markdown:     true,
		sidebarWidth: 28,
		md:           newMarkdownRenderer(theme.MarkdownStyle()),
		now:          time.Now,
	}
}

// WithMarkdown toggles glamour rendering of answers.
func (m Model) WithMarkdown(enabled bool) Model {
	m.markdown = enabled
	return m
}

// WithSidebarWidth sets the sidebar width in columns.
func (m Model) WithSidebarWidth(width int) Model {
	if width >= minSidebarWidth {
		m.sidebarWidth = width
	}
	return m
}

// WithClock replaces the clock used for elapsed-time captions.
func (m Model) WithClock(now func() time.Time) Model {
	if now != nil {
		m.now = now
	}
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the subscription loop and loads the session list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForState(m.updates),
		m.refreshCmd(),
	)
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.followTail = m.viewport.AtBottom()
		return m, cmd

	case StateChangedMsg:
		m.applyState(msg.State)
		return m, waitForState(m.updates)

	case subscriptionClosedMsg:
		m.updates = nil
		return m, nil

	case sendDoneMsg:
		if strings.HasPrefix(msg.Reply, model.ErrorPrefix) {
			m.statusMsg = styles.RenderError("전송 실패")
		}
		return m, nil

	case refreshDoneMsg:
		if msg.Err != nil {
			m.statusMsg = styles.RenderWarning("대화 목록을 새로고침하지 못했습니다")
		}
		return m, nil

	case deleteDoneMsg:
		if msg.OK {
			m.statusMsg = styles.RenderSuccess(fmt.Sprintf("삭제됨: %s", msg.Title))
		} else {
			m.statusMsg = styles.RenderWarning("삭제하지 못했습니다")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the screen.
func (m Model) View() string {
	return m.renderScreen()
}

// =============================================================================
// STATE
// =============================================================================

// applyState installs a new snapshot and re-renders the transcript.
func (m *Model) applyState(s conversation.State) {
	if s.CurrentKey() != m.state.CurrentKey() {
		m.followTail = true
		m.pendingDelete = ""
	}
	if s.Sending() > 0 && m.state.Sending() == 0 {
		m.sendStarted = m.now()
	}
	m.state = s

	if n := s.Sessions.Len(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.refreshViewport()
}

// refreshViewport re-renders the transcript, keeping the scroll position
// unless the view follows the newest message.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	if m.followTail {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) sidebarVisible() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// sidebarOuterWidth is the sidebar width including its border, or 0.
func (m Model) sidebarOuterWidth() int {
	if !m.sidebarVisible() {
		return 0
	}
	w := m.sidebarWidth
	if limit := m.width / 3; w > limit {
		w = limit
	}
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	return w
}

func (m Model) mainWidth() int {
	w := m.width - m.sidebarOuterWidth()
	if w < 10 {
		w = 10
	}
	return w
}

func (m Model) bodyHeight() int {
	h := m.height - headerHeight - statusHeight
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)

	vpHeight := m.bodyHeight() - activityHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.mainWidth()
	m.viewport.Height = vpHeight

	inputWidth := m.mainWidth() - 2 - len(m.input.Prompt) - 1
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	if m.focus == focusSidebar && !m.sidebarVisible() {
		m.focusOnInput()
	}

	m.ready = true
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.NewChat):
		m.vm.CreateNewChat()
		m.focusOnInput()
		m.pendingDelete = ""
		m.statusMsg = ""
		return m, nil

	case key.Matches(msg, m.keys.ToggleFocus):
		if m.focus == focusInput && m.sidebarVisible() {
			m.focus = focusSidebar
			m.input.Blur()
			if i := m.state.Sessions.Index(m.state.CurrentSessionID); i >= 0 {
				m.cursor = i
			}
		} else {
			m.focusOnInput()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.statusMsg = ""
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		m.followTail = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		m.followTail = m.viewport.AtBottom()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.statusMsg = ""
		m.followTail = true
		return m, m.sendCmd(text)

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		m.followTail = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		m.followTail = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.Template):
		m.input.SetValue(nextTemplate(m.input.Value()))
		m.input.CursorEnd()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.state.Sessions.Len()

	switch {
	case key.Matches(msg, m.keys.Back):
		m.focusOnInput()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.pendingDelete = ""
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < n-1 {
			m.cursor++
		}
		m.pendingDelete = ""
		return m, nil

	case key.Matches(msg, m.keys.Send):
		if n == 0 {
			return m, nil
		}
		id := m.state.Sessions.At(m.cursor).SessionID
		m.focusOnInput()
		m.statusMsg = ""
		return m, m.selectCmd(id)

	case key.Matches(msg, m.keys.Delete):
		if n == 0 {
			return m, nil
		}
		target := m.state.Sessions.At(m.cursor)
		if m.pendingDelete != target.SessionID {
			m.pendingDelete = target.SessionID
			m.statusMsg = styles.RenderWarning("한 번 더 누르면 삭제합니다: " + target.Title)
			return m, nil
		}
		m.pendingDelete = ""
		m.statusMsg = ""
		return m, m.deleteCmd(target.SessionID, target.Title)
	}
	return m, nil
}

func (m *Model) focusOnInput() {
	m.focus = focusInput
	m.input.Focus()
}

// shutdown cancels in-flight calls and releases the subscription.
func (m *Model) shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) sendCmd(text string) tea.Cmd {
	send, ctx := m.send, m.ctx
	return func() tea.Msg {
		return sendDoneMsg{Reply: send(ctx, text)}
	}
}

func (m Model) selectCmd(id string) tea.Cmd {
	vm, ctx := m.vm, m.ctx
	return func() tea.Msg {
		vm.SelectSession(ctx, id)
		return nil
	}
}

func (m Model) deleteCmd(id, title string) tea.Cmd {
	vm, ctx := m.vm, m.ctx
	return func() tea.Msg {
		return deleteDoneMsg{Title: title, OK: vm.DeleteSession(ctx, id)}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	vm, ctx := m.vm, m.ctx
	return func() tea.Msg {
		return refreshDoneMsg{Err: vm.RefreshSessions(ctx)}
	}
}
