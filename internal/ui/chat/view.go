// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/ui/styles"
	"github.com/jeranaias/patentchat/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// renderScreen renders header, body and status bar. The body is the sidebar
// next to the viewport, activity line and input.
func (m Model) renderScreen() string {
	if !m.ready {
		return "Loading..."
	}

	mainCol := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.renderActivity(),
		m.renderInput(),
	)

	body := mainCol
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), mainCol)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

// renderHeader shows the brand and the open conversation title.
func (m Model) renderHeader() string {
	title := "새 대화"
	if !m.state.IsDraft() {
		if s, ok := m.state.Sessions.Find(m.state.CurrentSessionID); ok && s.Title != "" {
			title = s.Title
		} else {
			title = m.state.CurrentSessionID
		}
	}
	brand := m.theme.HeaderTitle.Render("patentchat")
	meta := m.theme.HeaderMeta.Render(util.TruncateWidth(util.SingleLine(title), m.width/2))
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(brand + "  " + meta)
}

// =============================================================================
// SIDEBAR
// =============================================================================

// renderSidebar lists sessions, scrolled so the cursor stays visible.
func (m Model) renderSidebar() string {
	outer := m.sidebarOuterWidth()
	inner := outer - 4 // border and padding
	height := m.bodyHeight() - 2

	lines := []string{m.theme.SidebarTitle.Render(util.TruncateWidth("대화 목록", inner))}
	if m.state.IsDraft() {
		lines = append(lines, m.theme.SessionItemCurrent.Render(util.TruncateWidth("● 새 대화", inner)))
	}

	items := m.state.Sessions.Items()
	if len(items) == 0 {
		lines = append(lines, m.theme.SessionMeta.Render(util.TruncateWidth("대화 없음", inner)))
	}

	visible := height - len(lines)
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	for i := start; i < len(items) && i < start+visible; i++ {
		lines = append(lines, m.renderSessionRow(items[i], i, inner))
	}

	style := m.theme.Sidebar
	if m.focus == focusSidebar {
		style = m.theme.SidebarFocused
	}
	return style.Width(outer - 2).Height(height).MaxHeight(height + 2).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderSessionRow(s model.SessionSummary, i, width int) string {
	marker := "  "
	if s.SessionID == m.state.CurrentSessionID {
		marker = "▸ "
	}
	title := s.Title
	if title == "" {
		title = s.SessionID
	}
	row := util.PadRight(marker+util.TruncateWidth(util.SingleLine(title), width-2), width)

	switch {
	case m.focus == focusSidebar && i == m.cursor:
		return m.theme.SessionItemSelected.Render(row)
	case s.SessionID == m.state.CurrentSessionID:
		return m.theme.SessionItemCurrent.Render(row)
	default:
		return m.theme.SessionItem.Render(row)
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the open conversation, or the welcome cards for
// an empty draft.
func (m Model) renderTranscript(width int) string {
	msgs := m.state.Messages
	if len(msgs) == 0 {
		if m.state.IsDraft() {
			return m.renderWelcome(width)
		}
		if m.state.Loading {
			return m.theme.Timestamp.Render("대화를 불러오는 중...")
		}
		return m.theme.Timestamp.Render("메시지가 없습니다.")
	}

	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, m.renderMessage(msg, width))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message, width int) string {
	header := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	if msg.IsUser() {
		header = m.theme.UserLabel.Render(msg.Role.DisplayName())
	}
	if t := msg.Time(); !t.IsZero() {
		header += " " + m.theme.Timestamp.Render(t.Local().Format("15:04"))
	}

	bodyWidth := width - 3
	var body string
	switch {
	case msg.Error:
		body = m.theme.ErrorBubble.Render(wrapPlain(msg.Content, bodyWidth))
	case msg.IsUser():
		body = m.theme.UserBubble.Render(wrapPlain(msg.Content, bodyWidth))
	case m.markdown:
		body = m.theme.AssistantBody.Render(highlightPatents(m.theme, m.md.render(msg.Content, bodyWidth)))
	default:
		body = m.theme.AssistantBody.Render(highlightPatents(m.theme, wrapPlain(msg.Content, bodyWidth)))
	}
	return header + "\n" + body
}

// renderWelcome shows the starter cards for a new conversation.
func (m Model) renderWelcome(width int) string {
	var b strings.Builder
	b.WriteString(m.theme.WelcomeTitle.Render(welcomeTitle))
	b.WriteString("\n")
	b.WriteString(m.theme.WelcomeInfo.Render(wrapPlain(welcomeSubtitle, width-2)))
	b.WriteString("\n\n")

	cardWidth := width - 4
	for _, c := range WelcomeCards {
		card := m.theme.UserLabel.Render(c.Title) + "\n" + m.theme.WelcomeInfo.Render(c.Description)
		b.WriteString(m.theme.WelcomeTemplate.Width(cardWidth).Render(card))
		b.WriteString("\n")
	}
	b.WriteString(m.theme.ShortcutDesc.Render("ctrl+t: 템플릿 입력"))
	return b.String()
}

// =============================================================================
// ACTIVITY / INPUT / STATUS
// =============================================================================

// renderActivity shows the spinner, a load banner, or the last status
// message.
func (m Model) renderActivity() string {
	width := m.mainWidth()
	var line string

	switch {
	case m.state.Sending() > 0:
		line = m.spinner.View() + " " + m.theme.ThinkingText.Render(styles.ThinkingLabel(m.now().Sub(m.sendStarted)))
	case m.state.Loading:
		line = m.spinner.View() + " " + m.theme.ThinkingText.Render("대화를 불러오는 중")
	case m.state.Status == model.StatusTimeout:
		line = m.theme.TimeoutBanner.Render(styles.StatusIndicators.Warning + " 응답이 지연되고 있습니다")
	case m.state.Status == model.StatusError:
		line = m.theme.ErrorBanner.Render(styles.StatusIndicators.Error + " 대화를 불러오지 못했습니다")
	default:
		line = m.statusMsg
	}
	return lipgloss.NewStyle().Width(width).MaxWidth(width).MaxHeight(activityHeight).Render(line)
}

func (m Model) renderInput() string {
	w := m.mainWidth()
	return m.theme.InputContainer.Width(w).MaxHeight(inputHeight).Render(m.input.View())
}

// renderStatusBar shows the key hints for the focused area and the
// session count.
func (m Model) renderStatusBar() string {
	bindings := m.keys.InputHelp()
	if m.focus == focusSidebar {
		bindings = m.keys.SidebarHelp()
	}
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		hints = append(hints, renderBinding(m.theme, b))
	}
	left := strings.Join(hints, "  ")
	right := m.theme.ShortcutDesc.Render(fmt.Sprintf("%d sessions", m.state.Sessions.Len()))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).MaxWidth(m.width).MaxHeight(statusHeight).
		Render(left + strings.Repeat(" ", gap) + right)
}

func renderBinding(theme *styles.Theme, b key.Binding) string {
	h := b.Help()
	return theme.ShortcutKey.Render(h.Key) + " " + theme.ShortcutDesc.Render(h.Desc)
}
