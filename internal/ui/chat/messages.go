// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/patentchat/internal/conversation"
)

// StateChangedMsg carries a new view-model snapshot.
type StateChangedMsg struct {
	State conversation.State
}

// subscriptionClosedMsg is sent once the view-model closes the subscription.
type subscriptionClosedMsg struct{}

// sendDoneMsg reports a finished send with the text added to the transcript.
type sendDoneMsg struct {
	Reply string
}

// refreshDoneMsg reports a finished session list refresh.
type refreshDoneMsg struct {
	Err error
}

// deleteDoneMsg reports a finished delete.
type deleteDoneMsg struct {
	Title string
	OK    bool
}

// waitForState blocks on the subscription and delivers the next snapshot.
func waitForState(ch <-chan conversation.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return subscriptionClosedMsg{}
		}
		return StateChangedMsg{State: s}
	}
}
