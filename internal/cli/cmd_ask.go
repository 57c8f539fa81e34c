// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/patent"
	"github.com/jeranaias/patentchat/internal/ui/styles"
	"github.com/jeranaias/patentchat/internal/util"
)

// =============================================================================
// ASK
// =============================================================================

func newAskCmd(opts *globalOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question and print the answer",
		Long: "Ask one question and print the answer.\n" +
			"Without --session the question starts a new conversation.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, opts, sessionID, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue the conversation with this id")
	return cmd
}

func runAsk(cmd *cobra.Command, opts *globalOptions, sessionID, question string) error {
	if strings.TrimSpace(question) == "" {
		return fail(cmd, opts, "ask", errors.New("question is empty"))
	}

	a, err := newApp(opts)
	if err != nil {
		return fail(cmd, opts, "ask", err)
	}
	defer a.Close()

	ctx := cmd.Context()
	if sessionID != "" {
		a.vm.SelectSession(ctx, sessionID)
	}

	reply := a.vm.SendMessage(ctx, question)
	if strings.HasPrefix(reply, model.ErrorPrefix) {
		return fail(cmd, opts, "ask", errors.New(strings.TrimPrefix(reply, model.ErrorPrefix)))
	}

	state := a.vm.State()
	numbers := patent.Numbers(reply)
	if opts.json {
		if numbers == nil {
			numbers = []string{}
		}
		return NewJSONResponse("ask", AskResult{
			Answer:    reply,
			SessionID: state.CurrentSessionID,
			Patents:   numbers,
		}).Write(cmd.OutOrStdout())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, patent.Highlight(reply, func(t patent.Token) string {
		return styles.RenderPatent(t.Value)
	}))
	if len(numbers) > 0 {
		fmt.Fprintln(out, dimStyle.Render("출원번호: "+strings.Join(numbers, ", ")))
	}
	if state.CurrentSessionID != "" {
		fmt.Fprintln(out, dimStyle.Render("session: "+state.CurrentSessionID))
	}
	return nil
}

// =============================================================================
// SESSIONS
// =============================================================================

func newSessionsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd, opts)
		},
	}
}

func runSessions(cmd *cobra.Command, opts *globalOptions) error {
	a, err := newApp(opts)
	if err != nil {
		return fail(cmd, opts, "sessions", err)
	}
	defer a.Close()

	refreshErr := a.vm.RefreshSessions(cmd.Context())
	list := a.vm.State().Sessions
	if refreshErr != nil {
		if list.Len() == 0 {
			return fail(cmd, opts, "sessions", refreshErr)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderWarning("showing cached list: "+refreshErr.Error()))
	}

	if opts.json {
		return NewJSONResponse("sessions", list.Items()).Write(cmd.OutOrStdout())
	}
	printSessionTable(cmd.OutOrStdout(), list.Items())
	return nil
}

// printSessionTable prints one row per session. Widths are measured in
// terminal cells so Hangul titles line up.
func printSessionTable(out io.Writer, items []model.SessionSummary) {
	if len(items) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No conversations yet."))
		return
	}

	idWidth := len("ID")
	for _, s := range items {
		if w := util.StringWidth(s.SessionID); w > idWidth {
			idWidth = w
		}
	}

	header := util.PadRight("#", 4) + util.PadRight("ID", idWidth+2) + util.PadRight("UPDATED", 18) + "TITLE"
	fmt.Fprintln(out, titleStyle.Render(header))
	for i, s := range items {
		updated := "-"
		if t := s.UpdatedTime(); !t.IsZero() {
			updated = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintln(out,
			util.PadRight(strconv.Itoa(i+1), 4)+
				util.PadRight(s.SessionID, idWidth+2)+
				labelStyle.Render(util.PadRight(updated, 18))+
				util.TruncateWidth(util.SingleLine(s.Title), 48))
	}
}

// =============================================================================
// HISTORY
// =============================================================================

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print the transcript of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts, args[0])
		},
	}
}

func runHistory(cmd *cobra.Command, opts *globalOptions, sessionID string) error {
	a, err := newApp(opts)
	if err != nil {
		return fail(cmd, opts, "history", err)
	}
	defer a.Close()

	a.vm.SelectSession(cmd.Context(), sessionID)
	state := a.vm.State()
	if state.Status == model.StatusError {
		return fail(cmd, opts, "history", fmt.Errorf("failed to load conversation %s", sessionID))
	}

	if opts.json {
		return NewJSONResponse("history", state.Messages).Write(cmd.OutOrStdout())
	}

	out := cmd.OutOrStdout()
	if len(state.Messages) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No messages."))
		return nil
	}
	for _, m := range state.Messages {
		label := assistantStyle.Render(m.Role.DisplayName())
		if m.IsUser() {
			label = userStyle.Render(m.Role.DisplayName())
		}
		if t := m.Time(); !t.IsZero() {
			label += " " + dimStyle.Render(t.Local().Format("15:04"))
		}
		fmt.Fprintln(out, label)
		fmt.Fprintln(out, patent.Highlight(m.Content, func(t patent.Token) string {
			return styles.RenderPatent(t.Value)
		}))
		fmt.Fprintln(out)
	}
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation on the server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, args[0])
		},
	}
}

func runDelete(cmd *cobra.Command, opts *globalOptions, sessionID string) error {
	a, err := newApp(opts)
	if err != nil {
		return fail(cmd, opts, "delete", err)
	}
	defer a.Close()

	if !a.vm.DeleteSession(cmd.Context(), sessionID) {
		return fail(cmd, opts, "delete", fmt.Errorf("conversation %s was not deleted", sessionID))
	}
	if opts.json {
		return NewJSONResponse("delete", DeleteResult{SessionID: sessionID, Deleted: true}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Deleted "+sessionID))
	return nil
}
