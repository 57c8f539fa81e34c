// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/patentchat/internal/config"
	"github.com/jeranaias/patentchat/internal/conversation"
	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/patent"
	"github.com/jeranaias/patentchat/internal/ui/styles"
	"github.com/jeranaias/patentchat/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle    = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(styles.TextMuted)
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// ViewModel is the part of conversation.ViewModel the loop drives.
type ViewModel interface {
	State() conversation.State
	CreateNewChat()
	SelectSession(ctx context.Context, id string)
	SendMessage(ctx context.Context, text string) string
	DeleteSession(ctx context.Context, id string) bool
	RefreshSessions(ctx context.Context) error
}

var _ ViewModel = (*conversation.ViewModel)(nil)

// LineReader reads one edited line per call. io.EOF or liner.ErrPromptAborted
// end the loop.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// errQuit ends Run without an error.
var errQuit = errors.New("quit")

// =============================================================================
// REPL
// =============================================================================

// REPL is an interactive question loop over a ViewModel.
type REPL struct {
	vm     ViewModel
	out    io.Writer
	reader LineReader
}

// New creates a loop writing to out. Without WithReader it reads from the
// terminal through liner.
func New(vm ViewModel, out io.Writer) *REPL {
	return &REPL{vm: vm, out: out}
}

// WithReader replaces the line reader.
func (r *REPL) WithReader(reader LineReader) *REPL {
	r.reader = reader
	return r
}

// Run reads lines until /quit, EOF or ctrl+c.
func (r *REPL) Run(ctx context.Context) error {
	if r.reader == nil {
		r.reader = NewLinerReader(historyPath())
	}
	defer r.reader.Close()

	if err := r.vm.RefreshSessions(ctx); err != nil {
		fmt.Fprintln(r.out, styles.RenderWarning("대화 목록을 불러오지 못했습니다: "+err.Error()))
	}
	fmt.Fprintln(r.out, dimStyle.Render("질문을 입력하세요. /help 로 명령어를 확인할 수 있습니다."))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.reader.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.reader.AppendHistory(line)

		if err := r.Execute(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		}
	}
}

// prompt shows the open conversation's title, or "new" on a draft.
func (r *REPL) prompt() string {
	s := r.vm.State()
	label := "new"
	if !s.IsDraft() {
		label = s.CurrentSessionID
		if sum, ok := s.Sessions.Find(s.CurrentSessionID); ok && sum.Title != "" {
			label = sum.Title
		}
	}
	return promptStyle.Render("patentchat["+util.TruncateWidth(util.SingleLine(label), 20)+"]> ")
}

// Execute handles one input line: a slash command or a question.
func (r *REPL) Execute(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		r.ask(ctx, line)
		return nil
	}

	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "/quit", "/exit", "/q":
		return errQuit
	case "/help", "/?":
		r.printHelp()
	case "/new":
		r.vm.CreateNewChat()
		fmt.Fprintln(r.out, styles.RenderInfo("새 대화를 시작합니다"))
	case "/sessions", "/ls":
		r.printSessions()
	case "/refresh":
		if err := r.vm.RefreshSessions(ctx); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		r.printSessions()
	case "/open":
		id, err := r.resolve(args)
		if err != nil {
			return err
		}
		r.vm.SelectSession(ctx, id)
		r.printTranscript()
	case "/delete", "/rm":
		id, err := r.resolve(args)
		if err != nil {
			return err
		}
		if !r.vm.DeleteSession(ctx, id) {
			return fmt.Errorf("could not delete %s", id)
		}
		fmt.Fprintln(r.out, styles.RenderSuccess("삭제됨: "+id))
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return nil
}

// resolve turns a 1-based list number or a session id into an id.
func (r *REPL) resolve(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("expected one argument: <n|id>")
	}
	list := r.vm.State().Sessions
	if n, err := strconv.Atoi(args[0]); err == nil {
		if n < 1 || n > list.Len() {
			return "", fmt.Errorf("no session #%d (have %d)", n, list.Len())
		}
		return list.At(n - 1).SessionID, nil
	}
	if list.Index(args[0]) < 0 {
		return "", fmt.Errorf("unknown session %q", args[0])
	}
	return args[0], nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *REPL) ask(ctx context.Context, text string) {
	reply := r.vm.SendMessage(ctx, text)
	if strings.HasPrefix(reply, model.ErrorPrefix) {
		fmt.Fprintln(r.out, styles.RenderError(strings.TrimPrefix(reply, model.ErrorPrefix)))
		return
	}
	fmt.Fprintln(r.out, assistantStyle.Render(model.RoleAssistant.DisplayName()))
	fmt.Fprintln(r.out, highlight(reply))
	if nums := patent.Numbers(reply); len(nums) > 0 {
		fmt.Fprintln(r.out, dimStyle.Render("출원번호: "+strings.Join(nums, ", ")))
	}
}

func (r *REPL) printSessions() {
	s := r.vm.State()
	if s.Sessions.Len() == 0 {
		fmt.Fprintln(r.out, dimStyle.Render("대화 없음"))
		return
	}
	for i, sum := range s.Sessions.Items() {
		marker := " "
		if sum.SessionID == s.CurrentSessionID {
			marker = "*"
		}
		when := ""
		if t := sum.UpdatedTime(); !t.IsZero() {
			when = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(r.out, "%s %2d. %s %s %s\n", marker, i+1,
			util.PadRight(util.TruncateWidth(util.SingleLine(sum.Title), 30), 30),
			dimStyle.Render(when), dimStyle.Render(sum.SessionID))
	}
}

func (r *REPL) printTranscript() {
	s := r.vm.State()
	switch s.Status {
	case model.StatusError:
		fmt.Fprintln(r.out, styles.RenderError("대화를 불러오지 못했습니다"))
		return
	case model.StatusTimeout:
		fmt.Fprintln(r.out, styles.RenderWarning("응답이 지연되고 있습니다"))
	}
	if len(s.Messages) == 0 {
		fmt.Fprintln(r.out, dimStyle.Render("메시지가 없습니다"))
		return
	}
	for _, m := range s.Messages {
		label := assistantStyle.Render(m.Role.DisplayName())
		if m.IsUser() {
			label = userStyle.Render(m.Role.DisplayName())
		}
		fmt.Fprintln(r.out, label)
		if m.Error {
			fmt.Fprintln(r.out, styles.RenderError(strings.TrimPrefix(m.Content, model.ErrorPrefix)))
		} else {
			fmt.Fprintln(r.out, highlight(m.Content))
		}
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, `Commands:
  /new            start a new conversation
  /sessions       list conversations
  /open <n|id>    open a conversation
  /delete <n|id>  delete a conversation
  /refresh        reload the list from the server
  /quit           exit`)
}

func highlight(text string) string {
	return patent.Highlight(text, func(tok patent.Token) string {
		return styles.RenderPatent(tok.Value)
	})
}

// =============================================================================
// LINER
// =============================================================================

// linerReader adapts liner.State and persists history on Close.
type linerReader struct {
	state       *liner.State
	historyFile string
}

// NewLinerReader opens the terminal line editor and loads history from
// historyFile when it exists.
func NewLinerReader(historyFile string) LineReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			if _, err := state.ReadHistory(f); err != nil {
				log.Printf("REPL_HISTORY_READ_FAILED | path=%s error=%v", historyFile, err)
			}
			f.Close()
		}
	}
	return &linerReader{state: state, historyFile: historyFile}
}

func (l *linerReader) Prompt(prompt string) (string, error) {
	return l.state.Prompt(prompt)
}

func (l *linerReader) AppendHistory(line string) {
	l.state.AppendHistory(line)
}

// Close writes history with owner-only permissions and restores the
// terminal.
func (l *linerReader) Close() error {
	if l.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(l.historyFile), 0700); err == nil {
			f, err := os.OpenFile(l.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if err == nil {
				if _, err := l.state.WriteHistory(f); err != nil {
					log.Printf("REPL_HISTORY_WRITE_FAILED | path=%s error=%v", l.historyFile, err)
				}
				f.Close()
			}
		}
	}
	return l.state.Close()
}

// historyPath is the REPL history file under the config directory.
func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}
