package terminal

import (
	"emupatch/service"
	"emupatch/utils"
	"errors"
	"fmt"
	"github.com/derekparker/trie"
	"github.com/go-delve/liner"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"io"
	"os"
	"os/signal"
	"os/user"
	"path"
	"strings"
	"syscall"
)

const (
	prompt                             = "(emupatch) "
	expDir                             = ".emupatch"
	historyFile                 string = ".emupatch_history"
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"
	promptColor                        = 34

	// pageLines bounds the output of a single command on a terminal.
	pageLines = 500
)

type Term struct {
	client      service.Client
	prompt      string
	line        *liner.State
	cmds        *Commands
	historyFile *os.File
	stdout      *transcriptWriter
	colorPrompt bool
}

func New(client service.Client) *Term {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	pw := &pagingWriter{w: colorable.NewColorableStdout()}
	if tty {
		pw.limit = pageLines
	}

	t := &Term{
		client:      client,
		line:        liner.NewLiner(),
		prompt:      prompt,
		stdout:      &transcriptWriter{pw: pw},
		cmds:        NewCommands(client),
		colorPrompt: tty,
	}

	return t
}

func (t *Term) sigintGuard(ch <-chan os.Signal) {
	for range ch {
		fmt.Fprintf(t.stdout, "received SIGINT, type exit to leave (the target keeps running)\n")
	}
}

// completer completes command names and, after a command that takes a
// feature, the feature names the server reported.
func (t *Term) completer(cmds, features *trie.Trie) liner.Completer {
	return func(line string) []string {
		first, rest, found := strings.Cut(line, " ")
		if !found {
			return cmds.PrefixSearch(line)
		}
		if strings.Contains(rest, " ") || !t.cmds.Find(first, onPrefix).match(first) {
			return nil
		}

		var c []string
		for _, name := range features.PrefixSearch(rest) {
			c = append(c, first+" "+name)
		}
		return c
	}
}

// featureNames asks the server for the features it drives.
func (t *Term) featureNames() []string {
	out, err := t.client.SendExpr(service.Status, "")
	if err != nil {
		return nil
	}
	return parseStatusNames(out)
}

func parseStatusNames(status string) []string {
	var names []string
	lines := strings.Split(strings.TrimSpace(status), "\n")
	for _, l := range lines[1:] {
		if f := strings.Fields(l); len(f) > 0 {
			names = append(names, f[0])
		}
	}
	return names
}

func (t *Term) Run() error {
	defer t.Close()

	var (
		err error
	)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go t.sigintGuard(ch)

	cmds := trie.New()
	for _, cmd := range t.cmds.cmds {
		for _, alias := range cmd.aliases {
			cmds.Add(alias, nil)
		}
	}
	features := trie.New()
	for _, name := range t.featureNames() {
		features.Add(name, nil)
	}

	t.line.SetCompleter(t.completer(cmds, features))

	userHomeDir := getUserHomeDir()
	fullHistory := path.Join(userHomeDir, expDir, historyFile)

	t.historyFile, err = os.OpenFile(fullHistory, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(parentDir(fullHistory), 0755); err != nil {
				return fmt.Errorf("create parent dir failed: %v", err)
			}

			t.historyFile, err = os.OpenFile(fullHistory, os.O_CREATE|os.O_RDWR, 0600)
		}
		if err != nil {
			fmt.Printf("Unable to open history file: %v. History will not be saved for this session.\n", err)
		}
	}

	if t.historyFile != nil {
		if _, err = t.line.ReadHistory(t.historyFile); err != nil {
			fmt.Printf("Unable to read history file %s: %v\n", fullHistory, err)
		}
	}

	fmt.Println("Type 'help' for list of commands.")

	for {
		cmd, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit()
			}
			return errors.New("Prompt for input failed.\n")
		}
		t.stdout.Echo(t.prompt + cmd + "\n")

		if strings.TrimSpace(cmd) == "" {
			continue
		}

		if err = t.cmds.Call(cmd, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}

			utils.PrintError(os.Stderr, fmt.Errorf("Command failed: %s", err))
		}

		t.stdout.Flush()
		t.stdout.pw.Reset()
	}
}

func (t *Term) Close() {
	t.line.Close()
	if err := t.stdout.CloseTranscript(); err != nil {
		fmt.Fprintf(os.Stderr, "error closing transcript file: %v\n", err)
	}
}

func getUserHomeDir() string {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return userHomeDir
}

func (t *Term) promptForInput() (string, error) {
	if t.colorPrompt {
		fmt.Fprintf(os.Stdout, terminalHighlightEscapeCode, promptColor)
		defer fmt.Fprint(os.Stdout, terminalResetEscapeCode)
	}
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) handleExit() error {
	if t.historyFile != nil {
		if err := t.historyFile.Truncate(0); err != nil {
			return err
		}
		if _, err := t.historyFile.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if _, err := t.line.WriteHistory(t.historyFile); err != nil {
			fmt.Println("readline history error:", err)
			return err
		}
		if err := t.historyFile.Close(); err != nil {
			fmt.Printf("error closing history file: %s\n", err)
			return err
		}
	}

	return nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == os.PathSeparator {
			return path[:i]
		}
	}
	return ""
}
