package terminal

import (
	"emupatch/service"
	"errors"
	"fmt"
	"github.com/google/shlex"
	"strings"
	"text/tabwriter"
)

type cmdPrefix int

const (
	noPrefix = cmdPrefix(0)
	onPrefix = cmdPrefix(1 << iota)
)

type cmdFn func(term *Term, args string) error

type command struct {
	aliases         []string
	allowedPrefixes cmdPrefix
	fn              cmdFn
	help            string
}

func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

type Commands struct {
	cmds   []command
	client service.Client
}

func NewCommands(client service.Client) *Commands {
	c := &Commands{
		client: client,
	}

	c.cmds = []command{
		{
			aliases: []string{"help", "h"},
			fn:      c.help,
			help: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{
			aliases: []string{"get", "g"},
			fn:      remote(service.Get),
			help: `Reads a value from guest memory.

	get <address> [kind]

The address is a number or a field of the offset table, optionally with an
offset: "camera+0x10". Kinds are u8, u16, u32 (default), i8, i16, i32, f32,
f64 and word.`,
		},
		{
			aliases: []string{"set", "s"},
			fn:      remote(service.Set),
			help: `Writes a value to guest memory and reads it back.

	set <address> [kind] <value>`,
		},
		{
			aliases: []string{"list", "ls"},
			fn:      remote(service.List),
			help: `Lists the fields of the resolved build.

	list [prefix...]`,
		},
		{
			aliases:         []string{"toggle", "t"},
			allowedPrefixes: onPrefix,
			fn:              remote(service.Toggle),
			help: `Switches a feature on or off. The change is applied by the next update.

	toggle <feature> on|off`,
		},
		{
			aliases: []string{"status", "st"},
			fn:      remote(service.Status),
			help:    "Shows every feature with its wanted and applied state.",
		},
		{
			aliases: []string{"inject"},
			fn:      remote(service.Inject),
			help:    "Installs the build's copy trampoline unless it is already in place.",
		},
		{
			aliases: []string{"disasm", "d"},
			fn:      remote(service.Disasm),
			help: `Disassembles guest memory.

	disasm <address> [words]`,
		},
		{
			aliases: []string{"transcript"},
			fn:      transcript,
			help: `Appends command output to a file.

	transcript [-x] <file>
	transcript off

With -x the output is written to the file only.`,
		},
		{
			aliases: []string{"exit", "quit", "q"},
			fn:      exit,
			help:    "exit emupatch",
		},
	}
	return c
}

// Find will look up the command function for the given command input.
// If it cannot find the command it will default to noCmdAvailable().
func (c *Commands) Find(cmdstr string, prefix cmdPrefix) command {
	if cmdstr == "" {
		return command{aliases: []string{"nullcmd"}, fn: nullCommand}
	}

	for _, v := range c.cmds {
		if v.match(cmdstr) {
			if prefix != noPrefix && v.allowedPrefixes&prefix == 0 {
				continue
			}
			return v
		}
	}

	return command{aliases: []string{"nocmd"}, fn: noCmdAvailable}
}

func (c *Commands) Call(cmdStr string, t *Term) error {
	cmd, argStr, _ := strings.Cut(strings.TrimSpace(cmdStr), " ")

	return c.Find(cmd, noPrefix).fn(t, argStr)
}

func (c *Commands) help(t *Term, args string) error {
	if args = strings.TrimSpace(args); args != "" {
		cmd := c.Find(args, noPrefix)
		if cmd.help == "" {
			return errNoCmd
		}
		fmt.Fprintln(t.stdout, cmd.help)
		return nil
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")
	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 0, '-', 0)
	for _, cmd := range c.cmds {
		h := cmd.help
		if idx := strings.Index(h, "\n"); idx >= 0 {
			h = h[:idx]
		}
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
		} else {
			fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

// normalizeArgs splits args shell style and drops the blanks inside each
// argument, so `get "camera + 0x10" f32` reaches the server as
// `camera+0x10 f32`.
func normalizeArgs(args string) (string, error) {
	words, err := shlex.Split(args)
	if err != nil {
		return "", err
	}
	for i, w := range words {
		words[i] = strings.Join(strings.Fields(w), "")
	}
	return strings.Join(words, " "), nil
}

func remote(ct service.CmdType) cmdFn {
	return func(t *Term, args string) error {
		args, err := normalizeArgs(args)
		if err != nil {
			return err
		}

		v, err := t.client.SendExpr(ct, args)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(t.stdout, strings.TrimSuffix(v, "\n"))
		return err
	}
}

func transcript(t *Term, args string) error {
	words, err := shlex.Split(args)
	if err != nil {
		return err
	}

	fileOnly := false
	if len(words) > 0 && words[0] == "-x" {
		fileOnly = true
		words = words[1:]
	}
	if len(words) != 1 {
		return fmt.Errorf("invalid number of arguments, expected 1, actual %d", len(words))
	}

	if words[0] == "off" {
		return t.stdout.CloseTranscript()
	}
	return t.stdout.TranscriptTo(words[0], fileOnly)
}

type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

func exit(t *Term, args string) error {
	return ExitRequestError{}
}

var errNoCmd = errors.New("command not available")

func noCmdAvailable(t *Term, args string) error {
	return errNoCmd
}

func nullCommand(t *Term, args string) error {
	return nil
}
