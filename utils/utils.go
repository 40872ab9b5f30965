package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"github.com/urfave/cli"
	"os"
	"strings"
)

const (
	ExactArgs = iota
	MinArgs
	MaxArgs
)

func CheckArgs(context *cli.Context, expected, checkType int, fn func(args cli.Args) error) error {
	var err error
	cmdName := context.Command.Name
	switch checkType {
	case ExactArgs:
		if context.NArg() != expected {
			err = fmt.Errorf("%s: %q requires exactly %d argument(s)", os.Args[0], cmdName, expected)
		}
	case MinArgs:
		if context.NArg() < expected {
			err = fmt.Errorf("%s: %q requires a minimum of %d argument(s)", os.Args[0], cmdName, expected)
		}
	case MaxArgs:
		if context.NArg() > expected {
			err = fmt.Errorf("%s: %q requires a maximum of %d argument(s)", os.Args[0], cmdName, expected)
		}
	}

	if err != nil {
		fmt.Printf("Incorrect Usage.\n\n")
		_ = cli.ShowCommandHelp(context, cmdName)
		return err
	}

	if fn == nil {
		return nil
	}
	return fn(context.Args())
}

// PrefixIn reports whether s starts with any of prefixes. No prefixes
// matches everything.
func PrefixIn(s string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func MD5(s string) string {
	hasher := md5.New()
	hasher.Write([]byte(s))
	hashSlice := hasher.Sum(nil)
	return hex.EncodeToString(hashSlice)
}

// ParseBool accepts the spellings used for feature switches.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true", "yes", "enable":
		return true, nil
	case "off", "0", "false", "no", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
