package logflags

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultLogDesc is the log destination used when none is given.
const DefaultLogDesc = "stderr"

var (
	http     = false
	ram      = false
	resolver = false
	session  = false
	inject   = false

	logOut io.WriteCloser = os.Stderr
)

var errLogstrWithoutLog = errors.New("--logStr specified without --logFlag")

// Logger is the subset of *zap.SugaredLogger the rest of the module uses.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	With(args ...interface{}) Logger
}

// Setup sets the component flags from a comma separated list of component
// names and opens the log destination. logDest may be a file path, a file
// descriptor number or "stderr".
func Setup(logFlag bool, logStr, logDest string) error {
	if logDest != "" && logDest != DefaultLogDesc {
		out, err := openDest(logDest)
		if err != nil {
			return err
		}
		logOut = out
	}

	if !logFlag {
		if logStr != "" && logStr != "http" {
			return errLogstrWithoutLog
		}
		return nil
	}

	if logStr == "" {
		logStr = "http"
	}
	for _, cmd := range strings.Split(logStr, ",") {
		switch strings.TrimSpace(cmd) {
		case "http":
			http = true
		case "ram":
			ram = true
		case "resolver":
			resolver = true
		case "session":
			session = true
		case "inject":
			inject = true
		case "all":
			http, ram, resolver, session, inject = true, true, true, true, true
		default:
			return fmt.Errorf("unknown log component %q", cmd)
		}
	}
	return nil
}

func openDest(logDest string) (io.WriteCloser, error) {
	if n, err := parseFd(logDest); err == nil {
		return os.NewFile(uintptr(n), "emupatch-logs"), nil
	}
	f, err := os.OpenFile(logDest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log destination %s: %w", logDest, err)
	}
	return f, nil
}

func parseFd(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil || fmt.Sprint(n) != s || n < 3 {
		return 0, fmt.Errorf("not a file descriptor: %s", s)
	}
	return n, nil
}

// Close closes the log destination if it is not stderr.
func Close() {
	if logOut != os.Stderr {
		logOut.Close()
	}
}
