// Package console reads operator keys: c requests a capture, q or Esc stops
// the appliance. On a terminal each key acts on its own press; piped input
// is read line by line.
package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"doorman/internal/logger"

	"golang.org/x/term"
)

const (
	keyEsc   = 0x1b
	keyCtrlC = 0x03
	keyCtrlD = 0x04
)

// Commands are the actions bound to keys.
type Commands struct {
	Trigger func() bool
	Quit    func()
}

// Console owns the process's standard input. Everything that reads stdin
// goes through Reader so no buffered byte is lost between readers.
type Console struct {
	in     *os.File
	reader *bufio.Reader
	log    *logger.Logger

	isTerminal func(fd int) bool
	makeRaw    func(fd int) (*term.State, error)
	restore    func(fd int, st *term.State) error
}

func New(in *os.File, log *logger.Logger) *Console {
	if log == nil {
		log = logger.Nop()
	}
	return &Console{
		in:         in,
		reader:     bufio.NewReader(in),
		log:        log,
		isTerminal: term.IsTerminal,
		makeRaw:    term.MakeRaw,
		restore:    term.Restore,
	}
}

// Reader is the shared buffered stdin, for prompts that run before Watch.
func (c *Console) Reader() *bufio.Reader { return c.reader }

// Watch dispatches keys until a quit key, EOF or ctx is done. A terminal is
// put in raw mode for the duration and restored before Watch returns.
func (c *Console) Watch(ctx context.Context, cmds Commands) {
	fd := int(c.in.Fd())
	if !c.isTerminal(fd) {
		WatchLines(ctx, c.reader, cmds, c.log)
		return
	}
	old, err := c.makeRaw(fd)
	if err != nil {
		c.log.Warnw("console_raw_mode_failed", "err", err)
		WatchLines(ctx, c.reader, cmds, c.log)
		return
	}
	logger.SetRawTerminal(true)
	defer func() {
		logger.SetRawTerminal(false)
		if err := c.restore(fd, old); err != nil {
			c.log.Warnw("console_restore_failed", "err", err)
		}
	}()

	// The read cannot be interrupted; leave it behind when ctx ends first.
	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchKeys(ctx, c.reader, cmds, c.log)
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
}

// WatchKeys acts on single bytes from r. Ctrl-C and Ctrl-D quit as well,
// since raw mode no longer turns them into signals.
func WatchKeys(ctx context.Context, r io.ByteReader, cmds Commands, log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	for {
		b, err := r.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warnw("console_read_failed", "err", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		switch b {
		case 'c', 'C':
			trigger(cmds, log)
		case 'q', 'Q', keyEsc, keyCtrlC, keyCtrlD:
			quit(cmds, log)
			return
		}
	}
}

// WatchLines is the fallback for piped input: one command per line.
func WatchLines(ctx context.Context, r io.Reader, cmds Commands, log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch key := strings.ToLower(strings.TrimSpace(sc.Text())); key {
		case "c":
			trigger(cmds, log)
		case "q", string(rune(keyEsc)):
			quit(cmds, log)
			return
		case "":
		default:
			log.Debugw("console_unknown_key", "key", key)
		}
	}
}

func trigger(cmds Commands, log *logger.Logger) {
	if cmds.Trigger != nil && cmds.Trigger() {
		log.Infow("console_trigger_accepted")
	} else {
		log.Infow("console_trigger_refused")
	}
}

func quit(cmds Commands, log *logger.Logger) {
	log.Infow("console_quit")
	if cmds.Quit != nil {
		cmds.Quit()
	}
}
