package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-shellwords"
	"github.com/pingcap-incubator/nestkv/kv/server"
	"github.com/pingcap-incubator/nestkv/kv/transaction/nested"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

const nilValue = "(nil)"

type shell struct {
	svr  *server.Server
	out  io.Writer
	root *cobra.Command
}

func newShell(svr *server.Server, out io.Writer) *shell {
	s := &shell{
		svr: svr,
		out: out,
	}
	s.root = &cobra.Command{
		Use:           "nestkv",
		Short:         "NestKV shell command",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	s.root.SetOutput(out)
	s.root.InitDefaultHelpCmd()
	s.root.AddCommand(
		s.newCommand("begin", "Open a nested transaction", cobra.NoArgs, s.runBegin),
		s.newCommand("set key value", "Set a key in the innermost transaction", cobra.ExactArgs(2), s.runSet),
		s.newCommand("get key", "Print the value of a key, or (nil) if it is absent", cobra.ExactArgs(1), s.runGet),
		s.newCommand("delete key", "Delete a key in the innermost transaction", cobra.ExactArgs(1), s.runDelete),
		s.newCommand("commit", "Fold the innermost transaction into its parent", cobra.NoArgs, s.runCommit),
		s.newCommand("rollback", "Discard the innermost transaction", cobra.NoArgs, s.runRollback),
		s.newCommand("status", "Print the transaction depth and pending changes", cobra.NoArgs, s.runStatus),
	)
	return s
}

func (s *shell) newCommand(use, short string, args cobra.PositionalArgs, run func(args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		Run: func(cmd *cobra.Command, args []string) {
			s.report(run(args))
		},
		// Values may start with a dash.
		DisableFlagParsing:    true,
		DisableFlagsInUseLine: true,
	}
}

func (s *shell) report(err error) {
	switch errors.Cause(err) {
	case nil:
	case nested.ErrNoActiveTransaction:
		fmt.Fprintln(s.out, "No active transaction")
	default:
		fmt.Fprintf(s.out, "ERROR: %v\n", err)
	}
}

func (s *shell) runBegin(args []string) error {
	return s.svr.Begin()
}

func (s *shell) runSet(args []string) error {
	return s.svr.Set(args[0], args[1])
}

func (s *shell) runGet(args []string) error {
	value, ok, err := s.svr.Get(args[0])
	if err != nil {
		return err
	}
	if !ok {
		value = nilValue
	}
	fmt.Fprintln(s.out, value)
	return nil
}

func (s *shell) runDelete(args []string) error {
	return s.svr.Delete(args[0])
}

func (s *shell) runCommit(args []string) error {
	return s.svr.Commit()
}

func (s *shell) runRollback(args []string) error {
	return s.svr.Rollback()
}

func (s *shell) runStatus(args []string) error {
	if s.svr.IsClosed() {
		return server.ErrServerClosed
	}
	st := s.svr.Status()
	fmt.Fprintf(s.out, "depth: %d, committed keys: %d, pending keys: %d, pending size: %s\n",
		st.Depth, st.CommittedKeys, st.PendingKeys, st.PendingSize)
	return nil
}

// execute runs one line and reports whether the shell should stop.
func (s *shell) execute(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	args, err := shellwords.Parse(line)
	if err != nil {
		fmt.Fprintf(s.out, "ERROR: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	name := strings.ToLower(args[0])
	if name == "exit" || name == "quit" {
		return true
	}
	args[0] = name
	if cmd, _, err := s.root.Find(args); err != nil || cmd == s.root {
		fmt.Fprintf(s.out, "Unknown command: %s\n", args[0])
		return false
	}

	s.root.SetArgs(args)
	if err := s.root.Execute(); err != nil {
		fmt.Fprintf(s.out, "ERROR: %v\n", err)
	}
	return false
}

// runScript executes r line by line until it ends or a line asks to exit.
func (s *shell) runScript(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if s.execute(scanner.Text()) {
			return nil
		}
	}
	return errors.WithStack(scanner.Err())
}

func (s *shell) loop() error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       filepath.Join(os.TempDir(), "nestkv_history"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "^D",
		HistorySearchFold: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	defer l.Close()

	for {
		line, err := l.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			continue
		}
		if s.execute(line) {
			return nil
		}
	}
}
