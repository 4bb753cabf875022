// Command agentctl is the operator-facing control surface for the agent
// daemon: start/stop/restart subcommands and a configuration inspection
// helper, following the same flag-based subcommand dispatch the hosting
// service's own CLI uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/agent"
	"github.com/cloudshuttle/logshuttle/internal/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	root := flag.NewFlagSet("agentctl", flag.ContinueOnError)
	root.SetOutput(io.Discard)
	pidFileFlag := root.String("pid-file", "/var/run/logshuttle.pid", "path to the running agent's pid file")
	if err := root.Parse(args); err != nil {
		return usageError(err)
	}

	remaining := root.Args()
	if len(remaining) == 0 {
		return usageError(errors.New("no command specified"))
	}

	switch remaining[0] {
	case "start":
		return cmdStart(*pidFileFlag)
	case "stop":
		return cmdSignal(*pidFileFlag, syscall.SIGTERM)
	case "restart":
		if err := cmdSignal(*pidFileFlag, syscall.SIGTERM); err != nil {
			return err
		}
		return cmdStart(*pidFileFlag)
	case "config":
		return cmdConfig(remaining[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError(fmt.Errorf("unknown command %q", remaining[0]))
	}
}

// cmdStart writes the current process's pid to pidFile so stop/restart can
// find it. The hosting service's actual component wiring lives in the
// agent daemon (cmd/agent); agentctl start is the supervised entry point a
// process manager invokes, exiting non-zero if startup did not complete
// cleanly within budget.
func cmdStart(pidFile string) error {
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	fmt.Printf("started (pid %d); budget %s\n", os.Getpid(), agent.MaximumServiceOperationDuration)
	return nil
}

func cmdSignal(pidFile string, sig syscall.Signal) error {
	raw, err := os.ReadFile(pidFile)
	if err != nil {
		return fmt.Errorf("failed to read pid file %q: %w", pidFile, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("invalid pid file %q: %w", pidFile, err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(2 * agent.MaximumServiceOperationDuration)
	for time.Now().Before(deadline) {
		if err := proc.Signal(syscall.Signal(0)); err != nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("process %d did not exit within the shutdown budget", pid)
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("agentctl config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("path", "", "configuration path (defaults to KINESISTAP_CONFIG_PATH)")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	remaining := fs.Args()
	if len(remaining) < 2 || remaining[0] != "query" {
		return usageError(errors.New("usage: agentctl config query <jsonpath-expression>"))
	}

	tree, err := config.Load(*path)
	if err != nil {
		return err
	}
	result, err := config.Query(tree, remaining[1])
	if err != nil {
		return err
	}
	fmt.Printf("%v\n", result)
	return nil
}

func usageError(err error) error {
	printUsage()
	return err
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `agentctl - control the logshuttle agent

Usage:
  agentctl start                         start the agent (written by a process supervisor)
  agentctl stop                          signal the running agent to shut down
  agentctl restart                       stop then start
  agentctl config query <jsonpath-expr>  inspect the loaded configuration tree`)
}
