// Package firewall turns prefixes into outbound DROP rules using the host firewall CLI.
package firewall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/anisimovdk/cloud-range-blocker/internal/config"
	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
)

// ErrUnsupportedPlatform is returned on systems without a known firewall CLI.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Runner executes one command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CommandError reports a firewall command that exited with a non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Output))
}

// Blocker applies and resets firewall rules.
type Blocker struct {
	runner   Runner
	goos     string
	chain    string
	ruleName string
	dryRun   bool
	out      io.Writer
}

// NewBlocker creates a blocker for the current platform.
func NewBlocker(cfg *config.Config) *Blocker {
	return &Blocker{
		runner:   ExecRunner{},
		goos:     runtime.GOOS,
		chain:    cfg.Chain,
		ruleName: cfg.RuleName,
		dryRun:   cfg.DryRun,
		out:      os.Stdout,
	}
}

// Block adds one DROP rule per prefix, in order, and stops at the first failure.
func (b *Blocker) Block(ctx context.Context, prefixes []prefix.Prefix) error {
	for i, p := range prefixes {
		cmd, err := b.blockCommand(p)
		if err != nil {
			return err
		}
		if err := b.run(ctx, cmd); err != nil {
			return fmt.Errorf("block %s (%d of %d): %w", p, i+1, len(prefixes), err)
		}
	}
	log.Debug("Firewall rules applied", "rules", len(prefixes), "dry_run", b.dryRun)
	return nil
}

// Reset removes the rules added by Block.
func (b *Blocker) Reset(ctx context.Context) error {
	cmds, err := b.resetCommands()
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if err := b.run(ctx, cmd); err != nil {
			return fmt.Errorf("reset firewall: %w", err)
		}
	}
	log.Info("Firewall rules reset", "chain", b.chain, "dry_run", b.dryRun)
	return nil
}

func (b *Blocker) blockCommand(p prefix.Prefix) ([]string, error) {
	if !p.IsValid() {
		return nil, errors.New("cannot block an invalid prefix")
	}

	switch b.goos {
	case "linux", "darwin":
		tool := "iptables"
		if p.Is6() {
			tool = "ip6tables"
		}
		return []string{tool, "-A", b.chain, "-d", p.String(), "-j", "DROP"}, nil
	case "windows":
		return []string{
			"netsh", "advfirewall", "firewall", "add", "rule",
			"name=" + b.ruleName,
			"dir=out",
			"action=deny",
			"enable=yes",
			"remoteip=" + p.String(),
			"profile=public",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, b.goos)
	}
}

func (b *Blocker) resetCommands() ([][]string, error) {
	switch b.goos {
	case "linux", "darwin":
		return [][]string{
			{"iptables", "-F", b.chain},
			{"ip6tables", "-F", b.chain},
		}, nil
	case "windows":
		return [][]string{{"netsh", "advfirewall", "reset"}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, b.goos)
	}
}

func (b *Blocker) run(ctx context.Context, cmd []string) error {
	line := strings.Join(cmd, " ")
	if b.dryRun {
		_, err := fmt.Fprintln(b.out, line)
		return err
	}

	log.Debug("Running firewall command", "command", line)
	output, err := b.runner.Run(ctx, cmd[0], cmd[1:]...)
	if err == nil {
		return nil
	}

	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		return &CommandError{Command: line, ExitCode: exitErr.ExitCode(), Output: string(output)}
	}
	return fmt.Errorf("run %s: %w", cmd[0], err)
}
