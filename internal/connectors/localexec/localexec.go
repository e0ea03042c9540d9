// Package localexec provides a probe that runs an allowlisted local command
// printing instance counts as JSON.
package localexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fentz26/stratowatch/internal/connectors"
	"github.com/fentz26/stratowatch/internal/models"
)

// DefaultAllowlist is used when no allowlist is configured. An empty
// subcommand list allows any arguments.
var DefaultAllowlist = map[string][]string{
	"kubectl": {"get"},
	"cat":     {},
}

// LocalExec runs a probe command and parses its stdout as a JSON array of
// group counts: [{"group_id":"web","running":3,"pending":0,"failed":1}].
type LocalExec struct {
	workDir   string
	command   string
	args      []string
	allowlist map[string][]string
}

// New creates a new LocalExec probe. A nil allowlist selects DefaultAllowlist.
func New(workDir, command string, args []string, allowlist map[string][]string) *LocalExec {
	if allowlist == nil {
		allowlist = DefaultAllowlist
	}
	return &LocalExec{
		workDir:   workDir,
		command:   command,
		args:      args,
		allowlist: allowlist,
	}
}

// Name returns the connector identifier.
func (l *LocalExec) Name() string {
	return "localexec"
}

// IsAllowed checks if a command is in the allowlist.
func (l *LocalExec) IsAllowed(cmd string, args []string) bool {
	allowedSubcmds, ok := l.allowlist[cmd]
	if !ok {
		return false
	}
	if len(allowedSubcmds) == 0 {
		return true
	}

	if len(args) == 0 {
		return false
	}

	// Check if the first arg (subcommand) is allowed
	subcmd := args[0]
	for _, allowed := range allowedSubcmds {
		if subcmd == allowed {
			return true
		}
	}
	return false
}

// Execute runs a command if it's in the allowlist.
func (l *LocalExec) Execute(ctx context.Context, cmd string, args []string) (*connectors.ExecResult, error) {
	if !l.IsAllowed(cmd, args) {
		return nil, fmt.Errorf("%w: %s %s", connectors.ErrNotAllowed, cmd, strings.Join(args, " "))
	}

	execCmd := exec.CommandContext(ctx, cmd, args...)
	if l.workDir != "" {
		execCmd.Dir = l.workDir
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	exitCode := 0
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		} else {
			return nil, fmt.Errorf("exec error: %w", err)
		}
	}

	return &connectors.ExecResult{
		Command:  cmd,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Probe runs the configured command and decodes its output.
func (l *LocalExec) Probe(ctx context.Context) ([]models.GroupCounts, error) {
	res, err := l.Execute(ctx, l.command, l.args)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("probe %s exited %d: %s", l.command, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return ParseCounts([]byte(res.Stdout))
}

// ParseCounts decodes a JSON array of group counts and rejects negative values.
func ParseCounts(data []byte) ([]models.GroupCounts, error) {
	var groups []models.GroupCounts
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}
	for _, g := range groups {
		if g.GroupID == "" {
			return nil, fmt.Errorf("parse probe output: missing group_id")
		}
		if !g.Valid() {
			return nil, fmt.Errorf("parse probe output: negative count for group %s", g.GroupID)
		}
	}
	return groups, nil
}
