package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	dirNotFoundMarker  = "DIRECTORY_NOT_FOUND"
	fileNotFoundMarker = "FILE_NOT_FOUND"
)

// SSH collects VM logs from a remote log host over ssh, reading the shared
// <base>/<vm>/<source> tree there. Remote commands are rate limited so a
// wide scan does not hammer the log host.
type SSH struct {
	host      string
	user      string
	basePath  string
	tailLines int
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger

	// run is swappable in tests.
	run func(ctx context.Context, args ...string) ([]byte, error)
}

// NewSSH creates a collector that shells out to ssh for each command.
func NewSSH(host, user, basePath string, tailLines int, timeout time.Duration, commandsPerSec float64, logger *slog.Logger) *SSH {
	c := &SSH{
		host:      host,
		user:      user,
		basePath:  basePath,
		tailLines: tailLines,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Limit(commandsPerSec), 1),
		logger:    logger.With("component", "ssh_collector", "host", host),
	}
	c.run = c.runSSH
	return c
}

func (c *SSH) runSSH(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sshArgs := []string{
		"-o", "ConnectTimeout=10",
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		fmt.Sprintf("%s@%s", c.user, c.host),
	}
	sshArgs = append(sshArgs, args...)

	return exec.CommandContext(ctx, "ssh", sshArgs...).Output()
}

// DiscoverVMs lists VM log directories on the remote host, sorted by name.
func (c *SSH) DiscoverVMs(ctx context.Context) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("ls -1 %s 2>/dev/null || echo %s", c.basePath, dirNotFoundMarker)
	out, err := c.run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote VM directories: %w", err)
	}

	output := strings.TrimSpace(string(out))
	if output == dirNotFoundMarker {
		c.logger.Warn("remote base path does not exist", "path", c.basePath)
		return nil, nil
	}

	var vms []string
	for _, name := range strings.Split(output, "\n") {
		name = strings.TrimSpace(name)
		if name != "" && isVMDir(name) {
			vms = append(vms, name)
		}
	}
	sort.Strings(vms)
	return vms, nil
}

// Collect tails one VM's log source on the remote host. A missing file is
// an empty result; command or timeout failures surface as errors so the
// caller can record them without aborting the rest of the scan.
func (c *SSH) Collect(ctx context.Context, vmName, source string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	remotePath := fmt.Sprintf("%s/%s/%s", c.basePath, vmName, source)
	cmd := fmt.Sprintf("tail -n %d %s 2>/dev/null || echo %s", c.tailLines, remotePath, fileNotFoundMarker)

	out, err := c.run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to tail %s: %w", remotePath, err)
	}

	output := strings.TrimSpace(string(out))
	if output == "" || output == fileNotFoundMarker {
		return nil, nil
	}

	lines := strings.Split(output, "\n")
	c.logger.Debug("collected remote log", "vm", vmName, "source", source, "lines", len(lines))
	return lines, nil
}
