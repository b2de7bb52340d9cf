package collector

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Local collects VM logs from a locally mounted directory tree of the form
// <base>/<vm>/<source>. A missing directory or log file is an empty result,
// not an error.
type Local struct {
	basePath  string
	tailLines int
	logger    *slog.Logger
}

// NewLocal creates a collector over a local base path.
func NewLocal(basePath string, tailLines int, logger *slog.Logger) *Local {
	return &Local{
		basePath:  basePath,
		tailLines: tailLines,
		logger:    logger.With("component", "local_collector"),
	}
}

// DiscoverVMs lists VM log directories under the base path, sorted by name.
func (c *Local) DiscoverVMs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Warn("base path does not exist", "path", c.basePath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read base path %s: %w", c.basePath, err)
	}

	var vms []string
	for _, entry := range entries {
		if entry.IsDir() && isVMDir(entry.Name()) {
			vms = append(vms, entry.Name())
		}
	}
	sort.Strings(vms)
	return vms, nil
}

// Collect returns the last tailLines lines of one VM's log source.
func (c *Local) Collect(ctx context.Context, vmName, source string) ([]string, error) {
	path := filepath.Join(c.basePath, vmName, source)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	// Ring buffer over the file so huge logs never materialize in memory.
	ring := make([]string, c.tailLines)
	total := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring[total%c.tailLines] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if total <= c.tailLines {
		return ring[:total], nil
	}
	lines := make([]string, 0, c.tailLines)
	for i := total - c.tailLines; i < total; i++ {
		lines = append(lines, ring[i%c.tailLines])
	}
	return lines, nil
}
