// Package kmod loads the kernel modules a composite USB gadget needs.
package kmod

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

const procModules = "/proc/modules"

// Loader inserts kernel modules by name. A module that is already present
// is treated as loaded, not as a failure.
type Loader struct {
	logger *slog.Logger

	// overridable for tests
	procModulesPath string
	modprobe        func(ctx context.Context, name string) error
}

func New(logger *slog.Logger) *Loader {
	l := &Loader{
		logger:          logger,
		procModulesPath: procModules,
	}
	l.modprobe = l.runModprobe
	return l
}

// Load ensures the named module is present in the kernel.
func (l *Loader) Load(ctx context.Context, name string) error {
	loaded, err := l.isLoaded(name)
	if err != nil {
		l.logger.Debug("could not read module list, trying modprobe anyway", "module", name, "error", err)
	} else if loaded {
		l.logger.Debug("kernel module already loaded", "module", name)
		return nil
	}

	if err := l.modprobe(ctx, name); err != nil {
		// modprobe can lose a race against another loader; a module that
		// is present afterwards still counts as success.
		if loaded, lerr := l.isLoaded(name); lerr == nil && loaded {
			return nil
		}
		return fmt.Errorf("loading kernel module %q: %w", name, err)
	}
	l.logger.Info("kernel module loaded", "module", name)
	return nil
}

// isLoaded reports whether the module appears in /proc/modules. Module
// names there always use underscores.
func (l *Loader) isLoaded(name string) (bool, error) {
	f, err := os.Open(l.procModulesPath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	normalized := strings.ReplaceAll(name, "-", "_")
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == normalized {
			return true, nil
		}
	}
	return false, sc.Err()
}

func (l *Loader) runModprobe(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "modprobe", name)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("modprobe %s failed: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
