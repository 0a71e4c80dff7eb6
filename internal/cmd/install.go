package cmd

import "log/slog"

// Install registers the emulator as a systemd service.
type Install struct{}

func (c *Install) Run(logger *slog.Logger) error {
	return install(logger)
}

// Uninstall removes the systemd service.
type Uninstall struct{}

func (c *Uninstall) Run(logger *slog.Logger) error {
	return uninstall(logger)
}
