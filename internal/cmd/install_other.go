//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
)

var errUnsupported = errors.New("service installation requires systemd and is only supported on Linux")

func install(_ *slog.Logger) error {
	return errUnsupported
}

func uninstall(_ *slog.Logger) error {
	return errUnsupported
}
