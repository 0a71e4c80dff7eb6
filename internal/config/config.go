// Package config defines the top-level command line surface.
package config

import (
	"github.com/hombit/sweam/internal/cmd"
)

// LogConfig is the shared logging configuration for all commands.
type LogConfig struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"SWEAM_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"SWEAM_LOG_FILE"`
	RawFile string `help:"Write raw report hex dumps to this file" env:"SWEAM_LOG_RAW_FILE"`
}

// CLI is the root command structure parsed by Kong.
type CLI struct {
	Log        LogConfig `embed:"" prefix:"log."`
	ConfigPath string    `name:"config" help:"Path to a configuration file" env:"SWEAM_CONFIG"`

	Run       cmd.Run           `cmd:"" default:"withargs" help:"Provision the gadget and run the interactive controller session"`
	Gadget    cmd.GadgetCommand `cmd:"" help:"Manage the configfs gadget without running a session"`
	Config    cmd.ConfigCommand `cmd:"" help:"Configuration file helpers"`
	Install   cmd.Install       `cmd:"" help:"Install sweam as a systemd service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the sweam systemd service"`
}
