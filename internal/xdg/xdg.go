// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package xdg resolves XDG Base Directory paths for loginsys.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "loginsys"

// ConfigFileName is the file looked up in ConfigDir when no config path is
// given.
const ConfigFileName = "config.yaml"

// ConfigDir returns $XDG_CONFIG_HOME/loginsys, falling back to
// ~/.config/loginsys.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", oops.Code("XDG_NO_HOME").Errorf("neither XDG_CONFIG_HOME nor HOME is set")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// DefaultConfigFile returns the path of the default config file if it
// exists, or "" otherwise.
func DefaultConfigFile() string {
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
