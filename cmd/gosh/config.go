// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// config holds gosh's optional user preferences, loaded from
// ~/.config/gosh/gosh.toml. None of it reaches the interp package: it only
// affects how this binary presents itself.
type config struct {
	UI struct {
		// Color selects whether diagnostics are printed in color:
		// "auto" (the default) colors only when stderr is a terminal,
		// "always", or "never".
		Color string `toml:"color"`
	} `toml:"ui"`

	// Experimental holds forward-looking, not-yet-stable UI toggles.
	// gosh doesn't interpret any of these itself yet.
	Experimental map[string]any `toml:"experimental"`
}

// configPath returns the file gosh optionally loads UI preferences from, or
// "" if the user's home directory can't be determined.
func configPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gosh", "gosh.toml")
}

// loadConfig reads the optional TOML config file at path. A missing file is
// not an error; it simply yields the zero config.
func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}

// wantColor reports whether diagnostics should be printed in color, given
// the user's "[ui] color" preference and whether stderr looks like a
// terminal.
func wantColor(pref string, isTerminal bool) bool {
	switch pref {
	case "always":
		return true
	case "never":
		return false
	default:
		return isTerminal
	}
}
