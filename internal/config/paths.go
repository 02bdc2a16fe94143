// Package config provides centralized configuration management: standard
// directory paths and the layered settings (defaults, config file,
// SECCOMPARE_* environment, flags) loaded through viper.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

// Paths holds standard seccompare directory paths.
type Paths struct {
	// Home is the seccompare home directory (~/.seccompare, or $SECCOMPARE_HOME)
	Home string

	// Data is the data directory holding the session store (~/.seccompare/data)
	Data string

	// Exports is the default directory for exported sessions (~/.seccompare/exports)
	Exports string

	// Templates is where prompt template YAML files live (~/.seccompare/templates)
	Templates string

	// ConfigFile is the config file path (~/.seccompare/config.yaml)
	ConfigFile string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home := os.Getenv("SECCOMPARE_HOME")
		if home == "" {
			userHome, err := os.UserHomeDir()
			if err != nil {
				userHome = "."
			}
			home = filepath.Join(userHome, ".seccompare")
		}

		paths = &Paths{
			Home:       home,
			Data:       filepath.Join(home, "data"),
			Exports:    filepath.Join(home, "exports"),
			Templates:  filepath.Join(home, "templates"),
			ConfigFile: filepath.Join(home, "config.yaml"),
		}
	})
	return paths
}

// ResetPaths clears the cached paths (for testing).
func ResetPaths() {
	pathsOnce = sync.Once{}
	paths = nil
}

// Path returns a path under the seccompare home directory.
// Equivalent to filepath.Join(home, parts...)
func Path(parts ...string) string {
	p := GetPaths()
	allParts := append([]string{p.Home}, parts...)
	return filepath.Join(allParts...)
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
