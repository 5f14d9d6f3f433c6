// Package cli implements the ptdetail command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/threedaro/ptdetail/pkg/buildinfo"
	"github.com/threedaro/ptdetail/pkg/pipeline"
	"github.com/threedaro/ptdetail/pkg/settings"
)

// appName is the application name used for directories and display.
const appName = "ptdetail"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "ptdetail imports post-tensioning tendon layouts onto drawings",
		Long:         `ptdetail reads INDUCTA PTD tendon exports, fits them onto a slab outline, and places tendon, leader, drape and tag elements as a reviewable detail.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.importCommand())
	root.AddCommand(c.settingsCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	store, err := newStore()
	if err != nil {
		c.Logger.Warn("settings store unavailable, using defaults", "error", err)
		store = nil
	}
	return pipeline.NewRunner(store, c.Logger)
}

func newStore() (settings.Store, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return settings.NewFileStore(dir)
}

// configDir returns the settings directory using XDG standard
// (~/.config/ptdetail/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
