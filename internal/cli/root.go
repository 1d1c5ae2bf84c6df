// Package cli implements the media-backup command line.
package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/raoulx24/media-backup/internal/app"
	"github.com/raoulx24/media-backup/internal/config"
	"github.com/raoulx24/media-backup/internal/logging"
)

const envPrefix = "media_backup"

// reportedError marks a failure the command has already written out.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// globals resolves the persistent flags, which may also be set through
// MEDIA_BACKUP_CONFIG, MEDIA_BACKUP_LOG_LEVEL and MEDIA_BACKUP_NO_COLOR.
type globals struct {
	v *viper.Viper
}

func (g *globals) configPath() string { return g.v.GetString("config") }

func (g *globals) load() (*config.Config, error) {
	return config.Load(g.configPath())
}

func (g *globals) logger(cfg *config.Config, daemon bool) (*logging.ZapLogger, io.Closer, error) {
	return app.NewLogger(cfg, os.Stderr, app.LogOptions{
		Level:   g.v.GetString("log-level"),
		NoColor: g.v.GetBool("no-color"),
		Daemon:  daemon,
	})
}

// colored reports whether output written to w should carry color.
func (g *globals) colored(cfg *config.Config, w io.Writer) bool {
	if g.v.GetBool("no-color") {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return cfg.Logging.Color == "always"
	}
	return logging.ColorEnabled(cfg.Logging.Color, f)
}

// NewRootCmd builds the media-backup command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "media-backup",
		Short:         "Back up a media server configuration directory",
		Long:          "Stops the media server container, archives its configuration directory, starts it again and prunes old archives.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", config.DefaultPath, "Path to the YAML configuration file.")
	cmd.PersistentFlags().String("log-level", "", "Override logging.level (debug, info, warn, error).")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored terminal output.")

	g.v.SetEnvPrefix(envPrefix)
	g.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		_ = g.v.BindEnv(flag.Name)
		_ = g.v.BindPFlag(flag.Name, flag)
	})

	cmd.AddCommand(
		newRunCmd(g),
		newServeCmd(g),
		newPruneCmd(g),
		newCheckCmd(g),
		newListCmd(g),
	)
	return cmd
}
