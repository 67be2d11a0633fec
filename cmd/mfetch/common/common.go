// Package common holds the flag plumbing and result rendering shared by the mfetch commands.
package common

import (
	"strconv"

	"github.com/meza/manifest-fetcher/internal/config"
	"github.com/meza/manifest-fetcher/internal/constants"
	"github.com/meza/manifest-fetcher/internal/i18n"
	"github.com/meza/manifest-fetcher/internal/logger"
	"github.com/meza/manifest-fetcher/internal/session"
	"github.com/meza/manifest-fetcher/internal/tui"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type Options struct {
	ConfigPath string
	OutDir     string
	Quiet      bool
	Debug      bool
}

// ReadOptions collects the persistent flags registered on the root command.
func ReadOptions(cmd *cobra.Command) (Options, error) {
	var opts Options
	var err error
	if opts.ConfigPath, err = cmd.Flags().GetString("config"); err != nil {
		return Options{}, err
	}
	if opts.OutDir, err = cmd.Flags().GetString("out"); err != nil {
		return Options{}, err
	}
	if opts.Quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return Options{}, err
	}
	if opts.Debug, err = cmd.Flags().GetBool("debug"); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (opts Options) Logger(cmd *cobra.Command) *logger.Logger {
	return logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.Quiet, opts.Debug)
}

// LoadConfig reads the config file and lets --out override the output directory.
func LoadConfig(fs afero.Fs, opts Options) (config.Config, error) {
	cfg, err := config.Load(fs, opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.OutDir != "" {
		cfg.OutputDir = opts.OutDir
	}
	return cfg, nil
}

// SessionFactory builds a session; commands swap it in tests.
type SessionFactory func(cfg config.Config, fs afero.Fs, log *logger.Logger) (*session.Session, error)

func DefaultSessionFactory(cfg config.Config, fs afero.Fs, log *logger.Logger) (*session.Session, error) {
	return session.New(cfg, fs, log)
}

// PrintReport shows where the artifacts went and what to do with them.
func PrintReport(log *logger.Logger, report session.Report) {
	result := report.Result
	log.Log(tui.SuccessStyle.Render(i18n.Td("fetch.done", i18n.TData{
		"name":       report.Name,
		"appid":      report.AppID,
		"repository": result.Repository.String(),
		"depots":     strconv.Itoa(len(result.Depots)),
	})), true)
	log.Log(i18n.Td("fetch.summary", i18n.TData{
		"saved":   strconv.Itoa(result.Saved),
		"skipped": strconv.Itoa(result.Skipped),
		"failed":  strconv.Itoa(result.Failed),
	}), false)
	if result.Failed > 0 {
		log.Log(tui.WarningStyle.Render(i18n.Td("fetch.partial", i18n.TData{"failed": strconv.Itoa(result.Failed)})), true)
	}
	log.Log(i18n.Td("fetch.script", i18n.TData{"path": tui.PathStyle.Render(report.ScriptPath)}), true)
	log.Log(tui.HintStyle.Render(i18n.Td("fetch.instructions.drag", i18n.TData{"dir": report.WorkDir})), false)
	log.Log(tui.HintStyle.Render(i18n.Td("fetch.instructions.restart", i18n.TData{"name": report.Name})), false)
}

// ErrorLine renders an error for the terminal.
func ErrorLine(err error) string {
	return tui.ErrorStyle.Render(err.Error())
}

// AddPersistentFlags registers the flags every command reads through ReadOptions.
func AddPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", constants.DefaultConfigFile, i18n.T("flag.config"))
	flags.String("out", "", i18n.T("flag.out"))
	flags.BoolP("quiet", "q", false, i18n.T("flag.quiet"))
	flags.Bool("debug", false, i18n.T("flag.debug"))
	flags.Bool("perf", false, i18n.T("flag.perf"))
	flags.String("perf-out-dir", "", i18n.T("flag.perf_out_dir"))
}
