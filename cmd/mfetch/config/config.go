package config

import (
	"github.com/meza/manifest-fetcher/cmd/mfetch/common"
	"github.com/meza/manifest-fetcher/internal/config"
	"github.com/meza/manifest-fetcher/internal/i18n"
	"github.com/meza/manifest-fetcher/internal/perf"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func Command() *cobra.Command {
	return commandWithFs(afero.NewOsFs())
}

func commandWithFs(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: i18n.T("cmd.config.short"),
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(initCommand(fs))
	return cmd
}

func initCommand(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("cmd.config.init.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, span := perf.StartSpan(cmd.Context(), "app.command.config.init")
			defer span.End()

			opts, err := common.ReadOptions(cmd)
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}

			result, err := config.InitConfig(fs, opts.ConfigPath, force)
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}

			span.SetAttributes(attribute.Bool("success", true))
			logger := opts.Logger(cmd)
			if result.BackupPath != "" {
				logger.Log(i18n.Td("cmd.config.init.backup", i18n.TData{"path": result.BackupPath}), true)
			}
			logger.Log(i18n.Td("cmd.config.init.done", i18n.TData{"path": opts.ConfigPath}), true)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, i18n.T("cmd.config.init.flag.force"))
	return cmd
}
