package fetch

import (
	"context"
	"errors"

	"github.com/meza/manifest-fetcher/cmd/mfetch/common"
	"github.com/meza/manifest-fetcher/internal/i18n"
	"github.com/meza/manifest-fetcher/internal/perf"
	"github.com/meza/manifest-fetcher/internal/walker"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNothingFound makes the process exit non-zero when no repository had the app.
var ErrNothingFound = errors.New("nothing found")

type fetchDeps struct {
	fs         afero.Fs
	newSession common.SessionFactory
}

func Command() *cobra.Command {
	return commandWithDeps(fetchDeps{fs: afero.NewOsFs(), newSession: common.DefaultSessionFactory})
}

func commandWithDeps(deps fetchDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <appid>",
		Short: i18n.T("cmd.fetch.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.fetch", perf.WithAttributes(attribute.String("appid", args[0])))
			defer span.End()

			name, err := cmd.Flags().GetString("name")
			if err != nil {
				return err
			}
			opts, err := common.ReadOptions(cmd)
			if err != nil {
				return err
			}

			err = runFetch(ctx, cmd, args[0], name, opts, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))
			return err
		},
	}
	cmd.Flags().String("name", "", i18n.T("cmd.fetch.flag.name"))
	return cmd
}

func runFetch(ctx context.Context, cmd *cobra.Command, appID string, name string, opts common.Options, deps fetchDeps) error {
	log := opts.Logger(cmd)

	cfg, err := common.LoadConfig(deps.fs, opts)
	if err != nil {
		return err
	}
	fetchSession, err := deps.newSession(cfg, deps.fs, log)
	if err != nil {
		return err
	}

	report, err := fetchSession.Fetch(ctx, appID, name)
	if err != nil {
		if errors.Is(err, walker.ErrAllRepositoriesExhausted) {
			log.Error(common.ErrorLine(errors.New(i18n.Td("fetch.not_found", i18n.TData{"appid": report.AppID}))))
			cmd.SilenceUsage = true
			return ErrNothingFound
		}
		return err
	}

	common.PrintReport(log, report)
	return nil
}
