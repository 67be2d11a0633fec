package version

import (
	"fmt"

	"github.com/meza/manifest-fetcher/internal/constants"
	"github.com/meza/manifest-fetcher/internal/environment"
	"github.com/meza/manifest-fetcher/internal/i18n"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use: "version",
		Short: i18n.T("cmd.version.short", i18n.Tvars{
			Data: &i18n.TData{"appName": constants.AppName},
		}),
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), environment.AppVersion())
		},
	}
}
