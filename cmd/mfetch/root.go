package mfetch

import (
	"fmt"
	"strings"

	configCmd "github.com/meza/manifest-fetcher/cmd/mfetch/config"
	"github.com/meza/manifest-fetcher/cmd/mfetch/common"
	"github.com/meza/manifest-fetcher/cmd/mfetch/fetch"
	"github.com/meza/manifest-fetcher/cmd/mfetch/version"
	"github.com/meza/manifest-fetcher/internal/constants"
	"github.com/meza/manifest-fetcher/internal/environment"
	"github.com/meza/manifest-fetcher/internal/i18n"
	"github.com/meza/manifest-fetcher/internal/tui"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type rootDeps struct {
	fs          afero.Fs
	newSession  common.SessionFactory
	newPrompter func(cmd *cobra.Command) Prompter
	interactive func(cmd *cobra.Command) bool
}

func defaultRootDeps() rootDeps {
	return rootDeps{
		fs:          afero.NewOsFs(),
		newSession:  common.DefaultSessionFactory,
		newPrompter: newSurveyPrompter,
		interactive: func(cmd *cobra.Command) bool {
			return tui.ShouldPrompt(false, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func Command() *cobra.Command {
	return commandWithDeps(defaultRootDeps())
}

func commandWithDeps(deps rootDeps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     constants.CommandName,
		Short:   i18n.T("app.description"),
		Version: environment.AppVersion(),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, deps)
		},
	}
	cobra.MousetrapHelpText = "" // allow the app to run in windows by clicking the exe

	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetHelpTemplate(rootCmd.HelpTemplate() + "\n" + environment.HelpURL() + "\n")
	common.AddPersistentFlags(rootCmd)
	rootCmd.AddCommand(fetch.Command())
	rootCmd.AddCommand(configCmd.Command())
	rootCmd.AddCommand(version.Command())

	translateDefaultHelpFacilities(rootCmd)
	fixFlagUsageAlignment(rootCmd)

	return rootCmd
}

func translateDefaultHelpFacilities(rootCmd *cobra.Command) {
	subcommands := rootCmd.Commands()
	allCommands := make([]*cobra.Command, 0, len(subcommands)+1)
	allCommands = append(allCommands, rootCmd)
	allCommands = append(allCommands, subcommands...)

	for _, cmd := range allCommands {
		cmd.InitDefaultHelpFlag()
		flags := cmd.Flags()
		flags.Lookup("help").Usage = i18n.T("cmd.help.template", i18n.Tvars{
			Data: &i18n.TData{"command": cmd.Name()},
		})
	}

	rootCmd.InitDefaultHelpCmd()
	helpCmd, _, e := rootCmd.Find([]string{"help"})

	if e == nil {
		helpCmd.Short = i18n.T("cmd.help.usage.short")
		helpCmd.Long = i18n.T("cmd.help.usage.long", i18n.Tvars{
			Data: &i18n.TData{"appName": rootCmd.Name()},
		})
		helpCmd.Run = func(c *cobra.Command, args []string) {
			cmd, rest, e := c.Root().Find(args)
			// root accepts no args, so Find hands unknown topics back as leftovers instead of failing
			if cmd == nil || e != nil || len(rest) > 0 {
				c.PrintErrln(i18n.T("cmd.help.error", i18n.Tvars{
					Data: &i18n.TData{"topic": fmt.Sprintf("%#q", args)},
				}) + "\n")
				cobra.CheckErr(c.Root().Usage())
			} else {
				cmd.InitDefaultHelpFlag()    // make possible 'help' flag to be shown
				cmd.InitDefaultVersionFlag() // make possible 'version' flag to be shown
				cobra.CheckErr(cmd.Help())
			}
		}
	}
}

func fixFlagUsageAlignment(rootCmd *cobra.Command) {
	width := tui.Width(rootCmd.OutOrStdout(), 0)
	usageTemplate := rootCmd.UsageTemplate()
	usageTemplate = strings.ReplaceAll(usageTemplate, ".FlagUsages", fmt.Sprintf(".FlagUsagesWrapped %d", width))
	rootCmd.SetUsageTemplate(usageTemplate)
}

func Execute() error {
	return Command().Execute()
}
