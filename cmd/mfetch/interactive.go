package mfetch

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/meza/manifest-fetcher/cmd/mfetch/common"
	"github.com/meza/manifest-fetcher/internal/constants"
	"github.com/meza/manifest-fetcher/internal/environment"
	"github.com/meza/manifest-fetcher/internal/gamesearch"
	"github.com/meza/manifest-fetcher/internal/i18n"
	"github.com/meza/manifest-fetcher/internal/logger"
	"github.com/meza/manifest-fetcher/internal/perf"
	"github.com/meza/manifest-fetcher/internal/session"
	"github.com/meza/manifest-fetcher/internal/tui"
	"github.com/meza/manifest-fetcher/internal/walker"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

const bannerFallbackWidth = 60

func runRoot(cmd *cobra.Command, deps rootDeps) error {
	if !deps.interactive(cmd) {
		return cmd.Help()
	}

	opts, err := common.ReadOptions(cmd)
	if err != nil {
		return err
	}
	log := opts.Logger(cmd)

	cfg, err := common.LoadConfig(deps.fs, opts)
	if err != nil {
		return err
	}
	fetchSession, err := deps.newSession(cfg, deps.fs, log)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true
	log.Log(tui.Banner(constants.CommandName, environment.AppVersion(), tui.Width(cmd.OutOrStdout(), bannerFallbackWidth)), false)
	return interactiveLoop(cmd.Context(), log, fetchSession, deps.newPrompter(cmd))
}

// interactiveLoop keeps asking for games until the user interrupts or input ends. Every other
// failure is reported and the loop carries on.
func interactiveLoop(ctx context.Context, log *logger.Logger, fetchSession *session.Session, prompter Prompter) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := prompter.Input(i18n.T("prompt.input"))
		if isEndOfInput(err) {
			log.Log(i18n.T("prompt.bye"), false)
			return nil
		}
		if err != nil {
			log.Error(common.ErrorLine(err))
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if err := fetchOne(ctx, log, fetchSession, prompter, input); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isEndOfInput(err) {
				log.Log(i18n.T("prompt.bye"), false)
				return nil
			}
			log.Error(common.ErrorLine(err))
		}
		log.Log("", false)
	}
}

func fetchOne(ctx context.Context, log *logger.Logger, fetchSession *session.Session, prompter Prompter, input string) error {
	ctx, span := perf.StartSpan(ctx, "app.interactive.fetch", perf.WithAttributes(attribute.String("input", input)))
	defer span.End()

	game, err := fetchSession.Resolve(ctx, input, func(games []gamesearch.Game) (int, error) {
		return prompter.Select(i18n.T("prompt.choose"), gameOptions(games))
	})
	if err != nil {
		if errors.Is(err, session.ErrNoGames) {
			return errors.New(i18n.Td("prompt.no_games", i18n.TData{"input": input}))
		}
		return err
	}

	log.Log(i18n.Td("prompt.selected", i18n.TData{"appid": string(game.AppID), "name": game.DisplayName()}), false)

	report, err := fetchSession.Fetch(ctx, string(game.AppID), game.DisplayName())
	span.SetAttributes(attribute.Bool("success", err == nil))
	if err != nil {
		if errors.Is(err, walker.ErrAllRepositoriesExhausted) {
			return errors.New(i18n.Td("fetch.not_found", i18n.TData{"appid": string(game.AppID)}))
		}
		return err
	}

	common.PrintReport(log, report)
	return nil
}

func gameOptions(games []gamesearch.Game) []string {
	options := make([]string, 0, len(games))
	for _, game := range games {
		options = append(options, string(game.AppID)+"  "+game.DisplayName())
	}
	return options
}

func isEndOfInput(err error) bool {
	return errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF)
}
