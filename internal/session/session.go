// Package session wires the fetch pipeline from configuration and runs one fetch per app id.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/meza/manifest-fetcher/internal/artifact"
	"github.com/meza/manifest-fetcher/internal/branch"
	"github.com/meza/manifest-fetcher/internal/config"
	"github.com/meza/manifest-fetcher/internal/gamesearch"
	"github.com/meza/manifest-fetcher/internal/httpclient"
	"github.com/meza/manifest-fetcher/internal/logger"
	"github.com/meza/manifest-fetcher/internal/luascript"
	"github.com/meza/manifest-fetcher/internal/mirror"
	"github.com/meza/manifest-fetcher/internal/observer"
	"github.com/meza/manifest-fetcher/internal/perf"
	"github.com/meza/manifest-fetcher/internal/walker"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

type Walker interface {
	Walk(ctx context.Context, branchName string, workDir string) (walker.Result, error)
}

type Searcher interface {
	Search(ctx context.Context, term string) ([]gamesearch.Game, error)
}

type Session struct {
	fs       afero.Fs
	walker   Walker
	searcher Searcher
	outDir   string
}

type Report struct {
	AppID      string
	Name       string
	WorkDir    string
	ScriptPath string
	Result     walker.Result
}

func NewSession(fs afero.Fs, w Walker, searcher Searcher, outDir string) *Session {
	if outDir == "" {
		outDir = "."
	}
	return &Session{fs: fs, walker: w, searcher: searcher, outDir: outDir}
}

// New builds the production pipeline for cfg. Diagnostics go to log.
func New(cfg config.Config, fs afero.Fs, log *logger.Logger) (*Session, error) {
	repos, err := cfg.ParsedRepositories()
	if err != nil {
		return nil, err
	}

	limiter := newLimiter(cfg.RequestsPerSecond)
	obs := observer.NewLogObserver(log)

	resolver, err := branch.NewResolver(httpclient.NewRLClient(limiter), cfg.APIBaseURL)
	if err != nil {
		return nil, err
	}

	mirrorClient := httpclient.NewInsecureRLClient(limiter)
	mirrorClient.RetryConfig = httpclient.NoRetries()
	fetcher := mirror.NewFetcher(mirrorClient, cfg.MirrorConfig(), obs)

	w := walker.New(repos, resolver, fetcher, artifact.NewWriter(fs), walker.Options{
		Workers:  cfg.Workers,
		Observer: obs,
	})
	searcher := gamesearch.NewClient(httpclient.NewRLClient(limiter), cfg.SearchBaseURL)

	return NewSession(fs, w, searcher, cfg.OutputDir), nil
}

func newLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (session *Session) Search(ctx context.Context, term string) ([]gamesearch.Game, error) {
	return session.searcher.Search(ctx, term)
}

// Fetch walks the repositories for appID, stores manifests under the game's working directory and
// writes the loader script next to them.
func (session *Session) Fetch(ctx context.Context, appID string, name string) (Report, error) {
	normalized, err := walker.NormalizeAppID(appID)
	if err != nil {
		return Report{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = normalized
	}

	ctx, span := perf.StartSpan(ctx, "session.fetch", perf.WithAttributes(attribute.String("appid", normalized)))
	defer span.End()

	workDir := filepath.Join(session.outDir, WorkDirName(normalized, name))
	report := Report{AppID: normalized, Name: name, WorkDir: workDir}

	result, err := session.walker.Walk(ctx, normalized, workDir)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return report, err
	}
	report.Result = result

	scriptPath, err := luascript.Write(session.fs, workDir, normalized, result.Depots)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return report, fmt.Errorf("failed to write loader script: %w", err)
	}
	report.ScriptPath = scriptPath

	span.SetAttributes(attribute.Bool("success", true))
	return report, nil
}

// WorkDirName returns "[appid]name" with characters that common filesystems reject replaced by '_'.
func WorkDirName(appID string, name string) string {
	return "[" + appID + "]" + sanitize(name)
}

func sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	return strings.TrimRight(cleaned, ". ")
}
