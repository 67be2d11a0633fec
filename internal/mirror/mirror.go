// Package mirror fetches repository files at a fixed commit through an ordered list of CDN mirrors.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/meza/manifest-fetcher/internal/httpclient"
	"github.com/meza/manifest-fetcher/internal/models"
	"github.com/meza/manifest-fetcher/internal/observer"
	"github.com/meza/manifest-fetcher/internal/perf"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff = 3 * time.Second
)

// DefaultTemplates lists CDN mirrors first and raw-content proxies last.
// Placeholders: {repo} (owner/name), {owner}, {name}, {sha}, {path}.
var DefaultTemplates = []string{
	"https://gcore.jsdelivr.net/gh/{repo}@{sha}/{path}",
	"https://fastly.jsdelivr.net/gh/{repo}@{sha}/{path}",
	"https://cdn.jsdelivr.net/gh/{repo}@{sha}/{path}",
	"https://ghproxy.org/https://raw.githubusercontent.com/{repo}/{sha}/{path}",
	"https://raw.dgithub.xyz/{repo}/{sha}/{path}",
}

type Config struct {
	// MaxRetries is the number of full sweeps over Templates.
	MaxRetries int
	Templates  []string
	// Backoff is multiplied by the number of failed sweeps, capped at MaxBackoff.
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	templates := make([]string, len(DefaultTemplates))
	copy(templates, DefaultTemplates)
	return Config{
		MaxRetries:     DefaultMaxRetries,
		Templates:      templates,
		Backoff:        DefaultBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		RequestTimeout: httpclient.DefaultDownloadTimeout,
	}
}

var (
	ErrNotFound  = errors.New("file not found on any mirror")
	ErrEmptyPath = errors.New("empty path")
)

// ExhaustedError is returned once every sweep failed. It matches ErrNotFound.
type ExhaustedError struct {
	Repository models.Repository
	Commit     string
	Path       string
	Attempts   int
	LastErr    error
}

func (exhausted *ExhaustedError) Error() string {
	return fmt.Sprintf("exceeded retries for %s in %s@%s after %d requests", exhausted.Path, exhausted.Repository, exhausted.Commit, exhausted.Attempts)
}

func (exhausted *ExhaustedError) Is(target error) bool {
	return target == ErrNotFound
}

func (exhausted *ExhaustedError) Unwrap() error {
	return exhausted.LastErr
}

type Fetcher struct {
	client   httpclient.Doer
	config   Config
	observer observer.Observer
	sleep    func(context.Context, time.Duration) error
}

// NewFetcher takes a client that must not retry by itself; the sweep budget is the only retry
// mechanism.
func NewFetcher(client httpclient.Doer, config Config, obs observer.Observer) *Fetcher {
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if len(config.Templates) == 0 {
		config.Templates = DefaultConfig().Templates
	}
	if config.MaxBackoff > 0 && config.Backoff > config.MaxBackoff {
		config.Backoff = config.MaxBackoff
	}
	return &Fetcher{
		client:   client,
		config:   config,
		observer: observer.OrNop(obs),
		sleep:    httpclient.Sleep,
	}
}

// URLs renders every template for one (repository, commit, path) triple, in priority order.
func (fetcher *Fetcher) URLs(repo models.Repository, commit string, path string) []string {
	replacer := strings.NewReplacer(
		"{repo}", repo.String(),
		"{owner}", repo.Owner,
		"{name}", repo.Name,
		"{sha}", commit,
		"{path}", escapePath(path),
	)

	urls := make([]string, 0, len(fetcher.config.Templates))
	for _, template := range fetcher.config.Templates {
		urls = append(urls, replacer.Replace(template))
	}
	return urls
}

// Fetch returns the body of the first mirror answering 2xx.
func (fetcher *Fetcher) Fetch(ctx context.Context, repo models.Repository, commit string, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	ctx, span := perf.StartSpan(ctx, "mirror.fetch",
		perf.WithAttributes(
			attribute.String("repo", repo.String()),
			attribute.String("sha", commit),
			attribute.String("path", path),
		),
	)
	defer span.End()

	urls := fetcher.URLs(repo, commit, path)
	attempts := 0
	var lastErr error

	for sweep := 1; sweep <= fetcher.config.MaxRetries; sweep++ {
		for _, mirrorURL := range urls {
			attempts++
			payload, err := fetcher.fetchOne(ctx, mirrorURL)
			if err == nil {
				span.SetAttributes(attribute.Bool("success", true), attribute.Int("attempts", attempts))
				return payload, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return nil, ctxErr
			}
			lastErr = err
			fetcher.observer.Observe(attemptEvent(repo, path, mirrorURL, err))
		}

		retriesLeft := fetcher.config.MaxRetries - sweep
		if retriesLeft == 0 {
			break
		}
		fetcher.observer.Observe(observer.Event{
			Kind:        observer.MirrorRetry,
			Repository:  repo.String(),
			Path:        path,
			RetriesLeft: retriesLeft,
		})
		if err := fetcher.sleep(ctx, fetcher.backoff(sweep)); err != nil {
			span.SetAttributes(attribute.Bool("success", false))
			return nil, err
		}
	}

	span.SetAttributes(attribute.Bool("success", false), attribute.Int("attempts", attempts))
	exhausted := &ExhaustedError{
		Repository: repo,
		Commit:     commit,
		Path:       path,
		Attempts:   attempts,
		LastErr:    lastErr,
	}
	fetcher.observer.Observe(observer.Event{
		Kind:       observer.MirrorExhausted,
		Repository: repo.String(),
		Path:       path,
		Err:        exhausted,
	})
	return nil, exhausted
}

func (fetcher *Fetcher) fetchOne(ctx context.Context, mirrorURL string) ([]byte, error) {
	if timeout := httpclient.RequestBudget(ctx, fetcher.config.RequestTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = httpclient.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return httpclient.FetchBytes(ctx, fetcher.client, mirrorURL)
}

func (fetcher *Fetcher) backoff(failedSweeps int) time.Duration {
	wait := time.Duration(failedSweeps) * fetcher.config.Backoff
	if fetcher.config.MaxBackoff > 0 && wait > fetcher.config.MaxBackoff {
		return fetcher.config.MaxBackoff
	}
	return wait
}

func attemptEvent(repo models.Repository, path string, mirrorURL string, err error) observer.Event {
	event := observer.Event{
		Kind:       observer.MirrorAttemptFailed,
		Repository: repo.String(),
		Path:       path,
		URL:        mirrorURL,
		Err:        err,
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		event.Status = statusErr.StatusCode
	}
	return event
}

func escapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for index, segment := range segments {
		segments[index] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
