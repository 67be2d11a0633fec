// Package walker probes the configured repositories in priority order until one of them publishes
// depot keys for the requested app, then pulls that branch's manifests into a working directory.
package walker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meza/manifest-fetcher/internal/artifact"
	"github.com/meza/manifest-fetcher/internal/branch"
	"github.com/meza/manifest-fetcher/internal/httpclient"
	"github.com/meza/manifest-fetcher/internal/keyfile"
	"github.com/meza/manifest-fetcher/internal/models"
	"github.com/meza/manifest-fetcher/internal/observer"
	"github.com/meza/manifest-fetcher/internal/perf"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 4
	manifestSuffix = ".manifest"
)

var (
	ErrAllRepositoriesExhausted = errors.New("no repository published depot keys")
	ErrInvalidAppID             = errors.New("invalid app id")
)

type Repository = models.Repository

type BranchResolver interface {
	Resolve(ctx context.Context, repo models.Repository, branchName string) (branch.Resolution, error)
}

type FileFetcher interface {
	Fetch(ctx context.Context, repo models.Repository, commit string, path string) ([]byte, error)
}

type ArtifactStore interface {
	Exists(dir string, name string) (bool, error)
	Save(dir string, name string, data []byte) (artifact.Outcome, error)
}

type Options struct {
	Workers  int
	Observer observer.Observer
}

type Result struct {
	Depots     []keyfile.DepotRecord
	WorkDir    string
	Repository Repository
	CommitDate time.Time
	// Manifests lists the manifest names present in WorkDir after the walk, sorted.
	Manifests []string
	Saved     int
	Skipped   int
	Failed    int
}

type Walker struct {
	repositories []Repository
	resolver     BranchResolver
	fetcher      FileFetcher
	store        ArtifactStore
	workers      int
	observer     observer.Observer
}

// New copies repositories; later changes to the caller's slice do not affect the walker.
func New(repositories []Repository, resolver BranchResolver, fetcher FileFetcher, store ArtifactStore, opts Options) *Walker {
	repos := make([]Repository, len(repositories))
	copy(repos, repositories)

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Walker{
		repositories: repos,
		resolver:     resolver,
		fetcher:      fetcher,
		store:        store,
		workers:      workers,
		observer:     observer.OrNop(opts.Observer),
	}
}

func (walker *Walker) Repositories() []Repository {
	out := make([]Repository, len(walker.repositories))
	copy(out, walker.repositories)
	return out
}

// NormalizeAppID returns the first all-decimal segment of a dash separated identifier.
func NormalizeAppID(raw string) (string, error) {
	for _, segment := range strings.Split(strings.TrimSpace(raw), "-") {
		segment = strings.TrimSpace(segment)
		if isDecimal(segment) {
			return segment, nil
		}
	}
	return "", fmt.Errorf("%q: %w", raw, ErrInvalidAppID)
}

func isDecimal(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (walker *Walker) Walk(ctx context.Context, branchName string, workDir string) (Result, error) {
	appID, err := NormalizeAppID(branchName)
	if err != nil {
		return Result{}, err
	}

	ctx, span := perf.StartSpan(ctx, "walker.walk",
		perf.WithAttributes(attribute.String("branch", appID)),
	)
	defer span.End()

	for _, repo := range walker.repositories {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		result, found, err := walker.tryRepository(ctx, repo, appID, workDir)
		if err != nil {
			span.SetAttributes(attribute.Bool("success", false))
			return Result{}, err
		}
		if found {
			span.SetAttributes(
				attribute.Bool("success", true),
				attribute.String("repo", repo.String()),
				attribute.Int("depots", len(result.Depots)),
			)
			return result, nil
		}
	}

	walker.observer.Observe(observer.Event{Kind: observer.RepositoriesExhausted, Branch: appID})
	span.SetAttributes(attribute.Bool("success", false))
	return Result{WorkDir: workDir}, fmt.Errorf("app %s: %w", appID, ErrAllRepositoriesExhausted)
}

// tryRepository returns found=false for every per-repository failure; only context errors abort.
func (walker *Walker) tryRepository(ctx context.Context, repo Repository, appID string, workDir string) (Result, bool, error) {
	ctx, span := perf.StartSpan(ctx, "walker.repository",
		perf.WithAttributes(attribute.String("repo", repo.String())),
	)
	defer span.End()

	resolution, err := walker.resolver.Resolve(ctx, repo, appID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, false, ctxErr
		}
		kind := observer.BranchLookupFailed
		if errors.Is(err, branch.ErrNotFound) {
			kind = observer.BranchMissing
		}
		walker.observer.Observe(observer.Event{Kind: kind, Repository: repo.String(), Branch: appID, Err: err})
		return Result{}, false, nil
	}
	walker.observer.Observe(observer.Event{
		Kind:       observer.BranchResolved,
		Repository: repo.String(),
		Branch:     appID,
		CommitDate: resolution.CommitDate,
	})

	depots, err := walker.fetchDepots(ctx, repo, resolution)
	if err != nil {
		return Result{}, false, err
	}
	if len(depots) == 0 {
		walker.observer.Observe(observer.Event{Kind: observer.RepositoryEmpty, Repository: repo.String(), Branch: appID})
		return Result{}, false, nil
	}

	result := Result{
		Depots:     depots,
		WorkDir:    workDir,
		Repository: repo,
		CommitDate: resolution.CommitDate,
	}
	if err := walker.fetchManifests(ctx, repo, resolution, &result); err != nil {
		return Result{}, false, err
	}

	walker.observer.Observe(observer.Event{
		Kind:       observer.RepositoryWon,
		Repository: repo.String(),
		Branch:     appID,
		Depots:     len(depots),
		CommitDate: resolution.CommitDate,
	})
	return result, true, nil
}

// fetchDepots tries each key file candidate in order and stops at the first that yields records.
// Key files only live in memory.
func (walker *Walker) fetchDepots(ctx context.Context, repo Repository, resolution branch.Resolution) ([]keyfile.DepotRecord, error) {
	keyCtx := httpclient.WithRequestBudget(ctx, httpclient.DefaultMetadataTimeout)

	for _, name := range keyfile.CandidateNames() {
		payload, err := walker.fetcher.Fetch(keyCtx, repo, resolution.CommitSHA, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}

		depots, err := keyfile.Decode(payload)
		if err != nil {
			walker.observer.Observe(observer.Event{Kind: observer.KeyFileMalformed, Repository: repo.String(), Path: name, Err: err})
			continue
		}
		walker.observer.Observe(observer.Event{Kind: observer.KeyFileDecoded, Repository: repo.String(), Path: name, Depots: len(depots)})
		if len(depots) > 0 {
			return depots, nil
		}
	}
	return nil, nil
}

func (walker *Walker) fetchManifests(ctx context.Context, repo Repository, resolution branch.Resolution, result *Result) error {
	names := resolution.Files(manifestSuffix)

	var mu sync.Mutex
	present := make([]string, 0, len(names))
	record := func(name string, outcome *artifact.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		if outcome == nil {
			result.Failed++
			return
		}
		present = append(present, name)
		if *outcome == artifact.Written {
			result.Saved++
		} else {
			result.Skipped++
		}
	}

	group := new(errgroup.Group)
	group.SetLimit(walker.workers)

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			outcome, err := walker.fetchManifest(ctx, repo, resolution.CommitSHA, result.WorkDir, name)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				walker.observer.Observe(observer.Event{Kind: observer.ManifestFailed, Repository: repo.String(), Path: name, Err: err})
				record(name, nil)
				return nil
			}
			record(name, &outcome)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sort.Strings(present)
	result.Manifests = present
	return nil
}

func (walker *Walker) fetchManifest(ctx context.Context, repo Repository, commit string, workDir string, name string) (artifact.Outcome, error) {
	exists, err := walker.store.Exists(workDir, name)
	if err != nil {
		return artifact.Skipped, err
	}
	if exists {
		walker.observer.Observe(observer.Event{Kind: observer.ManifestSkipped, Repository: repo.String(), Path: name})
		return artifact.Skipped, nil
	}

	payload, err := walker.fetcher.Fetch(ctx, repo, commit, name)
	if err != nil {
		return artifact.Skipped, err
	}

	outcome, err := walker.store.Save(workDir, name, payload)
	if err != nil {
		return artifact.Skipped, err
	}
	kind := observer.ManifestSaved
	if outcome == artifact.Skipped {
		kind = observer.ManifestSkipped
	}
	walker.observer.Observe(observer.Event{Kind: kind, Repository: repo.String(), Path: name})
	return outcome, nil
}
