// Package branch resolves the head commit and top-level file tree of a repository branch.
package branch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
	"github.com/meza/manifest-fetcher/internal/httpclient"
	"github.com/meza/manifest-fetcher/internal/models"
	"github.com/meza/manifest-fetcher/internal/perf"
	"go.opentelemetry.io/otel/attribute"
)

const maxRedirects = 3

var ErrNotFound = errors.New("branch not found")

type EntryKind string

const (
	KindFile  EntryKind = "file"
	KindOther EntryKind = "other"
)

type TreeEntry struct {
	Path string
	Kind EntryKind
}

type Resolution struct {
	CommitSHA  string
	TreeSHA    string
	TreeURL    string
	CommitDate time.Time
	Entries    []TreeEntry
}

// Files returns the paths of file entries, optionally filtered by suffix.
func (resolution Resolution) Files(suffix string) []string {
	var out []string
	for _, entry := range resolution.Entries {
		if entry.Kind != KindFile {
			continue
		}
		if suffix != "" && !strings.HasSuffix(entry.Path, suffix) {
			continue
		}
		out = append(out, entry.Path)
	}
	return out
}

// APIError reports a hosting API failure other than a missing branch.
type APIError struct {
	Repository models.Repository
	Branch     string
	StatusCode int
	Err        error
}

func (apiErr *APIError) Error() string {
	if apiErr.StatusCode != 0 {
		return fmt.Sprintf("branch lookup for %s@%s failed with status %d: %v", apiErr.Repository, apiErr.Branch, apiErr.StatusCode, apiErr.Err)
	}
	return fmt.Sprintf("branch lookup for %s@%s failed: %v", apiErr.Repository, apiErr.Branch, apiErr.Err)
}

func (apiErr *APIError) Unwrap() error {
	return apiErr.Err
}

type Resolver struct {
	client *github.Client
}

// NewResolver builds a resolver on top of the given HTTP client. An empty baseURL keeps the public
// API endpoint.
func NewResolver(client httpclient.Doer, baseURL string) (*Resolver, error) {
	ghClient := github.NewClient(httpclient.NewStdClient(client))
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
		}
		ghClient.BaseURL = parsed
	}
	return &Resolver{client: ghClient}, nil
}

func (resolver *Resolver) Resolve(ctx context.Context, repo models.Repository, branchName string) (Resolution, error) {
	ctx, span := perf.StartSpan(ctx, "branch.resolve",
		perf.WithAttributes(
			attribute.String("repo", repo.String()),
			attribute.String("branch", branchName),
		),
	)
	defer span.End()

	head, err := resolver.getBranch(ctx, repo, branchName)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return Resolution{}, err
	}

	commit := head.GetCommit()
	if commit == nil || commit.GetSHA() == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return Resolution{}, fmt.Errorf("%s@%s has no commit: %w", repo, branchName, ErrNotFound)
	}

	resolution := Resolution{
		CommitSHA:  commit.GetSHA(),
		TreeSHA:    commit.GetCommit().GetTree().GetSHA(),
		CommitDate: commit.GetCommit().GetAuthor().GetDate().Time,
	}
	if resolution.TreeSHA == "" {
		// Some proxies strip the nested tree; the commit id addresses the same tree.
		resolution.TreeSHA = resolution.CommitSHA
	}
	resolution.TreeURL = resolver.treeURL(repo, resolution.TreeSHA)

	entries, err := resolver.getTree(ctx, repo, branchName, resolution.TreeSHA)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return Resolution{}, err
	}
	resolution.Entries = entries

	span.SetAttributes(attribute.Bool("success", true), attribute.Int("entries", len(entries)))
	return resolution, nil
}

func (resolver *Resolver) getBranch(ctx context.Context, repo models.Repository, branchName string) (*github.Branch, error) {
	ctx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()

	head, resp, err := resolver.client.Repositories.GetBranch(ctx, repo.Owner, repo.Name, branchName, maxRedirects)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s@%s: %w", repo, branchName, ErrNotFound)
		}
		return nil, newAPIError(repo, branchName, resp, err)
	}
	return head, nil
}

func (resolver *Resolver) getTree(ctx context.Context, repo models.Repository, branchName string, treeSHA string) ([]TreeEntry, error) {
	ctx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()

	tree, resp, err := resolver.client.Git.GetTree(ctx, repo.Owner, repo.Name, treeSHA, false)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("tree %s of %s: %w", treeSHA, repo, ErrNotFound)
		}
		return nil, newAPIError(repo, branchName, resp, err)
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		kind := KindOther
		if entry.GetType() == "blob" {
			kind = KindFile
		}
		entries = append(entries, TreeEntry{Path: entry.GetPath(), Kind: kind})
	}
	return entries, nil
}

func (resolver *Resolver) treeURL(repo models.Repository, treeSHA string) string {
	return fmt.Sprintf("%srepos/%s/%s/git/trees/%s", resolver.client.BaseURL.String(), repo.Owner, repo.Name, treeSHA)
}

func newAPIError(repo models.Repository, branchName string, resp *github.Response, err error) *APIError {
	apiErr := &APIError{
		Repository: repo,
		Branch:     branchName,
		Err:        httpclient.WrapTimeoutError(nil, err),
	}
	if resp != nil {
		apiErr.StatusCode = resp.StatusCode
	}
	return apiErr
}
