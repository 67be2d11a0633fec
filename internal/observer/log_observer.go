package observer

import (
	"time"

	"github.com/meza/manifest-fetcher/internal/logger"
)

type logObserver struct {
	log *logger.Logger
}

// NewLogObserver renders events through the structured logger.
func NewLogObserver(log *logger.Logger) Observer {
	if log == nil {
		return Nop()
	}
	return logObserver{log: log}
}

func (obs logObserver) Observe(event Event) {
	switch event.Kind {
	case BranchMissing:
		obs.log.Warn("branch not found, moving on", "repo", event.Repository, "branch", event.Branch)
	case BranchLookupFailed:
		obs.log.Warn("branch lookup failed, moving on", "repo", event.Repository, "branch", event.Branch, "err", errText(event.Err))
	case BranchResolved:
		obs.log.Info("branch found", "repo", event.Repository, "branch", event.Branch, "updated", event.CommitDate.Format(time.RFC3339))
	case MirrorAttemptFailed:
		if event.Status != 0 {
			obs.log.Debug("mirror failed", "path", event.Path, "url", event.URL, "status", event.Status)
			return
		}
		obs.log.Debug("mirror failed", "path", event.Path, "url", event.URL, "err", errText(event.Err))
	case MirrorRetry:
		obs.log.Warn("all mirrors failed, retrying", "path", event.Path, "retries_left", event.RetriesLeft)
	case MirrorExhausted:
		obs.log.Errorw("exceeded retries", "path", event.Path, "repo", event.Repository)
	case KeyFileDecoded:
		obs.log.Info("key file downloaded", "path", event.Path, "depots", event.Depots)
	case KeyFileMalformed:
		obs.log.Errorw("key file is malformed", "path", event.Path, "repo", event.Repository, "err", errText(event.Err))
	case ManifestSkipped:
		obs.log.Warn("manifest exists", "path", event.Path)
	case ManifestSaved:
		obs.log.Info("manifest downloaded", "path", event.Path)
	case ManifestFailed:
		obs.log.Errorw("manifest failed", "path", event.Path, "err", errText(event.Err))
	case RepositoryWon:
		obs.log.Info("stored", "branch", event.Branch, "repo", event.Repository, "depots", event.Depots, "updated", event.CommitDate.Format(time.RFC3339))
	case RepositoryEmpty:
		obs.log.Warn("no depot keys in repo, moving on", "repo", event.Repository, "branch", event.Branch)
	case RepositoriesExhausted:
		obs.log.Errorw("manifest download failed in all repos", "branch", event.Branch)
	default:
		obs.log.Debug(string(event.Kind), "repo", event.Repository, "path", event.Path)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
