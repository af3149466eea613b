package refresh

import "github.com/joescharf/prstats/internal/models"

// Decision says where a pull request's reviews come from during a run.
type Decision int

const (
	// UseCache trusts the cached review set.
	UseCache Decision = iota
	// FetchRemote refetches reviews and writes them through the cache.
	FetchRemote
)

func (d Decision) String() string {
	switch d {
	case UseCache:
		return "cache"
	case FetchRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Decide applies the freshness policy. Reviews of a closed pull request are
// assumed immutable, so a non-empty cached set is authoritative. Open pull
// requests, and closed ones with nothing cached, are always refetched.
//
// A closed pull request that is reopened and reviewed again keeps serving its
// old cached set until InvalidateReviews is called for it.
func Decide(pr *models.PullRequest, cachedReviews int) Decision {
	if pr.IsClosed() && cachedReviews > 0 {
		return UseCache
	}
	return FetchRemote
}
