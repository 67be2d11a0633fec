package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/meza/manifest-fetcher/internal/gamesearch"
	"github.com/meza/manifest-fetcher/internal/walker"
)

var ErrNoGames = errors.New("no games found")

// Pick chooses between several search hits and returns the chosen index.
type Pick func(games []gamesearch.Game) (int, error)

// Resolve turns user input into an app id and display name. A single hit is taken as is, several
// hits go through pick. A numeric input with no hits, or a failed search, falls back to the input
// itself as both id and name.
func (session *Session) Resolve(ctx context.Context, input string, pick Pick) (gamesearch.Game, error) {
	numericID, numericErr := walker.NormalizeAppID(input)
	numeric := numericErr == nil && numericID == input

	games, err := session.searcher.Search(ctx, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return gamesearch.Game{}, ctxErr
		}
		if numeric {
			return gamesearch.Game{AppID: gamesearch.AppID(input), Name: input}, nil
		}
		return gamesearch.Game{}, err
	}

	switch len(games) {
	case 0:
		if numeric {
			return gamesearch.Game{AppID: gamesearch.AppID(input), Name: input}, nil
		}
		return gamesearch.Game{}, fmt.Errorf("%q: %w", input, ErrNoGames)
	case 1:
		return games[0], nil
	}

	index, err := pick(games)
	if err != nil {
		return gamesearch.Game{}, err
	}
	if index < 0 || index >= len(games) {
		return gamesearch.Game{}, fmt.Errorf("choice %d out of range", index+1)
	}
	return games[index], nil
}
