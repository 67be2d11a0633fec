package gamesearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/meza/manifest-fetcher/internal/httpclient"
	"github.com/meza/manifest-fetcher/internal/perf"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// AppID accepts both JSON strings and numbers.
type AppID string

func (id *AppID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*id = AppID(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return errors.Wrap(err, "appid is neither a string nor a number")
	}
	*id = AppID(number.String())
	return nil
}

type Game struct {
	AppID         AppID  `json:"appid"`
	Name          string `json:"name"`
	LocalizedName string `json:"schinese_name"`
}

// DisplayName prefers the localized name.
func (game Game) DisplayName() string {
	if name := strings.TrimSpace(game.LocalizedName); name != "" {
		return name
	}
	return strings.TrimSpace(game.Name)
}

type searchResponse struct {
	Games []Game `json:"games"`
}

type APIError struct {
	Term       string
	StatusCode int
	Err        error
}

func (apiErr *APIError) Error() string {
	return fmt.Sprintf("game search for %q failed: %v", apiErr.Term, apiErr.Err)
}

func (apiErr *APIError) Unwrap() error {
	return apiErr.Err
}

func (searchClient *Client) Search(ctx context.Context, term string) ([]Game, error) {
	ctx, span := perf.StartSpan(ctx, "gamesearch.search", perf.WithAttributes(attribute.String("term", term)))
	defer span.End()

	ctx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()

	searchURL := fmt.Sprintf("%s/loadGames.php?search=%s", searchClient.baseURL, url.QueryEscape(term))
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, &APIError{Term: term, Err: errors.Wrap(err, "failed to build request")}
	}

	response, err := searchClient.Do(request)
	if err != nil {
		return nil, &APIError{Term: term, Err: httpclient.WrapTimeoutError(request, err)}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.Int("status", response.StatusCode))
		return nil, &APIError{Term: term, StatusCode: response.StatusCode, Err: errors.Errorf("unexpected status code: %d", response.StatusCode)}
	}

	var result searchResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, &APIError{Term: term, StatusCode: response.StatusCode, Err: errors.Wrap(err, "failed to decode response body")}
	}

	games := make([]Game, 0, len(result.Games))
	for _, game := range result.Games {
		if game.AppID == "" {
			continue
		}
		games = append(games, game)
	}

	span.SetAttributes(attribute.Int("results", len(games)))
	return games, nil
}
