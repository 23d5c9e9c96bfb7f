package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// maxKeySetBytes bounds the size of the key set document read from the
// network.
const maxKeySetBytes = 1 << 20 // 1 MiB

// KeySetFetcher retrieves the current set of published signing keys. Each call
// reads the source exactly once: retries are the responsibility of the caller.
type KeySetFetcher func(ctx context.Context) ([]SigningKey, error)

// Remote returns a fetcher that performs a single GET of the JWKS endpoint at
// url. The timeout of the request is governed by the supplied client.
func Remote(client *http.Client, url string) KeySetFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context) ([]SigningKey, error) {
		logger := zerolog.Ctx(ctx)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: could not create request: %w", ErrKeySetUnavailable, err)
		}
		req.Header.Set("Accept", "application/json")

		logger.Info().Str("url", url).Msg("fetching key set")
		start := time.Now()

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			// drain a little so the connection can be reused
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrKeySetUnavailable, resp.StatusCode, url)
		}

		var set KeySet
		err = json.NewDecoder(io.LimitReader(resp.Body, maxKeySetBytes)).Decode(&set)
		if err != nil {
			return nil, fmt.Errorf("%w: could not decode key set: %w", ErrKeySetUnavailable, err)
		}

		logger.Info().
			Int("keys", len(set.Keys)).
			Dur("duration", time.Since(start)).
			Msg("key set downloaded")

		if len(set.Keys) == 0 {
			return nil, ErrKeySetEmpty
		}

		return set.Keys, nil
	}
}

// Static returns a fetcher that serves the key set supplied as a JSON document.
// The document is parsed once, and an unparseable document is reported
// immediately rather than on each fetch.
func Static(document string) (KeySetFetcher, error) {
	var set KeySet
	if err := json.Unmarshal([]byte(document), &set); err != nil {
		return nil, fmt.Errorf("static key set could not be parsed: %w", err)
	}

	return func(ctx context.Context) ([]SigningKey, error) {
		if len(set.Keys) == 0 {
			return nil, ErrKeySetEmpty
		}

		keys := make([]SigningKey, len(set.Keys))
		copy(keys, set.Keys)

		return keys, nil
	}, nil
}
