package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/predictionlabs/prediction-oracle/pkg/config"
	"github.com/predictionlabs/prediction-oracle/pkg/market"
)

const (
	maxErrBodyBytes = 4096
	// gammaMaxRetries bounds retries per request on top of the client timeout.
	gammaMaxRetries = 3
)

// ErrEventNotFound is returned when Gamma has no event for the requested id.
var ErrEventNotFound = errors.New("event not found")

// Client fetches events from Polymarket's Gamma API.
type Client struct {
	cfg        config.CrawlerConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Gamma client from config. A nil logger is replaced with
// a no-op.
func NewClient(cfg config.CrawlerConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// FetchPage fetches one page of active events ordered by volume descending.
// Malformed events are skipped rather than failing the page.
func (c *Client) FetchPage(ctx context.Context, limit, offset int) ([]*market.Event, error) {
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("order", "volume")
	params.Set("ascending", "false")

	raws, err := c.getEvents(ctx, params)
	if err != nil {
		return nil, err
	}

	events := make([]*market.Event, 0, len(raws))
	for _, raw := range raws {
		ev, err := market.ParseEvent(raw)
		if err != nil {
			c.logger.Warn("skipping malformed event payload", zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// FetchEventByID looks up a single event. Gamma answers id queries with an
// array; an empty one means the event no longer exists upstream.
func (c *Client) FetchEventByID(ctx context.Context, polymarketID string) (*market.Event, error) {
	params := url.Values{}
	params.Set("id", polymarketID)

	raws, err := c.getEvents(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, ErrEventNotFound
	}
	ev, err := market.ParseEvent(raws[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse event %s: %w", polymarketID, err)
	}
	return ev, nil
}

func (c *Client) getEvents(ctx context.Context, params url.Values) ([]json.RawMessage, error) {
	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/events?" + params.Encode()

	var raws []json.RawMessage
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("gamma request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
			err := fmt.Errorf("gamma returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
			// Client errors other than rate limiting will not heal on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		var page []json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return fmt.Errorf("failed to decode gamma response: %w", err)
		}
		raws = page
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), gammaMaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return raws, nil
}

// CardStatus is the live Gamma view of one stored card.
type CardStatus struct {
	PolymarketID string
	Active       bool
	Closed       bool
	Archived     bool
	Found        bool
}

// FetchStatuses looks up the live state of every card, pacing requests by
// delay to stay under Gamma rate limits. Lookup failures mark the card as not
// found instead of aborting the scan.
func (c *Client) FetchStatuses(ctx context.Context, cards []*market.Card, delay time.Duration) (map[string]CardStatus, error) {
	statuses := make(map[string]CardStatus, len(cards))
	for i, card := range cards {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		ev, err := c.FetchEventByID(ctx, card.PolymarketID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !errors.Is(err, ErrEventNotFound) {
				c.logger.Warn("status lookup failed", zap.String("polymarket_id", card.PolymarketID), zap.Error(err))
			}
			statuses[card.PolymarketID] = CardStatus{PolymarketID: card.PolymarketID}
			continue
		}

		statuses[card.PolymarketID] = CardStatus{
			PolymarketID: card.PolymarketID,
			Active:       ev.IsActive(),
			Closed:       ev.Closed != nil && *ev.Closed,
			Archived:     ev.Archived != nil && *ev.Archived,
			Found:        true,
		}
	}
	return statuses, nil
}
