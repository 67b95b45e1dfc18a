package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/unkn0wn-root/swrcache"
)

// Decode adapts a raw fetcher to V by JSON-decoding its result.
func Decode[V any](fetch swrcache.Fetcher[json.RawMessage]) swrcache.Fetcher[V] {
	return func(ctx context.Context) (V, error) {
		var v V
		raw, err := fetch(ctx)
		if err != nil {
			return v, err
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, fmt.Errorf("api: decode response: %w", err)
		}
		return v, nil
	}
}

// ErrBadRestaurantID is returned by per-restaurant fetchers for ids that
// would not stay inside /restaurants/<id>/.
var ErrBadRestaurantID = errors.New("api: invalid restaurant id")

func (c *Client) restaurantFetcher(restaurantID, entity string) swrcache.Fetcher[json.RawMessage] {
	switch restaurantID {
	case "", ".", "..":
		return func(context.Context) (json.RawMessage, error) {
			return nil, fmt.Errorf("%w %q", ErrBadRestaurantID, restaurantID)
		}
	}
	return c.Fetcher("/restaurants/" + url.PathEscape(restaurantID) + "/" + entity)
}

func (c *Client) OrdersFetcher(restaurantID string) swrcache.Fetcher[json.RawMessage] {
	return c.restaurantFetcher(restaurantID, swrcache.EntityOrders)
}

func (c *Client) StatsFetcher(restaurantID string) swrcache.Fetcher[json.RawMessage] {
	return c.restaurantFetcher(restaurantID, swrcache.EntityStats)
}

func (c *Client) MenuFetcher(restaurantID string) swrcache.Fetcher[json.RawMessage] {
	return c.restaurantFetcher(restaurantID, swrcache.EntityMenu)
}

func (c *Client) SettingsFetcher() swrcache.Fetcher[json.RawMessage] {
	return c.Fetcher("/" + swrcache.EntitySettings)
}

// EntityFetcher picks the endpoint for a (scope, entity) slot. Settings are
// global and ignore scope; any other entity maps to /restaurants/<scope>/<entity>.
func (c *Client) EntityFetcher(scope, entity string) swrcache.Fetcher[json.RawMessage] {
	if entity == swrcache.EntitySettings {
		return c.SettingsFetcher()
	}
	return c.restaurantFetcher(scope, entity)
}
