// Package fetch resolves portal item definitions needed during conversion:
// webmap and webscene JSON, plus the application JSON of nested legacy apps.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Item kinds a Fetcher can resolve.
const (
	KindWebMap   = "webmap"
	KindWebScene = "webscene"
)

// Fetcher resolves the JSON definition of a portal item.
type Fetcher interface {
	// Definition returns the raw item definition for the given kind and id.
	Definition(ctx context.Context, kind, itemID string) ([]byte, error)
}

// AppFetcher additionally resolves the application JSON of a nested legacy
// story referenced from a series entry or an embedded comparison app.
type AppFetcher interface {
	Fetcher
	// AppData returns the raw application data JSON for an app item id.
	AppData(ctx context.Context, appID string) ([]byte, error)
}

// HTTPFetcher fetches item definitions from a portal's sharing REST API,
// deduplicating concurrent requests and caching responses for the lifetime
// of a conversion run.
type HTTPFetcher struct {
	// PortalURL is the portal root, e.g. "https://www.arcgis.com".
	PortalURL string
	// Token is an optional access token appended to every request.
	Token string
	// Client defaults to a client with a 30 second timeout.
	Client *http.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
	once    sync.Once
}

// NewHTTPFetcher creates a fetcher against the given portal root.
func NewHTTPFetcher(portalURL string) *HTTPFetcher {
	return &HTTPFetcher{
		PortalURL: strings.TrimRight(portalURL, "/"),
		cache:     make(map[string][]byte),
	}
}

func (f *HTTPFetcher) init() {
	f.once.Do(func() {
		if f.cache == nil {
			f.cache = make(map[string][]byte)
		}
		if f.Client == nil {
			f.Client = &http.Client{Timeout: 30 * time.Second}
		}
	})
}

// Definition fetches the item data resource for a webmap or webscene item.
func (f *HTTPFetcher) Definition(ctx context.Context, kind, itemID string) ([]byte, error) {
	if itemID == "" {
		return nil, fmt.Errorf("missing %s item id", kind)
	}
	return f.fetch(ctx, kind+":"+itemID, f.itemDataURL(itemID))
}

// AppData fetches the application data resource of a legacy story app.
func (f *HTTPFetcher) AppData(ctx context.Context, appID string) ([]byte, error) {
	if appID == "" {
		return nil, fmt.Errorf("missing app item id")
	}
	return f.fetch(ctx, "app:"+appID, f.itemDataURL(appID))
}

func (f *HTTPFetcher) itemDataURL(itemID string) string {
	u := fmt.Sprintf("%s/sharing/rest/content/items/%s/data?f=json", f.PortalURL, url.PathEscape(itemID))
	if f.Token != "" {
		u += "&token=" + url.QueryEscape(f.Token)
	}
	return u
}

func (f *HTTPFetcher) fetch(ctx context.Context, key, endpoint string) ([]byte, error) {
	f.init()

	f.cacheMu.RLock()
	if cached, ok := f.cache[key]; ok {
		f.cacheMu.RUnlock()
		return cached, nil
	}
	f.cacheMu.RUnlock()

	result, err, _ := f.group.Do(key, func() (any, error) {
		f.cacheMu.RLock()
		if cached, ok := f.cache[key]; ok {
			f.cacheMu.RUnlock()
			return cached, nil
		}
		f.cacheMu.RUnlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch item: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("item request returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read item response: %w", err)
		}

		f.cacheMu.Lock()
		f.cache[key] = data
		f.cacheMu.Unlock()

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// StaticFetcher serves item definitions from an in-memory map, keyed by
// "<kind>:<itemID>" for definitions and "app:<appID>" for app data. Useful
// for offline conversions and tests.
type StaticFetcher struct {
	Items map[string][]byte
}

func (f *StaticFetcher) Definition(_ context.Context, kind, itemID string) ([]byte, error) {
	if data, ok := f.Items[kind+":"+itemID]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no %s definition for item %q", kind, itemID)
}

func (f *StaticFetcher) AppData(_ context.Context, appID string) ([]byte, error) {
	if data, ok := f.Items["app:"+appID]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no app data for item %q", appID)
}
