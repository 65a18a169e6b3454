package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestHTTPFetcherDefinition(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/sharing/rest/content/items/") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("f") != "json" {
			t.Errorf("missing f=json in %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"baseMap":{}}`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.URL)
	ctx := context.Background()

	data, err := f.Definition(ctx, KindWebMap, "m1")
	if err != nil {
		t.Fatalf("Definition() error: %v", err)
	}
	if string(data) != `{"baseMap":{}}` {
		t.Errorf("Definition() = %s", data)
	}

	// Concurrent and repeated lookups of the same item hit the server once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Definition(ctx, KindWebMap, "m1"); err != nil {
				t.Errorf("Definition() error: %v", err)
			}
		}()
	}
	wg.Wait()
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}

	if _, err := f.Definition(ctx, KindWebScene, "s1"); err != nil {
		t.Fatalf("Definition() error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times after second item, want 2", hits.Load())
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.URL)
	if _, err := f.Definition(context.Background(), KindWebMap, "gone"); err == nil {
		t.Error("Definition() succeeded on 404")
	}
	if _, err := f.Definition(context.Background(), KindWebMap, ""); err == nil {
		t.Error("Definition() succeeded on empty id")
	}
}

func TestHTTPFetcherToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			t.Errorf("token missing from %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.URL)
	f.Token = "secret"
	if _, err := f.AppData(context.Background(), "app1"); err != nil {
		t.Fatalf("AppData() error: %v", err)
	}
}

func TestStaticFetcher(t *testing.T) {
	f := &StaticFetcher{Items: map[string][]byte{
		"webmap:m1": []byte(`{"x":1}`),
		"app:a1":    []byte(`{"values":{}}`),
	}}

	data, err := f.Definition(context.Background(), KindWebMap, "m1")
	if err != nil || string(data) != `{"x":1}` {
		t.Errorf("Definition() = %s, %v", data, err)
	}
	if _, err := f.Definition(context.Background(), KindWebScene, "m1"); err == nil {
		t.Error("Definition() succeeded for missing kind")
	}
	if _, err := f.AppData(context.Background(), "a1"); err != nil {
		t.Errorf("AppData() error: %v", err)
	}
}
