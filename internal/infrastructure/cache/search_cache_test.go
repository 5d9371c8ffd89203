package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shelfpix/backend/internal/domain"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase passthrough", "coca cola 330ml", "coca cola 330ml"},
		{"case folded", "Coca Cola 330ML", "coca cola 330ml"},
		{"whitespace collapsed", "  coca   cola\t330ml ", "coca cola 330ml"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeQuery(tt.input); got != tt.want {
				t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSearchCacheStoreAndLookup(t *testing.T) {
	cache := NewSearchCache(time.Hour)

	candidates := []domain.Candidate{{URL: "https://example.com/a.jpg", Rank: 1}}
	cache.Store("Coca Cola 330ml", candidates)

	got, ok := cache.Lookup("coca  cola 330ML")
	if !ok {
		t.Fatal("expected hit for normalized-equivalent query")
	}
	if len(got) != 1 || got[0].URL != "https://example.com/a.jpg" {
		t.Errorf("unexpected candidates: %+v", got)
	}

	if _, ok := cache.Lookup("pepsi 500ml"); ok {
		t.Error("expected miss for unknown query")
	}
}

func TestSearchCacheUsageCounter(t *testing.T) {
	cache := NewSearchCache(time.Hour)
	cache.Store("bread", []domain.Candidate{{URL: "u"}})

	for i := 0; i < 3; i++ {
		if _, ok := cache.Lookup("bread"); !ok {
			t.Fatal("expected hit")
		}
	}

	if uses := cache.Uses("bread"); uses != 3 {
		t.Errorf("Uses() = %d, want 3", uses)
	}
	if uses := cache.Uses("missing"); uses != 0 {
		t.Errorf("Uses() for absent key = %d, want 0", uses)
	}
}

func TestSearchCacheExpiry(t *testing.T) {
	cache := NewSearchCache(time.Hour)

	now := time.Now()
	cache.clock = func() time.Time { return now }
	cache.Store("milk 1l", []domain.Candidate{{URL: "u"}})

	if _, ok := cache.Lookup("milk 1l"); !ok {
		t.Fatal("expected hit before expiry")
	}

	cache.clock = func() time.Time { return now.Add(2 * time.Hour) }
	if _, ok := cache.Lookup("milk 1l"); ok {
		t.Error("expected miss after TTL elapsed")
	}
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after the expired entry was evicted", size)
	}
}

func TestSearchCacheStoreSweepsExpired(t *testing.T) {
	cache := NewSearchCache(time.Hour)

	now := time.Now()
	cache.clock = func() time.Time { return now }
	cache.Store("bread", []domain.Candidate{{URL: "a"}})
	cache.Store("milk 1l", []domain.Candidate{{URL: "b"}})

	cache.clock = func() time.Time { return now.Add(2 * time.Hour) }
	cache.Store("rice 2kg", []domain.Candidate{{URL: "c"}})

	if size := cache.Size(); size != 1 {
		t.Errorf("Size() = %d, want 1 after storing past the TTL", size)
	}
	if _, ok := cache.Lookup("rice 2kg"); !ok {
		t.Error("fresh entry should survive the sweep")
	}
}

func TestSearchCacheFetchSingleFlight(t *testing.T) {
	cache := NewSearchCache(time.Hour)

	var calls atomic.Int32
	release := make(chan struct{})
	search := func(ctx context.Context) ([]domain.Candidate, error) {
		calls.Add(1)
		<-release
		return []domain.Candidate{{URL: "https://example.com/a.jpg"}}, nil
	}

	var wg sync.WaitGroup
	results := make([][]domain.Candidate, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, _, err := cache.Fetch(context.Background(), "Sunlight  Soap", search)
			if err != nil {
				t.Errorf("Fetch returned error: %v", err)
			}
			results[i] = got
		}(i)
	}

	// Give the goroutines a moment to pile onto the same flight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("search called %d times, want 1", n)
	}
	for i, r := range results {
		if len(r) != 1 {
			t.Errorf("caller %d got %d candidates, want 1", i, len(r))
		}
	}

	// Follow-up fetch is served from the cache
	got, _, err := cache.Fetch(context.Background(), "sunlight soap", search)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(got) != 1 || calls.Load() != 1 {
		t.Error("expected cached result without another search call")
	}
}

func TestSearchCacheFetchErrorNotCached(t *testing.T) {
	cache := NewSearchCache(time.Hour)

	var calls int
	search := func(ctx context.Context) ([]domain.Candidate, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("upstream down")
		}
		return []domain.Candidate{{URL: "u"}}, nil
	}

	if _, _, err := cache.Fetch(context.Background(), "rice 2kg", search); err == nil {
		t.Fatal("expected error from first fetch")
	}
	got, _, err := cache.Fetch(context.Background(), "rice 2kg", search)
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if len(got) != 1 || calls != 2 {
		t.Errorf("expected retry after error; calls = %d", calls)
	}
}
