package services

import (
	"context"
	"fmt"
	"testing"

	"lex-intake/internal/domain/intake"
)

type fakeFetcher struct {
	calls  int
	limits intake.UploadLimits
	err    error
}

func (f *fakeFetcher) FetchLimits(ctx context.Context) (intake.UploadLimits, error) {
	f.calls++
	return f.limits, f.err
}

type fakeStore struct {
	cached *intake.UploadLimits
	sets   int
	getErr error
	setErr error
}

func (f *fakeStore) Get(ctx context.Context) (*intake.UploadLimits, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.cached, nil
}

func (f *fakeStore) Set(ctx context.Context, limits intake.UploadLimits) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.cached = &limits
	return nil
}

func backendLimits() intake.UploadLimits {
	return intake.UploadLimits{
		MaxFileSizeBytes:  20 * 1024 * 1024,
		MaxFileCount:      10,
		AllowedExtensions: []string{"pdf"},
	}
}

func TestLimitsService_Effective(t *testing.T) {
	ctx := context.Background()

	t.Run("backend limits are authoritative", func(t *testing.T) {
		fetcher := &fakeFetcher{limits: backendLimits()}
		svc := NewLimitsService(fetcher, nil, intake.DefaultLimits(), nil)
		got := svc.Effective(ctx)
		if got.MaxFileCount != 10 {
			t.Fatalf("expected backend limits, got %+v", got)
		}
	})

	t.Run("fetch failure degrades to defaults", func(t *testing.T) {
		fetcher := &fakeFetcher{err: fmt.Errorf("gateway timeout")}
		svc := NewLimitsService(fetcher, nil, intake.DefaultLimits(), nil)
		got := svc.Effective(ctx)
		if got.MaxFileCount != intake.DefaultLimits().MaxFileCount {
			t.Fatalf("expected defaults, got %+v", got)
		}
	})

	t.Run("invalid backend limits are ignored", func(t *testing.T) {
		fetcher := &fakeFetcher{limits: intake.UploadLimits{MaxFileCount: -1}}
		svc := NewLimitsService(fetcher, nil, intake.DefaultLimits(), nil)
		got := svc.Effective(ctx)
		if got.MaxFileCount != intake.DefaultLimits().MaxFileCount {
			t.Fatalf("expected defaults, got %+v", got)
		}
	})

	t.Run("no fetcher means defaults", func(t *testing.T) {
		svc := NewLimitsService(nil, nil, intake.DefaultLimits(), nil)
		got := svc.Effective(ctx)
		if got.MaxFileSizeBytes != intake.DefaultLimits().MaxFileSizeBytes {
			t.Fatalf("expected defaults, got %+v", got)
		}
	})

	t.Run("cache hit skips the fetch", func(t *testing.T) {
		cached := backendLimits()
		fetcher := &fakeFetcher{limits: backendLimits()}
		store := &fakeStore{cached: &cached}
		svc := NewLimitsService(fetcher, store, intake.DefaultLimits(), nil)
		got := svc.Effective(ctx)
		if got.MaxFileCount != 10 {
			t.Fatalf("expected cached limits, got %+v", got)
		}
		if fetcher.calls != 0 {
			t.Fatalf("cache hit still fetched %d times", fetcher.calls)
		}
	})

	t.Run("cache miss fetches and stores", func(t *testing.T) {
		fetcher := &fakeFetcher{limits: backendLimits()}
		store := &fakeStore{}
		svc := NewLimitsService(fetcher, store, intake.DefaultLimits(), nil)
		got := svc.Effective(ctx)
		if got.MaxFileCount != 10 {
			t.Fatalf("expected backend limits, got %+v", got)
		}
		if store.sets != 1 {
			t.Fatalf("expected one cache write, got %d", store.sets)
		}
	})

	t.Run("cache errors never block", func(t *testing.T) {
		fetcher := &fakeFetcher{limits: backendLimits()}
		store := &fakeStore{getErr: fmt.Errorf("redis down"), setErr: fmt.Errorf("redis down")}
		svc := NewLimitsService(fetcher, store, intake.DefaultLimits(), nil)
		got := svc.Effective(ctx)
		if got.MaxFileCount != 10 {
			t.Fatalf("expected backend limits despite cache failure, got %+v", got)
		}
	})
}
