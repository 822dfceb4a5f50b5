package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	data, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(data) != "v" {
		t.Errorf("got %q", data)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.Set(ctx, "k", []byte("v"), -time.Second)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCollection_GetOrLoad_PopulatesAndCaches(t *testing.T) {
	ctx := context.Background()
	col := NewCollection(NewMemoryStore(), time.Minute)

	loads := 0
	load := func(ctx context.Context) (interface{}, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	var got []string
	if err := col.GetOrLoad(ctx, "k", &got, load); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}

	got = nil
	if err := col.GetOrLoad(ctx, "k", &got, load); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if loads != 1 {
		t.Errorf("expected 1 loader call, got %d", loads)
	}
	if len(got) != 2 {
		t.Errorf("cached value lost: %v", got)
	}
}

func TestCollection_GetOrLoad_LoaderError(t *testing.T) {
	ctx := context.Background()
	col := NewCollection(NewMemoryStore(), time.Minute)

	wantErr := errors.New("db down")
	var got []string
	err := col.GetOrLoad(ctx, "k", &got, func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestCollection_ConcurrentLoadsDeduplicated(t *testing.T) {
	ctx := context.Background()
	col := NewCollection(NewMemoryStore(), time.Minute)

	var loads int64
	release := make(chan struct{})
	load := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt64(&loads, 1)
		<-release
		return "value", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var s string
			_ = col.GetOrLoad(ctx, "k", &s, load)
		}()
	}

	// Give the goroutines a moment to pile onto the same key.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt64(&loads); n != 1 {
		t.Errorf("expected a single deduplicated load, got %d", n)
	}
}

func TestCollection_InvalidateForcesReload(t *testing.T) {
	ctx := context.Background()
	col := NewCollection(NewMemoryStore(), time.Minute)

	loads := 0
	load := func(ctx context.Context) (interface{}, error) {
		loads++
		return loads, nil
	}

	var n int
	_ = col.GetOrLoad(ctx, EntitiesKey("case-1"), &n, load)
	col.Invalidate(ctx, ReviewKeys("case-1")...)
	_ = col.GetOrLoad(ctx, EntitiesKey("case-1"), &n, load)

	if loads != 2 {
		t.Errorf("expected reload after invalidation, got %d loads", loads)
	}
	if n != 2 {
		t.Errorf("expected fresh value, got %d", n)
	}
}
