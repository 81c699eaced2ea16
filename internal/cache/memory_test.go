package cache

import (
	"context"
	"testing"
	"time"

	"menuflow-backend/internal/extract"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	price := 12.5
	in := &extract.Result{
		Items:   []extract.MenuItem{{Name: "Margherita Pizza", Price: &price, Category: "Pizza"}},
		Quality: extract.QualityAI,
	}
	if err := store.Set(context.Background(), "k1", in, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Quality != extract.QualityAI || len(got.Items) != 1 {
		t.Fatalf("got %+v", got)
	}
	if *got.Items[0].Price != 12.5 {
		t.Fatalf("price = %v", *got.Items[0].Price)
	}
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Set(context.Background(), "k1", &extract.Result{Quality: extract.QualityAI}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	now = now.Add(2 * time.Minute)
	got, err := store.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expiry miss, got %+v", got)
	}
	if _, ok := store.entries["k1"]; ok {
		t.Fatal("expired entry should be deleted on read")
	}
}

func TestMemoryStoreSetOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, "k1", &extract.Result{Quality: extract.QualityDeterministic}, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "k1", &extract.Result{Quality: extract.QualityAI}, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Quality != extract.QualityAI {
		t.Fatalf("quality = %q, want overwrite to win", got.Quality)
	}
}

func TestMemoryStoreUnknownKey(t *testing.T) {
	store := NewMemoryStore()
	got, err := store.Get(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("got %+v, %v", got, err)
	}
}
