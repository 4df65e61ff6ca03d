package store

import (
	"context"
	"testing"
)

func TestStore_GetCachedTranslation_Miss(t *testing.T) {
	s := newTestStore(t)

	text, found, err := s.GetCachedTranslation(context.Background(), "Hello", "en", "uk", "gemini")
	if err != nil {
		t.Fatalf("GetCachedTranslation failed: %v", err)
	}
	if found || text != "" {
		t.Errorf("expected miss, got %q", text)
	}
}

func TestStore_GetCachedTranslation_Hit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, "## Hello\n\nWorld", "en", "uk", "gemini", "## Привіт\n\nСвіт"); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	// Surrounding whitespace does not change the key.
	text, found, err := s.GetCachedTranslation(ctx, "\n## Hello\n\nWorld\n", "en", "uk", "gemini")
	if err != nil {
		t.Fatalf("GetCachedTranslation failed: %v", err)
	}
	if !found || text != "## Привіт\n\nСвіт" {
		t.Errorf("expected hit, got %q found=%v", text, found)
	}

	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].UsageCount != 2 {
		t.Errorf("expected one entry used twice, got %+v", entries)
	}
}

func TestStore_GetCachedTranslation_ScopedByService(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, "Hello", "en", "uk", "identity", "Hello"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.GetCachedTranslation(ctx, "Hello", "en", "uk", "gemini"); found {
		t.Error("identity entry must not serve another service")
	}
}

func TestStore_GetCachedTranslation_Invalidated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, "Hello", "en", "uk", "gemini", "Привіт"); err != nil {
		t.Fatal(err)
	}
	entries, _ := s.ListMemory(ctx)
	if err := s.InvalidateMemory(ctx, entries[0].ID); err != nil {
		t.Fatal(err)
	}

	if _, found, _ := s.GetCachedTranslation(ctx, "Hello", "en", "uk", "gemini"); found {
		t.Error("invalidated entry should miss")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 1 || stats.InvalidEntries != 1 || stats.ActiveEntries != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestStore_DeleteAndClearMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, src := range []string{"one", "two", "three"} {
		if err := s.SaveToMemory(ctx, src, "en", "de", "gemini", src+"-de"); err != nil {
			t.Fatal(err)
		}
	}
	entries, _ := s.ListMemory(ctx)
	if err := s.DeleteMemory(ctx, entries[0].ID); err != nil {
		t.Fatal(err)
	}

	n, err := s.ClearMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("ClearMemory removed %d, want 2", n)
	}
}

func TestStore_MultipleLanguagePairs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Hello", "en", "uk", "gemini", "Привіт")
	s.SaveToMemory(ctx, "Hello", "en", "de", "gemini", "Hallo")

	uk, _, _ := s.GetCachedTranslation(ctx, "Hello", "en", "uk", "gemini")
	de, _, _ := s.GetCachedTranslation(ctx, "Hello", "en", "de", "gemini")
	if uk != "Привіт" || de != "Hallo" {
		t.Errorf("uk=%q de=%q", uk, de)
	}
}
