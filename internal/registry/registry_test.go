package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/valet/internal/config"
)

func testConfig(t *testing.T) config.RegistryConfig {
	t.Helper()
	root := t.TempDir()
	return config.RegistryConfig{
		Dir:       filepath.Join(root, "solutions"),
		IndexPath: filepath.Join(root, "index.db"),
	}
}

func openTestRegistry(t *testing.T, cfg config.RegistryConfig) *Registry {
	t.Helper()
	r, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSaveAndQuery(t *testing.T) {
	r := openTestRegistry(t, testConfig(t))

	if err := r.Save("fetch-bitcoin-price", "import requests\nprint(1)\n", "fetch the current bitcoin price in USD"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := r.Save("resize-images", "from PIL import Image\n", "resize a batch of png images"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := r.Query("fetch bitcoin price", 3, 1.5)
	if len(got) == 0 {
		t.Fatal("Query returned nothing")
	}
	if got[0].Entry.Name != "fetch-bitcoin-price" {
		t.Errorf("top match = %q", got[0].Entry.Name)
	}
	if got[0].Distance < 0 || got[0].Distance > 1.5 {
		t.Errorf("distance = %f, want within threshold", got[0].Distance)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("results not ascending by distance at %d", i)
		}
	}
}

func TestSaveUpsertsByName(t *testing.T) {
	r := openTestRegistry(t, testConfig(t))

	if err := r.Save("greet", "print('v1')\n", "say hello"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := r.Save("greet", "print('v2')\n", "say hello"); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	entries := r.List()
	if len(entries) != 1 {
		t.Fatalf("List = %d entries, want 1", len(entries))
	}
	if entries[0].Code != "print('v2')\n" {
		t.Errorf("code = %q, want the second save", entries[0].Code)
	}
	if entries[0].Version != 2 {
		t.Errorf("version = %d, want 2", entries[0].Version)
	}

	files, _ := filepath.Glob(filepath.Join(r.Dir(), "*.md"))
	if len(files) != 1 {
		t.Errorf("%d files on disk, want 1", len(files))
	}
}

func TestLoadBothFileLayouts(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		t.Fatal(err)
	}

	rich := `---
name: check-stock-price
description: check the current price of a stock ticker
version: 2
dependencies:
  - yfinance
---

` + "```python\nimport yfinance\nprint(yfinance.Ticker('AAPL').info)\n```\n"

	flat := `# send-reminder

Sends a desktop reminder notification at a given time.

` + "```python\nimport subprocess\nsubprocess.run(['notify-send', 'reminder'])\n```\n"

	if err := os.WriteFile(filepath.Join(cfg.Dir, "check-stock-price.md"), []byte(rich), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Dir, "send-reminder.md"), []byte(flat), 0644); err != nil {
		t.Fatal(err)
	}

	r := openTestRegistry(t, cfg)

	stock, ok := r.Get("check-stock-price")
	if !ok {
		t.Fatal("rich entry not loaded")
	}
	if stock.Version != 2 || len(stock.Dependencies) != 1 {
		t.Errorf("rich entry = %+v", stock)
	}
	if stock.Code == "" {
		t.Error("rich entry code not extracted")
	}

	reminder, ok := r.Get("send-reminder")
	if !ok {
		t.Fatal("flat entry not loaded")
	}
	if reminder.Description == "" || reminder.Code == "" {
		t.Errorf("flat entry = %+v", reminder)
	}
}

func TestQueryThresholdFiltersFarEntries(t *testing.T) {
	r := openTestRegistry(t, testConfig(t))

	if err := r.Save("resize-images", "x", "resize a batch of png images"); err != nil {
		t.Fatal(err)
	}

	if got := r.Query("fetch bitcoin price", 3, 0.1); len(got) != 0 {
		t.Errorf("unrelated entry returned at tight threshold: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	r := openTestRegistry(t, testConfig(t))

	if err := r.Save("doomed", "x", "temporary entry"); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete("doomed"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := r.Get("doomed"); ok {
		t.Error("entry still present after delete")
	}
	if got := r.Query("temporary entry", 3, 1.5); len(got) != 0 {
		t.Errorf("deleted entry still queryable: %+v", got)
	}
}

func TestTitledFlatFileFollowsItsOwnPath(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		t.Fatal(err)
	}

	// Hand-written file whose title does not match its filename.
	flat := "# fetch-weather\n\nFetches the local weather report.\n\n```python\nprint('sunny')\n```\n"
	file := filepath.Join(cfg.Dir, "notes.md")
	if err := os.WriteFile(file, []byte(flat), 0644); err != nil {
		t.Fatal(err)
	}

	r := openTestRegistry(t, cfg)
	if _, ok := r.Get("fetch-weather"); !ok {
		t.Fatal("titled entry not loaded")
	}

	// An upsert rewrites the original file instead of forking a second one.
	if err := r.Save("fetch-weather", "print('rainy')", "Fetches the local weather report."); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Dir, "fetch-weather.md")); !os.IsNotExist(err) {
		t.Error("upsert created a second file beside the original")
	}

	if err := r.Delete("fetch-weather"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("original file survived the delete")
	}
	if err := r.reloadAll(); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Get("fetch-weather"); ok {
		t.Error("deleted entry resurrected on reload")
	}
}

func TestOpenWithCorruptIndexDegrades(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.IndexPath, []byte("not a database"), 0644); err != nil {
		t.Fatal(err)
	}

	r := openTestRegistry(t, cfg)
	if err := r.Save("survivor", "x", "an entry saved after index recovery"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := r.Query("entry saved after index recovery", 1, 1.5); len(got) != 1 {
		t.Errorf("query after recovery = %+v", got)
	}
}

func TestPendingStoreLifecycle(t *testing.T) {
	store, err := NewPendingStore(filepath.Join(t.TempDir(), "pending"))
	if err != nil {
		t.Fatalf("NewPendingStore: %v", err)
	}

	ps, err := store.Create("fetch-weather", "import requests\n", "fetch tomorrow's weather")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ps.ID == "" || ps.Status != StatusPending {
		t.Fatalf("created = %+v", ps)
	}

	ps.Status = StatusVerified
	ps.Notes = "ran clean on first attempt"
	if err := store.Update(ps); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get(ps.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusVerified || got.Notes == "" {
		t.Errorf("after update = %+v", got)
	}

	all, err := store.List()
	if err != nil || len(all) != 1 {
		t.Fatalf("List = %v, %v", all, err)
	}

	if err := store.Delete(ps.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ps.ID); err == nil {
		t.Error("Get after delete succeeded")
	}
	// Deleting again is not an error.
	if err := store.Delete(ps.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}
