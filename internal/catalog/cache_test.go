package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewDiskCache(dir)
	if err != nil {
		t.Fatal(err)
	}

	uri := "locations?location_status=true"
	if _, ok := cache.Get(uri); ok {
		t.Fatal("cold cache reported a hit")
	}
	if err := cache.Put(uri, []byte(`{"data":[]}`)); err != nil {
		t.Fatal(err)
	}
	body, ok := cache.Get(uri)
	if !ok || string(body) != `{"data":[]}` {
		t.Fatalf("Get = %q, %v", body, ok)
	}

	// One req_<hash>.json file per URI.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache dir holds %d files, want 1", len(entries))
	}
	name := entries[0].Name()
	if len(name) != len("req_12345678.json") || name[:4] != "req_" || filepath.Ext(name) != ".json" {
		t.Errorf("cache file name = %q", name)
	}
}

func TestDiskCacheKeyDependsOnQuery(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewDiskCache(dir)
	if err != nil {
		t.Fatal(err)
	}

	cache.Put("menus?location=1", []byte("one"))
	cache.Put("menus?location=2", []byte("two"))

	body, _ := cache.Get("menus?location=1")
	if string(body) != "one" {
		t.Errorf("Get(location=1) = %q", body)
	}
	body, _ = cache.Get("menus?location=2")
	if string(body) != "two" {
		t.Errorf("Get(location=2) = %q", body)
	}
}

func TestDiskCacheClearSparesSessionFiles(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewDiskCache(dir)
	if err != nil {
		t.Fatal(err)
	}

	cache.Put("locations", []byte("x"))
	session := filepath.Join(dir, "user_42.json")
	if err := os.WriteFile(session, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := cache.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get("locations"); ok {
		t.Error("request survived Clear")
	}
	if _, err := os.Stat(session); err != nil {
		t.Error("Clear removed a session file")
	}
}
