package cache

import (
	"os"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	k := Key("bafkschema", "bafkgraph")
	if k != "kgrepair:v1:bafkschema:bafkgraph" {
		t.Errorf("unexpected key %q", k)
	}
	if Key("a", "bc") == Key("ab", "c") {
		t.Error("keys for different inputs collide")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("report")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value[0] = 'X'

	got, ok := c.Get("k")
	if !ok || string(got) != "report" {
		t.Fatalf("Get = %q, %v; want stored copy", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("entry survived Delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	key := Key("schema", "graph")
	if err := c.Set(key, []byte(`{"conforms":true}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// a second instance sees the entry
	got, ok := NewDiskCache(dir, time.Hour).Get(key)
	if !ok || string(got) != `{"conforms":true}` {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("entry survived Delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set("k", []byte("v"), time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh entry missing")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry file not removed")
	}
}

func TestDiskCache_NeverExpires(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set("k", []byte("v"), -1)
	now = now.AddDate(10, 0, 0)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry with negative ttl expired")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	_ = c.Set("k", []byte("v"), 0)
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("corrupt entry returned")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	_ = disk.Set("k", []byte("v"), 0)

	mem := NewMemoryCache(time.Minute, time.Minute)
	c := NewLayered(mem, disk)

	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := mem.Get("k"); !ok {
		t.Error("disk hit not promoted to memory")
	}
}

func TestLayeredCache_SetAndClear(t *testing.T) {
	c := NewLayeredCache(time.Minute, t.TempDir(), time.Hour)
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := c.disk.Get("k"); !ok {
		t.Error("Set did not reach disk")
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("entry survived Clear")
	}
}
