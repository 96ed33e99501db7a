package utils

import "testing"

type cachedPayload struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func TestFileCache_RoundTrip(t *testing.T) {
	cache, err := NewFileCache(t.TempDir(), true)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	key := cache.Key("coll-1", "contract.pdf", "hash1")

	var out cachedPayload
	hit, err := cache.Read(key, &out)
	if err != nil || hit {
		t.Fatalf("expected miss before write, got (%v, %v)", hit, err)
	}

	if err := cache.Write(key, cachedPayload{Status: "succeeded", Count: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	hit, err = cache.Read(key, &out)
	if err != nil || !hit {
		t.Fatalf("expected hit after write, got (%v, %v)", hit, err)
	}
	if out.Status != "succeeded" || out.Count != 3 {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestFileCache_DisabledIsNoOp(t *testing.T) {
	cache, err := NewFileCache(t.TempDir(), false)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	key := cache.Key("c", "f.pdf", "h")

	if err := cache.Write(key, cachedPayload{Status: "x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out cachedPayload
	hit, err := cache.Read(key, &out)
	if err != nil || hit {
		t.Fatalf("expected disabled cache to always miss, got (%v, %v)", hit, err)
	}
}

func TestFileCache_KeySanitizesSlashes(t *testing.T) {
	cache, _ := NewFileCache(t.TempDir(), false)
	key := cache.Key("c", "folder/sub\\file.pdf", "h")
	if key != "c-folder_sub_file.pdf-h.json" {
		t.Fatalf("unexpected key: %q", key)
	}
}
