package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCombineIsOrderSensitive(t *testing.T) {
	var a, b, c Digest
	a[0], b[0], c[0] = 1, 2, 3

	ab := Combine(a, b, c)
	ba := Combine(a, c, b)
	if ab == ba {
		t.Fatalf("dependency order must affect the combined digest")
	}
	if Combine(a, b, c) != ab {
		t.Fatalf("combining identical inputs must be deterministic")
	}
}

func TestModuleCacheHitRequiresMatchingHash(t *testing.T) {
	cache := NewModuleCache(4)
	var h1, h2 Digest
	h1[0], h2[0] = 1, 2

	cache.Put(&UnitMeta{Path: "a.em", ContentHash: h1, MonoCount: 3})
	if got, ok := cache.Get("a.em", h1); !ok || got.MonoCount != 3 {
		t.Fatalf("expected a cache hit for the stored hash")
	}
	if _, ok := cache.Get("a.em", h2); ok {
		t.Fatalf("a changed content hash must miss")
	}
	if _, ok := cache.Get("b.em", h1); ok {
		t.Fatalf("an unknown path must miss")
	}
}

func TestLoadManifestWalksUpward(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "[package]\nname = \"demo\"\n\n[features]\ntrack_costs = true\n"
	if err := os.WriteFile(filepath.Join(root, ManifestName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, ok, err := LoadManifest(sub)
	if err != nil || !ok {
		t.Fatalf("expected the manifest to be found from a nested dir: ok=%v err=%v", ok, err)
	}
	if m.Config.Package.Name != "demo" || !m.Config.Features.TrackCosts {
		t.Fatalf("manifest fields not parsed: %+v", m.Config)
	}
}

func TestLoadManifestRejectsMissingName(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ManifestName), []byte("[package]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadManifest(root); err == nil {
		t.Fatalf("a manifest without [package].name must be rejected")
	}
}
