package crawl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePortal(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPortalCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writePortal(t, tempDir, "fincaraiz", `
url: "https://www.example.com/arriendo/{type}/medellin?pagina={page}"
property_types: [apartamentos, casas]

settings:
  enabled: true
  refresh_interval: 1800
  renderer: browser
  wait_selector: ".card"
  max_pages: 20

selectors:
  card: ".card"
  link: "a@href"
  price: ".price"
`)

	cache := NewPortalCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if cache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 portal, got %d", cache.GetConfigCount())
	}

	config, err := cache.GetConfig("fincaraiz")
	if err != nil {
		t.Fatal(err)
	}

	if config.Name != "fincaraiz" {
		t.Errorf("Expected name 'fincaraiz', got '%s'", config.Name)
	}
	if config.Settings.RefreshInterval != 1800 || config.Settings.MaxPages != 20 {
		t.Errorf("Unexpected settings %+v", config.Settings)
	}
	if config.Settings.Renderer != RendererBrowser || config.Settings.Format != FormatHTML {
		t.Errorf("Unexpected renderer/format %s/%s", config.Settings.Renderer, config.Settings.Format)
	}
	if config.Settings.Timeout != 60 || config.Settings.FirstPage != 1 {
		t.Errorf("Expected defaults for timeout and first page, got %d/%d", config.Settings.Timeout, config.Settings.FirstPage)
	}

	partitions := config.Partitions()
	if len(partitions) != 2 || partitions[1].String() != "fincaraiz/casas" {
		t.Errorf("Unexpected partitions %v", partitions)
	}

	if len(cache.GetEnabledConfigs()) != 1 {
		t.Errorf("Expected 1 enabled portal")
	}
}

func TestPortalCacheInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing url", "settings:\n  enabled: true\n", "URL is required"},
		{"missing selectors", "url: https://x.example.com\n", "card and link selectors"},
		{"bad renderer", "url: https://x.example.com\nsettings:\n  renderer: curl\n  format: feed\n", "invalid renderer"},
		{"bad format", "url: https://x.example.com\nsettings:\n  format: json\n", "invalid format"},
		{"negative pages", "url: https://x.example.com\nsettings:\n  format: feed\n  max_pages: -1\n", "max pages"},
		{"types without placeholder", "url: https://x.example.com\nproperty_types: [casas]\nsettings:\n  format: feed\n", "{type}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writePortal(t, tempDir, "broken", tt.content)

			err := NewPortalCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected error for invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPortalCacheMissingDirectory(t *testing.T) {
	cache := NewPortalCache(filepath.Join(t.TempDir(), "missing"))
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}
	if cache.GetConfigCount() != 0 {
		t.Errorf("Expected no portals")
	}
	if _, err := cache.GetConfig("anything"); err == nil {
		t.Error("Expected error for unknown portal")
	}
}

func TestPortalCacheDisabled(t *testing.T) {
	tempDir := t.TempDir()
	writePortal(t, tempDir, "off", "url: https://x.example.com/feed\nsettings:\n  enabled: false\n  format: feed\n")

	cache := NewPortalCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}
	if len(cache.GetEnabledConfigs()) != 0 {
		t.Errorf("Expected disabled portal to be excluded")
	}
}
