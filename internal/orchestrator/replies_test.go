package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTemplates_NoPathUsesDefaults(t *testing.T) {
	tpl, err := LoadTemplates("", testLogger())
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	if tpl != DefaultTemplates() {
		t.Errorf("templates = %+v, want defaults", tpl)
	}
}

func TestLoadTemplates_OverrideMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	content := "success: recorded!\nimageMarker: \"[image]\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tpl, err := LoadTemplates(path, testLogger())
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	if tpl.Success != "recorded!" {
		t.Errorf("success = %q", tpl.Success)
	}
	if tpl.ImageMarker != "[image]" {
		t.Errorf("imageMarker = %q", tpl.ImageMarker)
	}
	// Untouched keys keep the built-in text.
	if tpl.Unsupported != DefaultTemplates().Unsupported {
		t.Errorf("unsupported = %q", tpl.Unsupported)
	}
}

func TestLoadTemplates_MissingFileIsAnError(t *testing.T) {
	if _, err := LoadTemplates("/nonexistent/replies.yaml", testLogger()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadTemplates_BadYAMLIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	if err := os.WriteFile(path, []byte("success: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTemplates(path, testLogger()); err == nil {
		t.Fatal("expected error for bad yaml")
	}
}
