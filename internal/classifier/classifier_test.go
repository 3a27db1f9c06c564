package classifier

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKeywordClassifierInfersDisplayName(t *testing.T) {
	c := NewKeywordClassifier(nil)

	tests := []struct {
		filename string
		display  string
	}{
		{"scan_glioma_01.png", "Glioma Tumor"},
		{"SCAN_GLIOMA_01.PNG", "Glioma Tumor"},
		{"Meningioma-case7.jpg", "Meningioma Tumor"},
		{"mri pituitary left.jpeg", "Pituitary Tumor"},
		{"no_tumor_12.png", "No Detectable Anomaly"},
		{"../uploads/glioma.png", "Glioma Tumor"},
	}

	for _, tt := range tests {
		res, err := c.Classify(context.Background(), tt.filename, nil)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", tt.filename, err)
		}
		if !res.Inferred {
			t.Fatalf("Classify(%q) inferred nothing", tt.filename)
		}
		if res.Display != tt.display {
			t.Errorf("Classify(%q) = %q, expected %q", tt.filename, res.Display, tt.display)
		}
	}
}

func TestKeywordClassifierNoMatch(t *testing.T) {
	c := NewKeywordClassifier(nil)

	for _, filename := range []string{"patient_xyz.png", "image.jpg", "scan_42.bmp"} {
		res, err := c.Classify(context.Background(), filename, nil)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", filename, err)
		}
		if res.Inferred || res.Label != "" || res.Display != "" {
			t.Errorf("Classify(%q) = %+v, expected no inference", filename, res)
		}
	}
}

func TestKeywordClassifierFirstMatchWins(t *testing.T) {
	c := NewKeywordClassifier(nil)

	// "glioma" precedes "no" in the catalog, whichever comes first in the name.
	for _, filename := range []string{"glioma_no.png", "no_glioma.png", "pituitary_meningioma.png"} {
		res, err := c.Classify(context.Background(), filename, nil)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", filename, err)
		}
		want := "glioma_tumor"
		if strings.HasPrefix(filename, "pituitary") {
			want = "meningioma_tumor"
		}
		if res.Label != want {
			t.Errorf("Classify(%q) label = %q, expected %q", filename, res.Label, want)
		}
	}
}

func TestKeywordClassifierHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewKeywordClassifier(nil).Classify(ctx, "glioma.png", nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"scan_glioma_01.png", "scan_glioma_01.png"},
		{"My Scan Glioma.PNG", "My_Scan_Glioma.PNG"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\scans\pituitary.jpg`, "C_scans_pituitary.jpg"},
		{"Glióma résumé.png", "Glioma_resume.png"},
		{"  .hidden_file.  ", "hidden_file"},
		{"scan$%&*.png", "scan.png"},
		{"日本語", ""},
	}

	for _, tt := range tests {
		if got := SecureFilename(tt.input); got != tt.expected {
			t.Errorf("SecureFilename(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestNewCatalogRejectsInconsistentMappings(t *testing.T) {
	tests := []struct {
		name     string
		keywords []KeywordLabel
		display  map[string]string
	}{
		{"empty", nil, map[string]string{}},
		{"blank keyword", []KeywordLabel{{Keyword: " ", Label: "a"}}, map[string]string{"a": "A"}},
		{"missing display", []KeywordLabel{{Keyword: "x", Label: "a"}}, map[string]string{"b": "B"}},
		{"duplicate keyword", []KeywordLabel{{Keyword: "x", Label: "a"}, {Keyword: "X", Label: "a"}}, map[string]string{"a": "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.keywords, tt.display); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestCatalogIsImmutable(t *testing.T) {
	keywords := []KeywordLabel{{Keyword: "Lesion", Label: "lesion"}}
	display := map[string]string{"lesion": "Lesion"}
	catalog, err := NewCatalog(keywords, display)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keywords[0].Keyword = "changed"
	display["lesion"] = "Changed"
	catalog.Keywords()[0].Label = "changed"

	if label, ok := catalog.Match("lesion_01.png"); !ok || label != "lesion" {
		t.Fatalf("expected lesion match, got %q (%t)", label, ok)
	}
	if name, _ := catalog.DisplayName("lesion"); name != "Lesion" {
		t.Fatalf("display name was mutated: %q", name)
	}
}

func TestLoadCatalogKeepsFileOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `keywords:
  - keyword: "no"
    label: no_tumor
  - keyword: glioma
    label: glioma_tumor
display:
  glioma_tumor: Glioma Tumor
  no_tumor: No Detectable Anomaly
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}

	res, err := NewKeywordClassifier(catalog).Classify(context.Background(), "glioma_no.png", nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if res.Display != "No Detectable Anomaly" {
		t.Fatalf("expected file order to win, got %q", res.Display)
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("keywords: [\n"), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExampleCatalogMatchesDefaults(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join("..", "..", "configs", "labels.example.yaml"))
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}

	want := DefaultCatalog().Keywords()
	got := catalog.Keywords()
	if len(got) != len(want) {
		t.Fatalf("expected %d keywords, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keyword #%d: expected %+v, got %+v", i, want[i], got[i])
		}
		name, _ := catalog.DisplayName(got[i].Label)
		defaultName, _ := DefaultCatalog().DisplayName(want[i].Label)
		if name != defaultName {
			t.Fatalf("label %s: expected %q, got %q", got[i].Label, defaultName, name)
		}
	}
}
