package qrcode

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateWritesPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qrcodes")

	path, err := Generate("http://localhost:3001/api/pdf/1700000000000abcdefghi", dir)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("Expected image under %s, got %s", dir, path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "qr_") || !strings.HasSuffix(base, ".png") {
		t.Errorf("Unexpected image name %s", base)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Written image missing: %v", err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Written file is not a valid PNG: %v", err)
	}
	if cfg.Width != imageSize || cfg.Height != imageSize {
		t.Errorf("Expected %dx%d image, got %dx%d", imageSize, imageSize, cfg.Width, cfg.Height)
	}
}

func TestGenerateCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "qrcodes")

	if _, err := Generate("http://localhost:3001/api/pdf/x", dir); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Target directory was not created: %v", err)
	}
}

func TestGenerateDistinctFilenames(t *testing.T) {
	dir := t.TempDir()

	first, err := Generate("http://localhost:3001/api/pdf/a", dir)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := Generate("http://localhost:3001/api/pdf/b", dir)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if first == second {
		t.Errorf("Expected distinct filenames, both were %s", first)
	}
}
