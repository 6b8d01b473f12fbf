package qrcode

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// imageSize is the edge length of the rendered PNG in pixels.
const imageSize = 256

// Generate renders url into a scannable QR PNG inside dir, creating dir if
// absent, and returns the written path. The image encodes exactly the URL
// and nothing else.
func Generate(url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create qr directory: %v", err)
	}

	code, err := qr.Encode(url, qr.M, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %v", err)
	}

	scaled, err := barcode.Scale(code, imageSize, imageSize)
	if err != nil {
		return "", fmt.Errorf("failed to scale qr code: %v", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("qr_%d.png", time.Now().UnixNano()))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create qr file: %v", err)
	}
	defer out.Close()

	if err := png.Encode(out, scaled); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write qr image: %v", err)
	}

	return path, nil
}
