package artifact

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func encodeTestImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 15), uint8(y * 15), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestStore_SavePNG(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, zaptest.NewLogger(t))

	data := encodeTestImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})

	url, err := s.Save("task-1", "watercolor", data)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if url != "/generated/task-1_watercolor.png" {
		t.Errorf("Unexpected URL: %s", url)
	}

	file, err := os.Open(filepath.Join(dir, "task-1_watercolor.png"))
	if err != nil {
		t.Fatalf("Output file missing: %v", err)
	}
	defer file.Close()
	if _, err := png.Decode(file); err != nil {
		t.Errorf("Output is not valid PNG: %v", err)
	}
}

func TestStore_SaveReencodesJPEG(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, zaptest.NewLogger(t))

	data := encodeTestImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
	})

	url, err := s.Save("task-2", "cubist", data)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if url != "/generated/task-2_cubist.png" {
		t.Errorf("Unexpected URL: %s", url)
	}

	file, err := os.Open(filepath.Join(dir, "task-2_cubist.png"))
	if err != nil {
		t.Fatalf("Output file missing: %v", err)
	}
	defer file.Close()
	if _, err := png.Decode(file); err != nil {
		t.Errorf("JPEG input should be re-encoded as PNG: %v", err)
	}
}

func TestStore_SaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "generated")
	s := NewStore(dir, zaptest.NewLogger(t))

	data := encodeTestImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})

	if _, err := s.Save("task-3", "watercolor", data); err != nil {
		t.Fatalf("Save into missing directory failed: %v", err)
	}
	// Saving again must tolerate the now-existing directory.
	if _, err := s.Save("task-4", "watercolor", data); err != nil {
		t.Fatalf("Save into existing directory failed: %v", err)
	}
}

func TestStore_SaveRejectsGarbage(t *testing.T) {
	s := NewStore(t.TempDir(), zaptest.NewLogger(t))

	if _, err := s.Save("task-5", "watercolor", []byte("not an image")); err == nil {
		t.Fatal("Expected error for undecodable payload")
	}
}
