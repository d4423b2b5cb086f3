// Package artifact persists generated images into the publicly served
// output directory. Filenames are task-id qualified, so concurrent tasks
// never write the same path.
package artifact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const urlPrefix = "/generated"

type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Save decodes the generated payload, re-encodes it as PNG at
// <dir>/<taskID>_<style>.png and returns the public URL. The output
// directory is created on demand; an already existing directory is fine.
func (s *Store) Save(taskID, style string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode generated image: %w", err)
	}

	name := fmt.Sprintf("%s_%s.png", taskID, style)
	outPath := filepath.Join(s.dir, name)

	if err := imaging.Save(img, outPath); err != nil {
		return "", fmt.Errorf("save generated image: %w", err)
	}

	s.logger.Info("Artifact saved",
		zap.String("task_id", taskID),
		zap.String("path", outPath),
	)
	return urlPrefix + "/" + name, nil
}

// Dir returns the directory artifacts are written to.
func (s *Store) Dir() string {
	return s.dir
}
