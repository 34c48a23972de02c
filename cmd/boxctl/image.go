package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joshuapare/boxtrace/internal/writer"
	"github.com/joshuapare/boxtrace/tag"
)

// loadImage reads a raw tag memory image.
func loadImage(path string) (*tag.Memory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tag image: %w", err)
	}
	m, err := tag.LoadMemory(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// loadOrCreateImage loads path, or returns a blank tag of the given size if
// it does not exist yet.
func loadOrCreateImage(path string, pages int) (*tag.Memory, error) {
	m, err := loadImage(path)
	if errors.Is(err, os.ErrNotExist) {
		printVerbose("Creating blank %d-page tag image: %s\n", pages, path)
		return tag.NewMemory(pages)
	}
	return m, err
}

// saveImage writes the tag memory back atomically.
func saveImage(path string, m *tag.Memory) error {
	return writeImage(&writer.FileWriter{Path: path, Perm: 0o644}, m)
}

func writeImage(w writer.Sink, m *tag.Memory) error {
	if err := w.WriteAll(m.Bytes()); err != nil {
		return fmt.Errorf("write tag image: %w", err)
	}
	return nil
}
