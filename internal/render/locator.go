package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scenecast/internal/services"
)

// legacyPresetDir is where older manim releases wrote renders regardless of preset.
const legacyPresetDir = "480p15"

// Strategy looks for a rendered file under videosDir. It reports the file
// path and whether one was found.
type Strategy struct {
	Name string
	Find func(videosDir, stem string, quality Quality) (string, bool)
}

// Locator tries its strategies in order and returns the first hit.
type Locator struct {
	strategies []Strategy
}

// NewLocator builds a Locator. With no strategies the defaults are used:
// preset directory, legacy 480p15 directory, then sibling scan.
func NewLocator(strategies ...Strategy) *Locator {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Locator{strategies: strategies}
}

// DefaultStrategies returns the standard search order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "preset", Find: func(videosDir, stem string, quality Quality) (string, bool) {
			return findInDir(filepath.Join(videosDir, quality.PresetDir()), stem)
		}},
		{Name: "legacy", Find: func(videosDir, stem string, _ Quality) (string, bool) {
			return findInDir(filepath.Join(videosDir, legacyPresetDir), stem)
		}},
		{Name: "scan", Find: scanSiblings},
	}
}

// Locate returns the rendered file for stem. A miss is an ErrOutputNotFound.
func (l *Locator) Locate(videosDir, stem string, quality Quality) (string, string, error) {
	for _, strategy := range l.strategies {
		if path, ok := strategy.Find(videosDir, stem, quality); ok {
			return path, strategy.Name, nil
		}
	}
	return "", "", services.Wrap(services.ErrOutputNotFound, "render", "locate output",
		fmt.Sprintf("no %s*.mp4 under %s", stem, videosDir), nil)
}

func scanSiblings(videosDir, stem string, _ Quality) (string, bool) {
	entries, err := os.ReadDir(videosDir)
	if err != nil {
		return "", false
	}
	// os.ReadDir returns entries sorted by name.
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if path, ok := findInDir(filepath.Join(videosDir, entry.Name()), stem); ok {
			return path, true
		}
	}
	return "", false
}

// findInDir returns the first regular file in dir, by name, matching stem*.mp4.
func findInDir(dir, stem string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, stem) && strings.HasSuffix(name, ".mp4") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), true
}
