package render

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactLocator finds the video produced for sceneID by rendering the
// source file whose base name (without extension) is stem.
type ArtifactLocator interface {
	Locate(outputDir, stem, sceneID string) (string, bool)
}

// SubstringLocator walks outputDir/<stem> (when it is a directory) and then
// outputDir, returning the first .mp4 whose name without extension contains
// the scene identifier. Walk order is lexical.
type SubstringLocator struct{}

// Locate implements ArtifactLocator.
func (SubstringLocator) Locate(outputDir, stem, sceneID string) (string, bool) {
	if sceneID == "" {
		return "", false
	}
	roots := make([]string, 0, 2)
	if stem != "" {
		candidate := filepath.Join(outputDir, stem)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			roots = append(roots, candidate)
		}
	}
	roots = append(roots, outputDir)

	for _, root := range roots {
		if path, ok := walkForScene(root, sceneID); ok {
			return path, true
		}
	}
	return "", false
}

var errFound = errors.New("found")

func walkForScene(root, sceneID string) (string, bool) {
	var match string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped; the root itself failing ends the walk.
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if filepath.Ext(name) != ".mp4" {
			return nil
		}
		if strings.Contains(strings.TrimSuffix(name, filepath.Ext(name)), sceneID) {
			match = path
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return match, true
	}
	return "", false
}

// ExactLocator checks the engine's layout for a given fidelity:
// <out>/videos/<stem>/<qualityDir>/<scene>.mp4, then <out>/<stem>/<qualityDir>/<scene>.mp4.
type ExactLocator struct {
	Quality string
}

// Locate implements ArtifactLocator.
func (l ExactLocator) Locate(outputDir, stem, sceneID string) (string, bool) {
	if sceneID == "" || stem == "" {
		return "", false
	}
	qualityDir := QualityDir(l.Quality)
	candidates := []string{
		filepath.Join(outputDir, "videos", stem, qualityDir, sceneID+".mp4"),
		filepath.Join(outputDir, stem, qualityDir, sceneID+".mp4"),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// QualityDir maps a quality flag letter to the engine's output folder name.
func QualityDir(quality string) string {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "l":
		return "480p15"
	case "h":
		return "1080p60"
	case "p":
		return "1440p60"
	case "k":
		return "2160p60"
	default:
		return "720p30"
	}
}
