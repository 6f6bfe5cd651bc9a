package download

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// markerNames identify a directory that holds a y-cruncher distribution.
var markerNames = []string{"y-cruncher.exe", "y-cruncher", "Components", "Config", "Numbers"}

// Extract unpacks a y-cruncher release archive into destDir. Releases wrap
// everything in a versioned top-level directory; that wrapper is stripped so
// the executable and its support directories land directly in destDir.
func Extract(zipPath, destDir string) error {
	tempDir, err := os.MkdirTemp("", "ycstress-extract-*")
	if err != nil {
		return fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := unzip(zipPath, tempDir); err != nil {
		return err
	}

	source, err := findDistribution(tempDir)
	if err != nil {
		return err
	}

	if err := copyTree(source, destDir); err != nil {
		return fmt.Errorf("failed to install y-cruncher: %w", err)
	}

	// The zip format loses the executable bit on some producers.
	for _, name := range []string{"y-cruncher", "y-cruncher.exe"} {
		p := filepath.Join(destDir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			os.Chmod(p, st.Mode().Perm()|0111)
		}
	}
	return nil
}

// Verify reports whether destDir now contains the y-cruncher executable.
func Verify(destDir string) bool {
	for _, name := range []string{"y-cruncher", "y-cruncher.exe"} {
		if st, err := os.Stat(filepath.Join(destDir, name)); err == nil && !st.IsDir() {
			return true
		}
	}
	return false
}

func unzip(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(destDir, filepath.Clean(f.Name))
		// Zip-slip guard: entries must stay inside destDir.
		if rel, err := filepath.Rel(destDir, target); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes extraction dir: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create dir: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create dir: %w", err)
		}

		src, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to read archive entry %s: %w", f.Name, err)
		}
		dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode().Perm()|0200)
		if err != nil {
			src.Close()
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
	}
	return nil
}

// findDistribution locates the directory holding the y-cruncher files,
// descending through up to two levels of single-directory wrappers.
func findDistribution(root string) (string, error) {
	dir := root
	for depth := 0; depth < 3; depth++ {
		if containsMarkers(dir) {
			return dir, nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", fmt.Errorf("failed to inspect archive contents: %w", err)
		}
		if len(entries) == 1 && entries[0].IsDir() {
			dir = filepath.Join(dir, entries[0].Name())
			continue
		}
		// Fall back to any subdirectory that looks like a distribution.
		for _, e := range entries {
			if e.IsDir() && containsMarkers(filepath.Join(dir, e.Name())) {
				return filepath.Join(dir, e.Name()), nil
			}
		}
		break
	}
	return "", fmt.Errorf("archive does not look like a y-cruncher release")
}

func containsMarkers(dir string) bool {
	for _, name := range markerNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm()|0200)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}
