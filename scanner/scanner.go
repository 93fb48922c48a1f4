// Package scanner finds the source files below a directory.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type FileInfo struct {
	Path string
	Size int64
}

// Scanner walks a directory tree for files with given extensions. Hidden
// directories, vendor and testdata are not entered.
type Scanner struct {
	rootDir    string
	extensions []string
	skipTests  bool
}

func New(rootDir string, extensions ...string) *Scanner {
	return &Scanner{
		rootDir:    rootDir,
		extensions: extensions,
	}
}

// SkipTests leaves out Go test files.
func (s *Scanner) SkipTests() *Scanner {
	s.skipTests = true
	return s
}

// Scan returns the matching files sorted by path.
func (s *Scanner) Scan() ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(s.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != s.rootDir && skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.isTargetFile(path) {
			files = append(files, FileInfo{Path: path, Size: info.Size()})
		}
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata"
}

func (s *Scanner) isTargetFile(path string) bool {
	if s.skipTests && strings.HasSuffix(path, "_test.go") {
		return false
	}
	if len(s.extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, targetExt := range s.extensions {
		if ext == targetExt {
			return true
		}
	}
	return false
}
