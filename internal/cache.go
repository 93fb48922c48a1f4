package internal

import (
	"crypto/md5"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	tt "github.com/gnolang/flatssa/internal/types"
)

const (
	cacheFileName = "conversions.gob"
	// DefaultCacheMaxAge is how long an entry stays valid when no other
	// age is set.
	DefaultCacheMaxAge = 24 * time.Hour
)

type fileMetadata struct {
	Hash         string
	LastModified time.Time
}

type CacheEntry struct {
	Metadata    fileMetadata
	Conversions []tt.Conversion
	// Dependencies maps each dependency file to its hash when the
	// entry was made; a missing file hashes to "".
	Dependencies map[string]string
	// Fingerprint identifies the settings the entry was made with.
	Fingerprint  string
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache keeps the conversions of unchanged files between runs. Entries
// go stale when the file changes, when they get older than the maximum
// age, when a dependency such as the configuration file changes, or
// when they were made with other settings.
type Cache struct {
	CacheDir        string
	entries         map[string]CacheEntry
	mutex           sync.RWMutex
	maxAge          time.Duration
	dependencyFiles []string
	fingerprint     string
}

func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		CacheDir: cacheDir,
		entries:  make(map[string]CacheEntry),
		maxAge:   DefaultCacheMaxAge,
	}

	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	return cache, nil
}

func (c *Cache) load() error {
	file, err := os.Open(filepath.Join(c.CacheDir, cacheFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

func (c *Cache) save() error {
	file, err := os.Create(filepath.Join(c.CacheDir, cacheFileName))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// AddDependency invalidates every entry made while file had other
// contents. A file that does not exist is tracked as missing.
func (c *Cache) AddDependency(file string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.dependencyFiles = append(c.dependencyFiles, file)
}

// SetFingerprint sets the settings fingerprint stored with new entries.
// Entries made under another fingerprint are stale.
func (c *Cache) SetFingerprint(fingerprint string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.fingerprint = fingerprint
}

func (c *Cache) dependencyHashes() map[string]string {
	hashes := make(map[string]string, len(c.dependencyFiles))
	for _, file := range c.dependencyFiles {
		hash, _ := getFileHash(file)
		hashes[file] = hash
	}
	return hashes
}

func (c *Cache) Set(filename string, convs []tt.Conversion) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	metadata, err := getFileMetadata(filename)
	if err != nil {
		return fmt.Errorf("failed to get file metadata: %w", err)
	}

	now := time.Now()
	c.entries[filename] = CacheEntry{
		Metadata:     metadata,
		Conversions:  convs,
		Dependencies: c.dependencyHashes(),
		Fingerprint:  c.fingerprint,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return c.save()
}

func (c *Cache) Get(filename string) ([]tt.Conversion, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[filename]
	if !exists {
		return nil, false
	}

	if c.isEntryInvalid(filename, entry) {
		delete(c.entries, filename)
		return nil, false
	}

	entry.LastAccessed = time.Now()
	c.entries[filename] = entry

	return entry.Conversions, true
}

func (c *Cache) isEntryInvalid(filename string, entry CacheEntry) bool {
	if time.Since(entry.CreatedAt) > c.maxAge {
		return true
	}

	currentMetadata, err := getFileMetadata(filename)
	if err != nil || currentMetadata.Hash != entry.Metadata.Hash ||
		!currentMetadata.LastModified.Equal(entry.Metadata.LastModified) {
		return true
	}

	if entry.Fingerprint != c.fingerprint {
		return true
	}
	return c.haveDependenciesChanged(entry)
}

func (c *Cache) haveDependenciesChanged(entry CacheEntry) bool {
	current := c.dependencyHashes()
	if len(current) != len(entry.Dependencies) {
		return true
	}
	for file, hash := range current {
		if old, ok := entry.Dependencies[file]; !ok || old != hash {
			return true
		}
	}
	return false
}

func (c *Cache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = duration
}

func (c *Cache) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
	_ = c.save() // manual operation, nothing to report to
}

func getFileMetadata(filename string) (fileMetadata, error) {
	file, err := os.Open(filename)
	if err != nil {
		return fileMetadata{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fileMetadata{}, fmt.Errorf("failed to calculate hash: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		return fileMetadata{}, fmt.Errorf("failed to get file info: %w", err)
	}

	return fileMetadata{
		Hash:         fmt.Sprintf("%x", hash.Sum(nil)),
		LastModified: info.ModTime(),
	}, nil
}

func getFileHash(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
