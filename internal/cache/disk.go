package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "index.json"
	// Entries smaller than this are stored uncompressed.
	compressThreshold = 1024
)

// Disk is a size bounded on-disk cache.
type Disk struct {
	dir      string
	capacity int64
	logger   *log.Logger

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu     sync.Mutex
	index  map[string]*entry
	stats  Stats
	closed bool
}

type entry struct {
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	Original   int64     `json:"original"`
	Compressed bool      `json:"compressed"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
	Hits       int64     `json:"hits"`
}

// NewDisk opens or creates a cache in dir holding at most capacity bytes.
func NewDisk(dir string, capacity int64, logger *log.Logger) (*Disk, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	if logger == nil {
		logger = log.Default().WithPrefix("cache")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		logger:   logger,
		encoder:  enc,
		decoder:  dec,
		index:    make(map[string]*entry),
	}
	if err := d.loadIndex(); err != nil {
		logger.Warn("Discarding unreadable cache index", "dir", dir, "err", err)
		d.index = make(map[string]*entry)
	}
	d.prune()
	for d.size() > d.capacity {
		d.evictOldest()
	}
	d.stats.Capacity = capacity

	logger.Debug("Cache opened", "dir", dir, "stats", d.statsLocked())
	return d, nil
}

// Get returns the cached value for key.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.index[key]
	if !ok || d.closed {
		d.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(d.dir, e.File))
	if err == nil && e.Compressed {
		data, err = d.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		d.logger.Warn("Dropping unreadable cache entry", "file", e.File, "err", err)
		d.remove(key, e)
		d.stats.Misses++
		return nil, false
	}

	e.LastAccess = time.Now()
	e.Hits++
	d.stats.Hits++
	return data, true
}

// Put stores value under key, evicting the least recently used entries
// to make room.
func (d *Disk) Put(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	data, compressed := value, false
	if len(value) > compressThreshold {
		if c := d.encoder.EncodeAll(value, nil); len(c) < len(value) {
			data, compressed = c, true
		}
	}
	size := int64(len(data))

	if size > d.capacity {
		return ErrItemTooLarge
	}
	if old, ok := d.index[key]; ok {
		d.remove(key, old)
	}
	for d.size()+size > d.capacity && len(d.index) > 0 {
		d.evictOldest()
	}

	name := key + ".pcm"
	if compressed {
		name += ".zst"
	}
	if err := writeFile(filepath.Join(d.dir, name), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	d.index[key] = &entry{
		File:       name,
		Size:       size,
		Original:   int64(len(value)),
		Compressed: compressed,
		Created:    now,
		LastAccess: now,
	}
	return nil
}

// Delete removes key from the cache.
func (d *Disk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.index[key]; ok {
		d.remove(key, e)
	}
}

// Clear removes every entry.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, e := range d.index {
		d.remove(key, e)
	}
	return d.saveIndex()
}

// Stats returns a snapshot of the cache metrics.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statsLocked()
}

// Close persists the index and releases the zstd coders. Calling it more
// than once is a no-op.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.saveIndex()
	err = errors.Join(err, d.encoder.Close())
	d.decoder.Close()
	d.logger.Debug("Cache closed", "stats", d.statsLocked())
	return err
}

func (d *Disk) statsLocked() Stats {
	s := d.stats
	s.Size = d.size()
	s.Items = len(d.index)
	return s
}

func (d *Disk) size() int64 {
	var n int64
	for _, e := range d.index {
		n += e.Size
	}
	return n
}

func (d *Disk) remove(key string, e *entry) {
	if err := os.Remove(filepath.Join(d.dir, e.File)); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("Could not remove cache file", "file", e.File, "err", err)
	}
	delete(d.index, key)
}

func (d *Disk) evictOldest() {
	var oldestKey string
	var oldest *entry
	for key, e := range d.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldestKey, oldest = key, e
		}
	}
	if oldest == nil {
		return
	}
	d.remove(oldestKey, oldest)
	d.stats.Evictions++
	d.stats.LastEvict = time.Now()
}

// prune drops index entries whose files have gone missing.
func (d *Disk) prune() {
	for key, e := range d.index {
		if _, err := os.Stat(filepath.Join(d.dir, e.File)); err != nil {
			delete(d.index, key)
		}
	}
}

func (d *Disk) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(d.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &d.index)
}

func (d *Disk) saveIndex() error {
	data, err := json.Marshal(d.index)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(d.dir, indexFile), data)
}

// writeFile writes to a temp file and renames it into place.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
