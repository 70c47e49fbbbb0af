package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// ErrClosed is returned by Put after Close.
var ErrClosed = errors.New("cache is closed")

// Key derives the cache key for text spoken with a voice model at a rate.
func Key(text, model string, rate float64) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(rate, 'f', 3, 64)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Stats holds cache metrics.
type Stats struct {
	Capacity  int64 // bytes
	Size      int64 // bytes on disk
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
	LastEvict time.Time
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// String summarizes the stats for humans.
func (s Stats) String() string {
	return fmt.Sprintf("%d items, %s of %s, %.0f%% hit rate",
		s.Items,
		humanize.IBytes(uint64(s.Size)),
		humanize.IBytes(uint64(s.Capacity)),
		s.HitRate()*100)
}
