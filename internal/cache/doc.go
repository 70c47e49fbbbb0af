// Package cache stores synthesized speech on disk so repeated text is not
// synthesized twice. Entries are zstd compressed and evicted oldest access
// first once the cache exceeds its capacity.
package cache
