package utils

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DiskCache is a small key/value store for downloaded assets. Entries may
// carry a TTL after which badger stops returning them.
type DiskCache struct {
	db *badger.DB
}

// OpenDiskCache opens or creates a cache at path.
func OpenDiskCache(path string) (*DiskCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return openDiskCache(opts)
}

// OpenMemoryCache returns a cache that lives only as long as the process.
func OpenMemoryCache() (*DiskCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openDiskCache(opts)
}

func openDiskCache(opts badger.Options) (*DiskCache, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DiskCache{db: db}, nil
}

func (c *DiskCache) Close() error {
	return c.db.Close()
}

// Get returns the stored value. ok is false for missing or expired keys.
func (c *DiskCache) Get(key string) (val []byte, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value under key. A ttl of zero keeps it forever.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *DiskCache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
