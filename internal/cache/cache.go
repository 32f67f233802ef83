// Package cache stores transform results in a bolt database so unchanged
// files are not transformed again.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v2"

	"github.com/JakeChampion/metro-transform/internal/transform"
)

// Bumped whenever the output of Transform changes for the same input.
const formatVersion = 1

var bucketName = []byte("results")

type Cache struct {
	db *bolt.DB
}

type entry struct {
	Code             string `yaml:"code"`
	transform.Result `yaml:",inline"`
}

// Open opens or creates the database at path. It waits at most a second for
// another process to release the file lock.
func Open(path string) (*Cache, error) {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(path, 0644, opts)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key identifies the result of transforming source with options.
func Key(source []byte, options transform.Options) []byte {
	exclude := append([]string(nil), options.OptionalExclude...)
	sort.Strings(exclude)

	h := sha256.New()
	fmt.Fprintf(h, "v%d\x00%s\x00%s\x00%t\x00%q\x00",
		formatVersion, options.Filename, options.GlobalPrefix, options.KeepRequireNames, exclude)
	h.Write(source)
	return h.Sum(nil)
}

// Get returns the cached result for key. The boolean is false on a miss.
func (c *Cache) Get(key []byte) (*transform.Result, bool, error) {
	var e *entry
	err := c.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(bucketName).Get(key)
		if bs == nil {
			return nil
		}
		e = &entry{}
		return yaml.Unmarshal(bs, e)
	})
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %x: %w", key, err)
	}
	if e == nil {
		return nil, false, nil
	}

	result := e.Result
	result.Code = []byte(e.Code)
	return &result, true, nil
}

func (c *Cache) Put(key []byte, result *transform.Result) error {
	bs, err := yaml.Marshal(&entry{Code: string(result.Code), Result: *result})
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, bs)
	})
}

// Len returns the number of cached results.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	return n, err
}
