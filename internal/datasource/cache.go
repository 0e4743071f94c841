package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// cachedSampleRecord is the persisted form of one Sample, keyed by
// RFC3339Nano timestamp so bucket iteration yields samples in order.
type cachedSampleRecord struct {
	Value float64 `json:"value"`
}

// CachedSource wraps a DataSource with a bbolt-backed read-through cache:
// every successful Get() persists its samples, and a failing upstream Get()
// falls back to the last persisted samples for that path rather than
// propagating the error — spec.md §4.B explicitly permits DataSource
// implementations to cache.
//
// Bucket layout: one bucket per DataSource name; keys are
// "<path>|<RFC3339Nano timestamp>", values are JSON-encoded
// cachedSampleRecord.
type CachedSource struct {
	inner  DataSource
	db     *bolt.DB
	bucket string
	logger *zap.Logger
	maxAge time.Duration
}

// NewCachedSource opens (or reuses) the bbolt database at dbPath and wraps
// inner with a read-through cache. maxAge bounds how old a fallback sample
// may be before it is discarded instead of served; zero means unbounded.
func NewCachedSource(inner DataSource, dbPath string, maxAge time.Duration, logger *zap.Logger) (*CachedSource, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("datasource.NewCachedSource: open %q: %w", dbPath, err)
	}

	bucket := inner.Name()
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datasource.NewCachedSource: init bucket %q: %w", bucket, err)
	}

	return &CachedSource{inner: inner, db: db, bucket: bucket, logger: logger, maxAge: maxAge}, nil
}

func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) Get(ctx context.Context, path string) ([]Sample, error) {
	samples, err := c.inner.Get(ctx, path)
	if err == nil {
		if persistErr := c.persist(path, samples); persistErr != nil {
			c.logger.Warn("cache persist failed", zap.String("datasource", c.inner.Name()), zap.Error(persistErr))
		}
		return samples, nil
	}

	cached, cacheErr := c.load(path)
	if cacheErr != nil || len(cached) == 0 {
		return nil, err
	}
	c.logger.Warn("datasource read failed, serving cached samples",
		zap.String("datasource", c.inner.Name()), zap.String("path", path), zap.Error(err))
	return cached, nil
}

// temperatureCacheKey and gravityCacheKey build the fixed path keys the
// passthrough getters below cache under, one per identifier, distinct from
// any hierarchical path an operator might pass to Get.
func temperatureCacheKey(identifier string) string { return "__temperature__|" + identifier }
func gravityCacheKey(identifier string) string     { return "__gravity__|" + identifier }

// GetTemperature implements TemperatureGetter, delegating to the inner
// DataSource and falling back to cached samples on failure exactly as Get
// does. Returns an error if inner does not itself implement
// TemperatureGetter.
func (c *CachedSource) GetTemperature(ctx context.Context, identifier string) ([]Sample, error) {
	tg, ok := c.inner.(TemperatureGetter)
	if !ok {
		return nil, fmt.Errorf("datasource.CachedSource: %q does not implement TemperatureGetter", c.inner.Name())
	}
	key := temperatureCacheKey(identifier)
	samples, err := tg.GetTemperature(ctx, identifier)
	if err == nil {
		if persistErr := c.persist(key, samples); persistErr != nil {
			c.logger.Warn("cache persist failed", zap.String("datasource", c.inner.Name()), zap.Error(persistErr))
		}
		return samples, nil
	}
	cached, cacheErr := c.load(key)
	if cacheErr != nil || len(cached) == 0 {
		return nil, err
	}
	c.logger.Warn("temperature read failed, serving cached samples", zap.String("datasource", c.inner.Name()), zap.Error(err))
	return cached, nil
}

// GetGravity is the gravity analogue of GetTemperature.
func (c *CachedSource) GetGravity(ctx context.Context, identifier string) ([]Sample, error) {
	gg, ok := c.inner.(GravityGetter)
	if !ok {
		return nil, fmt.Errorf("datasource.CachedSource: %q does not implement GravityGetter", c.inner.Name())
	}
	key := gravityCacheKey(identifier)
	samples, err := gg.GetGravity(ctx, identifier)
	if err == nil {
		if persistErr := c.persist(key, samples); persistErr != nil {
			c.logger.Warn("cache persist failed", zap.String("datasource", c.inner.Name()), zap.Error(persistErr))
		}
		return samples, nil
	}
	cached, cacheErr := c.load(key)
	if cacheErr != nil || len(cached) == 0 {
		return nil, err
	}
	c.logger.Warn("gravity read failed, serving cached samples", zap.String("datasource", c.inner.Name()), zap.Error(err))
	return cached, nil
}

func (c *CachedSource) persist(path string, samples []Sample) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(c.bucket))
		for _, s := range samples {
			key := fmt.Sprintf("%s|%s", path, s.Timestamp.Format(time.RFC3339Nano))
			data, err := json.Marshal(cachedSampleRecord{Value: s.Value})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *CachedSource) load(path string) ([]Sample, error) {
	var samples []Sample
	prefix := []byte(path + "|")
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(c.bucket))
		cur := b.Cursor()
		for k, v := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cur.Next() {
			ts, err := time.Parse(time.RFC3339Nano, string(k[len(prefix):]))
			if err != nil {
				continue
			}
			if c.maxAge > 0 && time.Since(ts) > c.maxAge {
				continue
			}
			var rec cachedSampleRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			samples = append(samples, Sample{Timestamp: ts, Value: rec.Value})
		}
		return nil
	})
	return samples, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Close releases the underlying bbolt database handle.
func (c *CachedSource) Close() error {
	return c.db.Close()
}
