package app

import (
	"context"
	"sync"
	"time"

	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

// DedupConfig holds dedup cache settings.
type DedupConfig struct {
	Cooldown      time.Duration
	Retention     time.Duration
	FlushInterval time.Duration
}

// DefaultDedupConfig returns a five minute cooldown with 24h retention.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		Cooldown:      5 * time.Minute,
		Retention:     24 * time.Hour,
		FlushInterval: time.Minute,
	}
}

// Claim is the stamp taken by a non-duplicate Check. Releasing it restores
// the previous record.
type Claim struct {
	Key  string
	At   time.Time
	prev time.Time
}

// Dedup suppresses repeat alerts within a cooldown. A record is stamped only
// when a check is not a duplicate; duplicate checks leave it untouched.
type Dedup struct {
	cfg    DedupConfig
	store  Store
	logger logger.LoggerInterface
	now    func() time.Time

	mu      sync.Mutex
	records map[string]time.Time
	dirty   bool
}

// NewDedup creates an empty cache backed by store.
func NewDedup(cfg DedupConfig, store Store, log logger.LoggerInterface) *Dedup {
	def := DefaultDedupConfig()
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	return &Dedup{
		cfg:     cfg,
		store:   store,
		logger:  log,
		now:     time.Now,
		records: make(map[string]time.Time),
	}
}

// Load replaces the in-memory records with the persisted ones.
func (d *Dedup) Load(ctx context.Context) error {
	stored, err := d.store.Load(ctx)
	if err != nil {
		return apperror.New(apperror.CodeDedupStoreFailed,
			apperror.WithContext("load"),
			apperror.WithCause(err))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.records = make(map[string]time.Time, len(stored))
	for k, ts := range stored {
		d.records[k] = time.Unix(ts, 0)
	}
	d.dirty = false
	return nil
}

// Check reports whether key was sent within the cooldown. When it was not,
// the key is stamped with the current time and the returned claim can undo
// the stamp.
func (d *Dedup) Check(key string) (Claim, bool) {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.records[key]
	if ok && now.Sub(prev) < d.cfg.Cooldown {
		return Claim{}, true
	}

	d.records[key] = now
	d.dirty = true
	return Claim{Key: key, At: now, prev: prev}, false
}

// Release rolls back a claim whose alert could not be delivered. A newer
// stamp on the same key is kept.
func (d *Dedup) Release(c Claim) {
	if c.Key == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cur, ok := d.records[c.Key]; !ok || !cur.Equal(c.At) {
		return
	}
	if c.prev.IsZero() {
		delete(d.records, c.Key)
	} else {
		d.records[c.Key] = c.prev
	}
	d.dirty = true
}

// Len returns the number of records held.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// Flush prunes records older than the retention and saves the rest.
func (d *Dedup) Flush(ctx context.Context) error {
	cutoff := d.now().Add(-d.cfg.Retention)

	d.mu.Lock()
	for k, ts := range d.records {
		if ts.Before(cutoff) {
			delete(d.records, k)
			d.dirty = true
		}
	}
	if !d.dirty {
		d.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]int64, len(d.records))
	for k, ts := range d.records {
		snapshot[k] = ts.Unix()
	}
	d.dirty = false
	d.mu.Unlock()

	if err := d.store.Save(ctx, snapshot); err != nil {
		d.mu.Lock()
		d.dirty = true
		d.mu.Unlock()
		return apperror.New(apperror.CodeDedupStoreFailed,
			apperror.WithContext("save"),
			apperror.WithCause(err))
	}
	return nil
}

// Run flushes on every interval until ctx is cancelled, then flushes once
// more with a fresh context.
func (d *Dedup) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := d.Flush(flushCtx); err != nil {
				d.logger.Error(flushCtx, "final dedup flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := d.Flush(ctx); err != nil {
				d.logger.Warn(ctx, "dedup flush failed", "error", err)
			}
		}
	}
}
