package config

import (
	"context"
	"fmt"
	"time"

	"github.com/oddjob-dev/oddjob/internal/store"
)

// Sync detects whether the configuration file differs from what was last
// seen, using the SHA-256 fingerprint persisted under the reserved
// settings key.
//
// When the file is unreadable or invalid, Sync reports no change and
// surfaces the error; the caller decides fallback policy. When the digest
// matches the persisted fingerprint, Sync reports unchanged with zero store
// writes. Otherwise it persists the new digest synchronously — bypassing
// the buffered queue, because the write must be observable before the
// caller proceeds — and returns the change timestamp.
func (c *Config) Sync(ctx context.Context, st *store.Store) (syncedAt time.Time, changed bool, err error) {
	digest, err := c.Load()
	if err != nil {
		return time.Time{}, false, err
	}

	rec, found, err := st.ReadSetting(ctx, store.ConfigHashKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sync config: %w", err)
	}
	if found && rec.Value == digest {
		return time.Time{}, false, nil
	}

	now := time.Now().UTC()
	err = st.PutSetting(ctx, store.SettingRecord{
		Key:   store.ConfigHashKey,
		Value: digest,
	}, now)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sync config: %w", err)
	}

	return now, true, nil
}
