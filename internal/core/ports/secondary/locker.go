package secondary

import (
	"context"
	"fmt"
	"sort"
)

// Locker provides keyed mutual exclusion. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// ModuleKey and SuiteKey name the lock scopes used by the services.
func ModuleKey(id fmt.Stringer) string { return "module:" + id.String() }

func SuiteKey(id fmt.Stringer) string { return "suite:" + id.String() }

// LockAll acquires every key in sorted order, skipping duplicates, so that two
// callers locking overlapping key sets can not deadlock. On failure the keys
// already held are released.
func LockAll(ctx context.Context, locker Locker, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	releases := make([]func(), 0, len(sorted))
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for i, key := range sorted {
		if i > 0 && sorted[i-1] == key {
			continue
		}
		release, err := locker.Lock(ctx, key)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		releases = append(releases, release)
	}
	return unlock, nil
}
