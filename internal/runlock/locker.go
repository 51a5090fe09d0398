// Package runlock defines the mutual-exclusion port that keeps two live runs
// for the same reference date from overlapping.
package runlock

import "context"

// Release frees a held lock. It is safe to call once; releasing a lock that
// has already expired or been taken over is a no-op.
type Release func(ctx context.Context) error

// Locker acquires named, self-expiring locks. Acquire returns
// domain.ErrRunInProgress when name is already held.
type Locker interface {
	Acquire(ctx context.Context, name string) (Release, error)
}
