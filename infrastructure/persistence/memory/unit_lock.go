package memory

import (
	"context"
	"sync"
	"time"

	"astraea-backend/application/ports"
)

// UnitLock is an in-process ports.UnitLock. Locks expire after their TTL so
// an abandoned lease cannot wedge a resource, mirroring the DynamoDB lock's
// behavior without any network dependency.
type UnitLock struct {
	mu    sync.Mutex
	locks map[string]lockEntry
}

type lockEntry struct {
	owner     string
	expiresAt time.Time
}

var _ ports.UnitLock = (*UnitLock)(nil)

// NewUnitLock creates an empty in-process lock table.
func NewUnitLock() *UnitLock {
	return &UnitLock{locks: make(map[string]lockEntry)}
}

// Acquire takes the lock for resource, failing with ports.ErrLockHeld when a
// live lease from another owner exists. Re-acquiring with the same owner
// refreshes the TTL.
func (l *UnitLock) Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (ports.LockLease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, ok := l.locks[resource]; ok && entry.expiresAt.After(now) && entry.owner != owner {
		return nil, ports.ErrLockHeld
	}

	l.locks[resource] = lockEntry{owner: owner, expiresAt: now.Add(ttl)}
	return &memoryLease{lock: l, resource: resource, owner: owner}, nil
}

// memoryLease releases the resource if it still belongs to the owner.
type memoryLease struct {
	lock     *UnitLock
	resource string
	owner    string
	once     sync.Once
}

func (m *memoryLease) Release(ctx context.Context) error {
	m.once.Do(func() {
		m.lock.mu.Lock()
		defer m.lock.mu.Unlock()

		if entry, ok := m.lock.locks[m.resource]; ok && entry.owner == m.owner {
			delete(m.lock.locks, m.resource)
		}
	})
	return nil
}
