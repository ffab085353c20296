package timeclock

import "sync"

// dedupSet tracks which users have already received a break-exceeded
// notification today. Check-then-add is a single locked step so the
// at-most-one-notification-per-day invariant holds even with the break
// monitor and a user action racing each other.
type dedupSet struct {
	mu   sync.Mutex
	sent map[uint]bool
}

func newDedupSet() *dedupSet {
	return &dedupSet{sent: make(map[uint]bool)}
}

// markIfFirst records the user id and reports whether it was not present.
func (d *dedupSet) markIfFirst(userID uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sent[userID] {
		return false
	}
	d.sent[userID] = true
	return true
}

// clear removes the user id, re-arming the notification for a new day.
func (d *dedupSet) clear(userID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sent, userID)
}
