package service

import (
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// RunGuard in-process lease keyed by (account, range): at most one run per key is in flight.
type RunGuard struct {
	inflight *xsync.Map[string, string]
}

func NewRunGuard() *RunGuard {
	return &RunGuard{inflight: xsync.NewMap[string, string]()}
}

func guardKey(accountID string, r DateRange) string {
	return strings.Join([]string{accountID, r.From, r.To}, "|")
}

// Acquire leases key for runID. When another run holds it, that run's ID is returned with ok=false.
func (g *RunGuard) Acquire(accountID string, r DateRange, runID string) (holder string, ok bool) {
	holder, loaded := g.inflight.LoadOrStore(guardKey(accountID, r), runID)
	return holder, !loaded
}

// Release frees the lease if runID still holds it.
func (g *RunGuard) Release(accountID string, r DateRange, runID string) {
	g.inflight.Compute(guardKey(accountID, r), func(old string, loaded bool) (string, xsync.ComputeOp) {
		if loaded && old == runID {
			return old, xsync.DeleteOp
		}
		return old, xsync.CancelOp
	})
}

// Holder run currently leasing the key, if any.
func (g *RunGuard) Holder(accountID string, r DateRange) (string, bool) {
	return g.inflight.Load(guardKey(accountID, r))
}

// Len number of in-flight runs.
func (g *RunGuard) Len() int {
	return g.inflight.Size()
}
