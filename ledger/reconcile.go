/*
reconcile.go - Drift detection between a ledger and its balance cache

PURPOSE:
  The cached balance (current_stock, current_due) is a materialized view;
  the ledger is the source of truth. If the cache write fails after the
  ledger write succeeded, the two drift apart. A reconciliation pass
  recomputes the balance from the full history and corrects the cache,
  reporting what it found.

  Reconciliation corrects the CACHE only. Ledger rows are facts and are
  never touched.
*/
package ledger

// DriftReport is the outcome of one reconciliation pass over one entity.
type DriftReport struct {
	EntityID  string `json:"entity_id"`
	Cached    Amount `json:"-"`
	Computed  Amount `json:"-"`
	Corrected bool   `json:"corrected"`
}

// Drift returns computed minus cached; zero means the cache was truthful.
func (r *DriftReport) Drift() Amount {
	return r.Computed.Sub(r.Cached)
}

// InSync reports whether the cache matched the ledger before any correction.
func (r *DriftReport) InSync() bool {
	return r.Cached.Equal(r.Computed)
}
