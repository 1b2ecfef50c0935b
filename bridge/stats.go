package bridge

import (
	"github.com/goccy/go-json"

	"github.com/jeffersonwarrior/httpbridge/internal/bufpool"
	"github.com/jeffersonwarrior/httpbridge/internal/cache"
	"github.com/jeffersonwarrior/httpbridge/internal/dedup"
	"github.com/jeffersonwarrior/httpbridge/internal/worker"
)

// Stats is an introspective snapshot of the bridge. It is advisory only:
// the counters may be stale the moment they are read and nothing should
// gate correctness on them.
type Stats struct {
	InFlight int64 `json:"inFlight"`
	Max      int64 `json:"max"`

	Worker worker.Stats  `json:"worker"`
	Cache  cache.Stats   `json:"cache"`
	Dedup  dedup.Stats   `json:"dedup"`
	Pool   bufpool.Stats `json:"buffers"`
}

// Stats returns the current snapshot. Before Init it returns the zero
// value rather than failing; stats must never crash the host.
func (b *Bridge) Stats() Stats {
	if !b.ready {
		return Stats{}
	}

	adm := b.client.AdmissionStats()
	return Stats{
		InFlight: adm.InFlight,
		Max:      adm.Max,
		Worker:   b.pool.Stats(),
		Cache:    b.client.CacheStats(),
		Dedup:    b.client.DedupStats(),
		Pool:     b.buffers.Stats(),
	}
}

// StatsJSON renders the snapshot for the FFI layer.
func (b *Bridge) StatsJSON() []byte {
	data, err := json.Marshal(b.Stats())
	if err != nil {
		return []byte(`{"inFlight":0,"max":0}`)
	}
	return data
}
