package txbuilder

import (
	"time"

	"github.com/chaincashlabs/chaincash/contracts"
	"github.com/chaincashlabs/chaincash/internal/metrics"
)

// Builder wires the collaborators every composition needs: the compiled
// contract cache, a wallet box collector, a submitter, and the oracle
// lookup redeem uses for its data input.
type Builder struct {
	Contracts *contracts.Cache
	Collector BoxCollector
	Submitter TxSubmitter
	Oracle    OracleLookup

	// Metrics records each composition call's latency, for the
	// "tx-build-latency" gauge SPEC_FULL.md's domain-stack table names.
	// Defaults to metrics.Noop when left unset.
	Metrics metrics.Sink
}

// New returns a Builder ready to compose and submit all five transaction
// shapes.
func New(contractCache *contracts.Cache, collector BoxCollector, submitter TxSubmitter, oracle OracleLookup) *Builder {
	return &Builder{Contracts: contractCache, Collector: collector, Submitter: submitter, Oracle: oracle, Metrics: metrics.Noop}
}

// metricsSink returns b.Metrics, or metrics.Noop when a Builder was built
// with a struct literal rather than New and never had one assigned.
func (b *Builder) metricsSink() metrics.Sink {
	if b.Metrics == nil {
		return metrics.Noop
	}
	return b.Metrics
}

// observe records d under name+".ms" via the Builder's metrics sink. Each
// composition method calls this with defer and time.Now() at entry.
func (b *Builder) observe(name string, start time.Time) {
	b.metricsSink().Observe(name, time.Since(start))
}
