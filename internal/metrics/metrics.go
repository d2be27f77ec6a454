// Package metrics is the bank's optional gauge/counter registry and
// InfluxDB v2 push exporter, adapted from the teacher's metrics/config.go
// shape (the teacher's own go-metrics registry was filtered out of the
// retrieval pack entirely — not even present as an indirect dependency —
// so the in-process registry below is a small stdlib map rather than an
// adaptation of a library this pack never carries).
package metrics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/chaincashlabs/chaincash/internal/chainlog"
)

// Sink is the narrow interface the scanner and transaction composer record
// gauges and counters through, so neither package depends on the concrete
// Registry or the InfluxDB client.
type Sink interface {
	SetGauge(name string, value float64)
	IncCounter(name string, delta int64)
	Observe(name string, d time.Duration)
}

// Noop discards every observation. NewPoller and txbuilder.New assign it
// by default, so instrumented call sites never need a nil check.
var Noop Sink = noopSink{}

type noopSink struct{}

func (noopSink) SetGauge(string, float64)    {}
func (noopSink) IncCounter(string, int64)    {}
func (noopSink) Observe(string, time.Duration) {}

// Registry is an in-process gauge/counter table, safe for concurrent use.
// It satisfies Sink directly, and Snapshot feeds the InfluxDB Reporter.
type Registry struct {
	mu       sync.Mutex
	gauges   map[string]float64
	counters map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{gauges: make(map[string]float64), counters: make(map[string]int64)}
}

func (r *Registry) SetGauge(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

func (r *Registry) IncCounter(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

// Observe records d as a gauge in milliseconds under name+".ms", the
// latency convention the Reporter's field naming follows.
func (r *Registry) Observe(name string, d time.Duration) {
	r.SetGauge(name+".ms", float64(d.Milliseconds()))
}

// Snapshot copies the current gauge and counter values out for a single
// push cycle, without holding the lock across the network write.
func (r *Registry) Snapshot() (gauges map[string]float64, counters map[string]int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gauges = make(map[string]float64, len(r.gauges))
	for k, v := range r.gauges {
		gauges[k] = v
	}
	counters = make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	return gauges, counters
}

// Reporter periodically pushes a Registry's snapshot to InfluxDB v2 as a
// single "chaincash" measurement, one field per gauge/counter — the push
// path the teacher's own metrics/influxdb reporter takes, adapted from the
// v1 line-protocol client it uses to the v2 client this module's go.mod
// carries instead.
type Reporter struct {
	client   influxdb2.Client
	write    api.WriteAPIBlocking
	registry *Registry
	tags     map[string]string
	interval time.Duration

	log  *chainlog.Logger
	quit chan struct{}
}

// NewReporter builds a Reporter. It does not start pushing until Start is
// called, and callers that leave Config.Enabled false should not construct
// one at all — Start is the only method that opens a network connection.
func NewReporter(cfg Config, registry *Registry) *Reporter {
	interval := cfg.PushInterval
	if interval <= 0 {
		interval = DefaultConfig.PushInterval
	}
	return &Reporter{
		client:   influxdb2.NewClient(cfg.InfluxDBEndpoint, cfg.InfluxDBToken),
		registry: registry,
		tags:     parseTags(cfg.InfluxDBTags),
		interval: interval,
		log:      chainlog.New("metrics"),
		quit:     make(chan struct{}),
	}
}

func parseTags(s string) map[string]string {
	tags := make(map[string]string)
	if s == "" {
		return tags
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		tags[kv[0]] = kv[1]
	}
	return tags
}

// Start begins the push loop on a background goroutine until ctx is
// cancelled or Stop is called.
func (rep *Reporter) Start(ctx context.Context, org, bucket string) {
	rep.write = rep.client.WriteAPIBlocking(org, bucket)
	go rep.loop(ctx)
}

func (rep *Reporter) loop(ctx context.Context) {
	ticker := time.NewTicker(rep.interval)
	defer ticker.Stop()
	defer rep.client.Close()

	for {
		select {
		case <-ticker.C:
			if err := rep.push(ctx); err != nil {
				rep.log.Warn("influxdb push failed, will retry next interval", "err", err)
			}
		case <-ctx.Done():
			return
		case <-rep.quit:
			return
		}
	}
}

func (rep *Reporter) push(ctx context.Context) error {
	gauges, counters := rep.registry.Snapshot()
	if len(gauges) == 0 && len(counters) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(gauges)+len(counters))
	for k, v := range gauges {
		fields[k] = v
	}
	for k, v := range counters {
		fields[k] = v
	}
	point := influxdb2.NewPoint("chaincash", rep.tags, fields, time.Now())
	if err := rep.write.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("metrics: write point: %w", err)
	}
	return nil
}

// Stop ends the push loop without waiting for the in-flight write.
func (rep *Reporter) Stop() {
	close(rep.quit)
}
