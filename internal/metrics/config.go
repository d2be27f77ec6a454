package metrics

import "time"

// Config controls the optional InfluxDB v2 push exporter, its field names
// and defaults adapted from the teacher's own metrics/config.go — trimmed
// to the push path this bank actually uses (no expvar/pprof HTTP server,
// no InfluxDB v1 line protocol: the bank only ever writes to a v2 bucket).
type Config struct {
	Enabled bool `toml:",omitempty"`

	InfluxDBEndpoint     string        `toml:",omitempty"`
	InfluxDBToken        string        `toml:",omitempty"`
	InfluxDBBucket       string        `toml:",omitempty"`
	InfluxDBOrganization string        `toml:",omitempty"`
	InfluxDBTags         string        `toml:",omitempty"`
	PushInterval         time.Duration `toml:",omitempty"`
}

// DefaultConfig mirrors the teacher's metrics.DefaultConfig shape, scoped
// to the fields this bank's push exporter reads.
var DefaultConfig = Config{
	Enabled:              false,
	InfluxDBEndpoint:     "http://localhost:8086",
	InfluxDBBucket:       "chaincash",
	InfluxDBOrganization: "chaincash",
	InfluxDBTags:         "host=localhost",
	PushInterval:         10 * time.Second,
}
