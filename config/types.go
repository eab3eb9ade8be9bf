package config

// Indexer selects the event store. DSNs starting with postgres:// use
// Postgres, anything else is treated as a sqlite path (":memory:" allowed).
type Indexer struct {
	DSN       string `toml:"DSN"`
	Retention uint64 `toml:"RetentionEvents"`
}

// Auth configures bearer-token caller identification on the RPC server.
type Auth struct {
	JWTSecret     string `toml:"JWTSecret"`
	Issuer        string `toml:"Issuer"`
	TokenTTLHours uint64 `toml:"TokenTTLHours"`
}

// RateLimit bounds per-client request throughput.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Metrics     bool    `toml:"Metrics"`
	Traces      bool    `toml:"Traces"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Pauses lists modules halted at start-up. The farm admin can still toggle
// the on-ledger pause flag independently.
type Pauses struct {
	Farm bool `toml:"Farm"`
}
