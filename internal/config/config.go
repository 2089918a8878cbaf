// Package config loads the configuration a node is constructed from (spec
// §6 "Configuration inputs"): worker count, transport addresses, database
// connection parameters, and the optional area id / broker endpoint used
// by the notification fan-out's broker role. It follows cc-backend's
// internal/config: a .env file loaded first for secrets, then a JSON
// document validated against an embedded JSON Schema and decoded with
// unknown fields rejected.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/arkeindustries/requestcore/pkg/log"
	"github.com/joho/godotenv"
)

// NodeConfig is the full set of inputs spec §6 assigns to "the surrounding
// node" rather than the core itself; main wires fields into the packages
// that need them (db.Connect, registry.New worker count, the transport
// listeners, notify's broker). Epoch is read only by ParseEpoch, which main
// does not call: codec drivers use wire.DefaultEpoch.
type NodeConfig struct {
	Workers           int    `json:"workers"`
	TCPAddr           string `json:"tcp-addr"`
	WSAddr            string `json:"ws-addr"`
	DBDriver          string `json:"db-driver"`
	DBDSN             string `json:"db-dsn"`
	AreaID            uint64 `json:"area-id"`
	BrokerAddr        string `json:"broker-addr"`
	BrokerKind        string `json:"broker-kind"`
	Epoch             string `json:"epoch"`
	JWTKeyEnv         string `json:"jwt-key-env"`
	CacheTickInterval string `json:"cache-tick-interval"`
	MetricsAddr       string `json:"metrics-addr"`
}

// Keys holds the process-wide configuration after Init runs, mirroring
// cc-backend's package-level config.Keys convention.
var Keys = NodeConfig{
	Workers:           1,
	TCPAddr:           ":9000",
	WSAddr:            ":9001",
	DBDriver:          "sqlite3",
	DBDSN:             "./var/requestcore.db",
	BrokerKind:        "tcp",
	CacheTickInterval: "1s",
}

// Init loads (in order) a .env file at envPath if present, then the JSON
// configuration file at configPath, validating it against the embedded
// schema before decoding over Keys's defaults. Any failure here is fatal
// at startup, the same way cc-backend's config.Init treats a malformed
// config file: there is no sensible degraded mode for a node that cannot
// determine its own ports or database.
func Init(envPath, configPath string) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			log.Fatalf("config: load %s: %v", envPath, err)
		}
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		log.Fatalf("config: read %s: %v", configPath, err)
	}

	if err := validate(raw); err != nil {
		log.Fatalf("config: validate %s: %v", configPath, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		log.Fatalf("config: decode %s: %v", configPath, err)
	}

	if Keys.Workers < 1 {
		log.Fatal("config: workers must be >= 1")
	}
}

// ParseEpoch returns Keys.Epoch parsed as an RFC3339 timestamp, or the
// spec-default epoch (2015-01-01T00:00:00Z) when Epoch is unset.
func ParseEpoch() (time.Time, error) {
	if Keys.Epoch == "" {
		return time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(time.RFC3339, Keys.Epoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: epoch %q: %w", Keys.Epoch, err)
	}
	return t, nil
}
