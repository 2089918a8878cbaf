package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(fp, []byte(`{
		"workers": 4,
		"tcp-addr": ":9100",
		"ws-addr": ":9101",
		"db-driver": "sqlite3",
		"db-dsn": "./var/test.db",
		"area-id": 7,
		"broker-addr": "broker.local:9200"
	}`), 0o644))

	Init("", fp)

	require.Equal(t, 4, Keys.Workers)
	require.Equal(t, ":9100", Keys.TCPAddr)
	require.Equal(t, uint64(7), Keys.AreaID)
	require.Equal(t, "broker.local:9200", Keys.BrokerAddr)
}

func TestValidateRejectsUnknownFields(t *testing.T) {
	err := validate([]byte(`{
		"workers": 1,
		"tcp-addr": ":9000",
		"db-driver": "sqlite3",
		"db-dsn": "./var/test.db",
		"not-a-real-field": true
	}`))
	require.Error(t, err)
}

func TestParseEpochDefault(t *testing.T) {
	Keys.Epoch = ""
	epoch, err := ParseEpoch()
	require.NoError(t, err)
	require.Equal(t, 2015, epoch.Year())
}
