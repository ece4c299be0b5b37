package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validYAML = `
parties:
  - id: party-a
  - id: party-b
  - id: party-c
leader: party-a
threshold: 1
prime_preset: test-32bit
preprocessing_batch_sizes:
  MultiplicationTriple: 256
  RandomBoolean: 128
round_timeout_ms: 5000
round_retry_cap: 3
`

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, "cluster.yaml", validYAML)
	cfg, err := Load(path, "")
	require.NoError(t, err)
	require.Len(t, cfg.Parties, 3)
	require.Equal(t, "party-a", cfg.Leader)
	require.Equal(t, 1, cfg.Threshold)
	require.Equal(t, 256, cfg.PreprocessingBatchSizes["MultiplicationTriple"])

	p, err := cfg.Prime()
	require.NoError(t, err)
	require.Equal(t, "8589934583", p.String())
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	bad := `
parties:
  - id: party-a
  - id: party-b
leader: party-a
threshold: 1
prime_preset: test-32bit
round_timeout_ms: 1000
`
	path := writeTemp(t, "cluster.yaml", bad)
	_, err := Load(path, "")
	require.ErrorContains(t, err, "2t < n")
}

func TestLoadRejectsUnknownLeader(t *testing.T) {
	bad := `
parties:
  - id: party-a
  - id: party-b
  - id: party-c
leader: party-z
threshold: 1
prime_preset: test-32bit
round_timeout_ms: 1000
`
	path := writeTemp(t, "cluster.yaml", bad)
	_, err := Load(path, "")
	require.ErrorContains(t, err, "leader")
}

func TestLoadRejectsNonSafePrime(t *testing.T) {
	bad := `
parties:
  - id: party-a
  - id: party-b
  - id: party-c
leader: party-a
threshold: 1
prime: 2147483647
round_timeout_ms: 1000
`
	path := writeTemp(t, "cluster.yaml", bad)
	_, err := Load(path, "")
	require.ErrorContains(t, err, "safe prime")
}

func TestLoadAppliesEnvOverlay(t *testing.T) {
	path := writeTemp(t, "cluster.yaml", validYAML)
	t.Setenv("MPCNODE_ROUND_TIMEOUT_MS", "9999")
	t.Setenv("MPCNODE_INSECURE_FAKE_AUX_INFO", "true")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.RoundTimeoutMS)
	require.True(t, cfg.InsecureFakeAuxInfo)
}

func TestPrimeRejectsBothPrimeAndPreset(t *testing.T) {
	cfg := &ClusterConfig{PrimeStr: "7", PrimePreset: "test-32bit"}
	_, err := cfg.Prime()
	require.ErrorContains(t, err, "mutually exclusive")
}
