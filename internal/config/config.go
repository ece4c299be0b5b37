// Package config loads a cluster's node configuration from YAML, with an
// environment-variable overlay for local devnets — grounded on
// orbas1-Synnergy/pkg/config's Load/Validate split, adapted from viper to
// gopkg.in/yaml.v3 + github.com/joho/godotenv per this repo's own domain
// stack (SPEC_FULL.md §1.2).
package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nilmpc/mpcnode/internal/field"
)

// PartyConfig names one cluster member; the leader is named separately by
// ClusterConfig.Leader rather than a per-party flag, matching
// internal/party.New's own (parties, leader, threshold) shape.
type PartyConfig struct {
	ID string `yaml:"id"`
}

// BatchSizes maps a preprocessing element kind's name to how many elements
// the generator materialises per batch (spec §3 "generated in batches";
// the pool itself is kind-agnostic about batch size, this is purely a
// generator scheduling knob).
type BatchSizes map[string]int

// ClusterConfig is one node's view of its cluster: membership, threshold,
// field modulus, preprocessing batching, and round-level timeouts/retries
// (spec §7 class 2: "the round driver retries the current round up to a
// configured cap").
type ClusterConfig struct {
	Parties   []PartyConfig `yaml:"parties"`
	Leader    string        `yaml:"leader"`
	Threshold int           `yaml:"threshold"`

	// PrimeStr is the safe prime P as a base-10 string (YAML has no native
	// big-integer scalar type); PrimePreset names a well-known prime
	// instead of spelling it out, mutually exclusive with PrimeStr. Named
	// distinctly from the Prime() method below, since Go forbids a field
	// and method sharing one name.
	PrimeStr    string `yaml:"prime,omitempty"`
	PrimePreset string `yaml:"prime_preset,omitempty"`

	PreprocessingBatchSizes BatchSizes `yaml:"preprocessing_batch_sizes"`

	RoundTimeoutMS int `yaml:"round_timeout_ms"`
	RoundRetryCap  int `yaml:"round_retry_cap"`

	// InsecureFakeAuxInfo gates statemachine/ecdsa.FakeAuxInfo — the
	// deterministic, insecure AUX-INFO generator original_source ships
	// for fast devnets. cmd/mpcnode's loadCluster refuses it outside
	// devnet mode: `serve` without --devnet refuses it, while `compile`
	// and `pool-status` always load in devnet mode (SPEC_FULL.md §4,
	// "ECDSA-AUX-INFO fake.rs variant").
	InsecureFakeAuxInfo bool `yaml:"insecure_fake_aux_info"`
}

// namedPrimes are the presets PrimePreset may reference, each a known safe
// prime (see internal/field.IsSafePrime): p = 2q+1 with q prime.
var namedPrimes = map[string]string{
	"test-32bit": "8589934583", // 2*(2^32-5)+1
}

// Load reads path as YAML into a ClusterConfig, then overlays any
// environment variables present in envFile (godotenv's format; pass "" to
// skip the overlay — e.g. in production where the environment is already
// populated by the orchestrator rather than a checked-in .env file).
func Load(path, envFile string) (*ClusterConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: loading env overlay %s: %w", envFile, err)
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg ClusterConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	applyEnvOverlay(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverlay lets a small set of devnet-relevant fields be overridden
// by environment variables without a full struct-tag-driven decoder —
// these are operational knobs, not secrets, so a minimal explicit list is
// clearer than a reflection-based binder for two fields.
func applyEnvOverlay(cfg *ClusterConfig) {
	if v := os.Getenv("MPCNODE_ROUND_TIMEOUT_MS"); v != "" {
		if ms, err := parseNonNegativeInt(v); err == nil {
			cfg.RoundTimeoutMS = ms
		}
	}
	if v := os.Getenv("MPCNODE_INSECURE_FAKE_AUX_INFO"); v == "true" {
		cfg.InsecureFakeAuxInfo = true
	}
}

func parseNonNegativeInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("config: value %q must be non-negative", s)
	}
	return n, nil
}

// Prime resolves the configured Prime/PrimePreset into a *big.Int, exactly
// one of which must be set.
func (c *ClusterConfig) Prime() (*big.Int, error) {
	if c.PrimeStr != "" && c.PrimePreset != "" {
		return nil, fmt.Errorf("config: prime and prime_preset are mutually exclusive")
	}
	raw := c.PrimeStr
	if c.PrimePreset != "" {
		preset, ok := namedPrimes[c.PrimePreset]
		if !ok {
			return nil, fmt.Errorf("config: unknown prime preset %q", c.PrimePreset)
		}
		raw = preset
	}
	if raw == "" {
		return nil, fmt.Errorf("config: no prime or prime_preset configured")
	}
	p, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("config: malformed prime %q", raw)
	}
	return p, nil
}

// Validate enforces spec §3's cluster-admissibility invariants: 2t < n, a
// leader present among the configured parties, and a safe-prime modulus.
func (c *ClusterConfig) Validate() error {
	n := len(c.Parties)
	if n == 0 {
		return fmt.Errorf("config: cluster must have at least one party")
	}
	if 2*c.Threshold >= n {
		return fmt.Errorf("config: threshold %d violates 2t < n for n=%d", c.Threshold, n)
	}
	leaderFound := false
	for _, p := range c.Parties {
		if p.ID == c.Leader {
			leaderFound = true
			break
		}
	}
	if !leaderFound {
		return fmt.Errorf("config: leader %q is not among the configured parties", c.Leader)
	}
	p, err := c.Prime()
	if err != nil {
		return err
	}
	if !field.IsSafePrime(p) {
		return fmt.Errorf("config: configured prime is not a safe prime")
	}
	if c.RoundTimeoutMS <= 0 {
		return fmt.Errorf("config: round_timeout_ms must be positive")
	}
	if c.RoundRetryCap < 0 {
		return fmt.Errorf("config: round_retry_cap must be non-negative")
	}
	return nil
}
