package main

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/config"
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
)

// loadCluster reads the YAML config at path and builds the field and
// cluster membership every subcommand needs, failing closed on the
// InsecureFakeAuxInfo gate outside devnet mode (SPEC_FULL.md §4
// "ECDSA-AUX-INFO fake.rs variant": refused outside `mpcnode serve
// --devnet`).
func loadCluster(path, envFile string, devnet bool) (*config.ClusterConfig, *field.Field, *party.Cluster, error) {
	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.InsecureFakeAuxInfo && !devnet {
		return nil, nil, nil, fmt.Errorf("mpcnode: insecure_fake_aux_info requires --devnet")
	}

	p, err := cfg.Prime()
	if err != nil {
		return nil, nil, nil, err
	}
	f, err := field.New(p)
	if err != nil {
		return nil, nil, nil, err
	}

	parties := make([]party.Party, len(cfg.Parties))
	for i, pc := range cfg.Parties {
		parties[i] = party.Party{ID: party.ID(pc.ID)}
	}
	cluster, err := party.New(parties, party.ID(cfg.Leader), cfg.Threshold)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, f, cluster, nil
}
