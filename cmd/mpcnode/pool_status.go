package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/mpclog"
	"github.com/nilmpc/mpcnode/internal/nodeservice"
	"github.com/nilmpc/mpcnode/internal/party"
)

// poolStatusCmd reports each preprocessing element kind's [consumed,
// generated) offsets (spec §6 "Pool status").
func poolStatusCmd() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:   "pool-status",
		Short: "Report preprocessing pool offsets for the configured cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := mpclog.New(mpclog.Config{Level: logrus.InfoLevel})
			f, cluster, err := clusterOnly(configPath, envFile)
			if err != nil {
				return err
			}
			svc := nodeservice.NewCluster(f, cluster, log)

			entries, auxAvailable, err := svc.PoolStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("auxiliary material available: %v\n", auxAvailable)
			fmt.Printf("%-24s %10s %10s\n", "KIND", "CONSUMED", "GENERATED")
			for _, e := range entries {
				fmt.Printf("%-24s %10d %10d\n", e.Kind, e.Consumed, e.Generated)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/devnet.yaml", "cluster config path")
	cmd.Flags().StringVar(&envFile, "env", "", "optional .env overlay path")
	return cmd
}

func clusterOnly(configPath, envFile string) (*field.Field, *party.Cluster, error) {
	_, f, cluster, err := loadCluster(configPath, envFile, true)
	return f, cluster, err
}
