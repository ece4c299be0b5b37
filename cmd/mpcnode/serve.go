package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nilmpc/mpcnode/internal/mpclog"
	"github.com/nilmpc/mpcnode/internal/nodeservice"
)

// serveCmd brings up a node service surface bound to the configured
// cluster and blocks until interrupted. There is no gRPC listener here
// (SPEC_FULL.md §5 Non-goals: "a Go interface + an in-memory reference
// implementation"); this subcommand exists so a devnet operator has
// something concrete to point a collaborator's transport layer at, and so
// --devnet's InsecureFakeAuxInfo gate has a place to be enforced.
func serveCmd() *cobra.Command {
	var configPath, envFile string
	var devnet bool
	var jsonLogs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Bring up a node service surface for the configured cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := mpclog.New(mpclog.Config{JSON: jsonLogs, Level: logrus.InfoLevel})

			cfg, f, cluster, err := loadCluster(configPath, envFile, devnet)
			if err != nil {
				return err
			}
			svc := nodeservice.NewCluster(f, cluster, log)
			entries, auxAvailable, err := svc.PoolStatus(cmd.Context())
			if err != nil {
				return err
			}

			log.WithField("parties", cluster.N()).
				WithField("threshold", cluster.Threshold()).
				WithField("round_timeout_ms", cfg.RoundTimeoutMS).
				WithField("devnet", devnet).
				WithField("preprocessing_kinds", len(entries)).
				WithField("aux_material_available", auxAvailable).
				Infof("node service ready")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			log.Infof("shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/devnet.yaml", "cluster config path")
	cmd.Flags().StringVar(&envFile, "env", "", "optional .env overlay path")
	cmd.Flags().BoolVar(&devnet, "devnet", false, "allow insecure devnet-only settings")
	cmd.Flags().BoolVar(&jsonLogs, "json", false, "emit JSON logs")
	return cmd
}
