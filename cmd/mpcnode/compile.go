package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/mir"
	"github.com/nilmpc/mpcnode/internal/plan"
	"github.com/nilmpc/mpcnode/internal/protocol"
)

// compileCmd runs the JIT (spec §4.1 "MIR -> Bytecode -> Protocol DAG")
// over a wire-encoded program binary and reports the resulting plan's
// shape, without running anything: a dry-run for checking a program
// compiles and to see its preprocessing requirements before invoking it
// against a live cluster.
func compileCmd() *cobra.Command {
	var configPath, envFile, programPath string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a MIR program binary and report its plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, f, _, err := loadCluster(configPath, envFile, true)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(programPath)
			if err != nil {
				return fmt.Errorf("mpcnode: reading %s: %w", programPath, err)
			}
			prog, err := mir.Decode(raw)
			if err != nil {
				return fmt.Errorf("mpcnode: decoding %s: %w", programPath, err)
			}
			return compile(f, prog)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/devnet.yaml", "cluster config path (for the field modulus)")
	cmd.Flags().StringVar(&envFile, "env", "", "optional .env overlay path")
	cmd.Flags().StringVar(&programPath, "program", "", "path to a wire-encoded MIR program binary")
	cmd.MarkFlagRequired("program")
	return cmd
}

func compile(f *field.Field, prog *mir.Program) error {
	normalized, err := mir.Normalize(prog)
	if err != nil {
		return fmt.Errorf("mpcnode: normalizing program: %w", err)
	}
	bc, err := bytecode.Lower(f, normalized)
	if err != nil {
		return fmt.Errorf("mpcnode: lowering program: %w", err)
	}
	dag, err := protocol.Translate(bc)
	if err != nil {
		return fmt.Errorf("mpcnode: translating program: %w", err)
	}
	p, err := plan.Build(dag, plan.Parallel)
	if err != nil {
		return fmt.Errorf("mpcnode: planning program: %w", err)
	}
	if err := plan.Validate(p); err != nil {
		return fmt.Errorf("mpcnode: invalid plan: %w", err)
	}

	fmt.Printf("operations: %d\n", bc.OperationsCount())
	fmt.Printf("steps: %d\n", len(p.Steps))
	fmt.Printf("outputs: %d\n", len(dag.Outputs))
	fmt.Println("preprocessing requirements:")
	for _, k := range []protocol.PreprocessingKind{
		protocol.Compare, protocol.DivisionSecretDivisor, protocol.Modulo,
		protocol.EqualityPublicOutput, protocol.TruncPr, protocol.Trunc,
		protocol.EqualitySecretOutput, protocol.RandomInteger, protocol.RandomBoolean,
		protocol.MultiplicationTriple,
	} {
		if n := dag.Requirements.Count(k); n > 0 {
			fmt.Printf("  %-24s %d\n", k, n)
		}
	}
	return nil
}
