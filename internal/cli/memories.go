package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/synapse/internal/config"
	"github.com/lazypower/synapse/internal/graph"
)

var (
	rememberImportance float64
	rememberType       string
	rememberTags       []string

	recallDepth  int
	recallLimit  int
	recallRecent float64
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sys, err := loadSystem(cfg, db)
		if err != nil {
			return err
		}

		node := sys.Remember(args[0], graph.Metadata{
			Importance: rememberImportance,
			Type:       rememberType,
			Tags:       rememberTags,
		})
		if err := saveSystem(cfg, db, sys); err != nil {
			return err
		}

		fmt.Printf("remembered %s\n", node.ID)
		return nil
	},
}

var recallCmd = &cobra.Command{
	Use:   "recall <id> [cue-id...]",
	Short: "Recall memories associated with one or more cues",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sys, err := loadSystem(cfg, db)
		if err != nil {
			return err
		}

		opts := graph.ActivationOpts{MaxDepth: recallDepth, MaxResults: recallLimit}
		var results []graph.ActivationResult
		switch {
		case len(args) > 1:
			results, err = sys.RecallContextual(args, opts)
		case recallRecent > 0:
			results, err = sys.RecallTemporal(args[0], graph.TemporalOpts{
				ActivationOpts: opts,
				TemporalWeight: recallRecent,
			})
		default:
			results, err = sys.Recall(args[0], opts)
		}
		if err != nil {
			return err
		}

		// Recall touches access stats; persist them.
		if err := saveSystem(cfg, db, sys); err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("nothing recalled")
			return nil
		}
		for _, r := range results {
			content := r.Node.Content
			if len(content) > 72 {
				content = content[:72] + "..."
			}
			fmt.Printf("%.4f  %s  %s\n", r.Activation, r.Node.ID, content)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the graph snapshot as JSON (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sys, err := loadSystem(cfg, db)
		if err != nil {
			return err
		}

		data, err := sys.Export()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return os.WriteFile(args[0], data, 0644)
		}
		fmt.Println(string(data))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the graph with a JSON snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sys, err := loadSystem(cfg, db)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if err := sys.Import(data); err != nil {
			return err
		}
		if err := saveSystem(cfg, db, sys); err != nil {
			return err
		}

		stats := sys.Stats()
		fmt.Printf("imported %d nodes, %d edges\n", stats.NodeCount, stats.EdgeCount)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print graph statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sys, err := loadSystem(cfg, db)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(sys.Stats(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var maintainAggressive bool

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run a decay and consolidation sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sys, err := loadSystem(cfg, db)
		if err != nil {
			return err
		}

		result, err := sys.Maintain(graph.MaintenanceOpts{
			Aggressive:    maintainAggressive,
			MaxOperations: cfg.Maintenance.MaxOperations,
		})
		if err != nil {
			return err
		}
		if err := saveSystem(cfg, db, sys); err != nil {
			return err
		}

		for _, line := range result.Log {
			fmt.Println(line)
		}
		fmt.Printf("decayed %d nodes, %d edges\n", result.NodesDecayed, result.EdgesDecayed)
		return nil
	},
}

func init() {
	rememberCmd.Flags().Float64Var(&rememberImportance, "importance", 0, "importance in [0,1] (default 0.5)")
	rememberCmd.Flags().StringVar(&rememberType, "type", "", "memory type")
	rememberCmd.Flags().StringSliceVar(&rememberTags, "tag", nil, "tags (repeatable)")

	recallCmd.Flags().IntVar(&recallDepth, "depth", 2, "max traversal depth")
	recallCmd.Flags().IntVar(&recallLimit, "limit", 10, "max results")
	recallCmd.Flags().Float64Var(&recallRecent, "recency", 0, "temporal weight in [0,1]; blends recency into ranking")

	maintainCmd.Flags().BoolVar(&maintainAggressive, "aggressive", false, "widen every maintenance threshold")
}
