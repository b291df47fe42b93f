package cli

import (
	"fmt"
	"log"

	"github.com/lazypower/synapse/internal/config"
	"github.com/lazypower/synapse/internal/memory"
	"github.com/lazypower/synapse/internal/similarity"
	"github.com/lazypower/synapse/internal/store"
)

// openStore opens the snapshot database from config, resolving the
// default path when none is set.
func openStore(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// loadSystem builds a memory system from config and restores the latest
// persisted snapshot, if any.
func loadSystem(cfg config.Config, db *store.DB) (*memory.System, error) {
	sys := memory.New(cfg.GraphOptions(),
		memory.WithDecay(cfg.DecayConfig()),
		memory.WithSimilarity(similarity.Bigram),
	)

	latest, err := db.LatestSnapshot()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if latest != nil {
		if err := sys.Import(latest.Payload); err != nil {
			// A corrupt snapshot should not brick the tool; start fresh
			// and say so.
			log.Printf("snapshot #%d unreadable (%v), starting with an empty graph", latest.ID, err)
		}
	}
	return sys, nil
}

// saveSystem persists the current graph and prunes old snapshots.
func saveSystem(cfg config.Config, db *store.DB, sys *memory.System) error {
	data, err := sys.Export()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	stats := sys.Stats()
	if _, err := db.SaveSnapshot(data, stats.NodeCount, stats.EdgeCount, sys.Now()); err != nil {
		return err
	}
	if _, err := db.PruneSnapshots(cfg.Database.KeepSnapshots); err != nil {
		return err
	}
	return nil
}
