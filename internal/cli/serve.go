package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/synapse/internal/config"
	"github.com/lazypower/synapse/internal/graph"
	"github.com/lazypower/synapse/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
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

	srv := server.New(sys, db, VersionString())

	// Sweeps go through the server so they share its write lock with the
	// HTTP handlers.
	stopMaintenance := startMaintenanceTimer(srv, cfg)
	defer stopMaintenance()

	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "synapse serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		fmt.Fprintf(os.Stderr, "  nodes: %d\n", sys.Stats().NodeCount)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	// Persist the graph before exit so nothing since the last periodic
	// snapshot is lost.
	if err := srv.PersistSnapshot(cfg.Database.KeepSnapshots); err != nil {
		log.Printf("shutdown snapshot failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// startMaintenanceTimer runs one maintenance sweep at startup and then
// periodically per the configured interval. Returns a stop function.
func startMaintenanceTimer(srv *server.Server, cfg config.Config) func() {
	opts := graph.MaintenanceOpts{
		Aggressive:    cfg.Maintenance.Aggressive,
		MaxOperations: cfg.Maintenance.MaxOperations,
	}

	runSweep := func() {
		if result, err := srv.RunMaintenance(opts); err != nil {
			log.Printf("maintain error: %v", err)
		} else if result.NodesDecayed > 0 || result.NodesPruned > 0 {
			log.Printf("maintain: %d nodes decayed, %d pruned, %d evicted",
				result.NodesDecayed, result.NodesPruned, result.NodesEvicted)
		}
	}

	runSweep()

	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.MaintenanceInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runSweep()
			case <-stopCh:
				return
			}
		}
	}()

	return func() { close(stopCh) }
}
