package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/venuecore/ticketd/internal/config"
	"github.com/venuecore/ticketd/internal/core/ledger"
	"github.com/venuecore/ticketd/internal/core/oracle"
	"github.com/venuecore/ticketd/internal/rpc"
	"github.com/venuecore/ticketd/internal/storage/kvstore"
	"github.com/venuecore/ticketd/internal/storage/salesindex"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the ticket ledger daemon",
	Long: `Start ticketd, serving:
- HTTP JSON-RPC for ticket, tier, pricing, and admin operations
- WebSocket event subscriptions for committed state changes
- A health check endpoint`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Running ticketd with no subcommand starts the server.
	rootCmd.RunE = serverCmd.RunE
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	storeCfg := kvstore.DefaultConfig()
	storeCfg.Backend = cfg.Store.Backend
	storeCfg.Path = cfg.Store.Path
	storeCfg.CacheSize = cfg.Store.CacheSize
	storeCfg.Compressor = cfg.Store.Compressor

	store, err := kvstore.Open(storeCfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var sales *salesindex.Index
	if cfg.Index.Path != "" {
		sales, err = salesindex.Open(cfg.Index.Path)
		if err != nil {
			return fmt.Errorf("open sales index: %w", err)
		}
		defer sales.Close()
	}

	var source oracle.Source
	if cfg.Oracle.URL != "" {
		source = oracle.NewHTTPSource(cfg.Oracle.URL, time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second)
	}
	var feed *oracle.DexFeed
	var pool oracle.Pool
	if cfg.Dex.URL != "" {
		feed = oracle.NewDexFeed(cfg.Dex.URL)
		pool = feed
	}

	hub := rpc.NewHub()
	defer hub.Close()

	core, err := ledger.New(ledger.Config{
		Store:  ledger.NewStoreView(store),
		Oracle: oracle.NewAdapter(source, pool),
		Sales:  salesRecorder(sales),
		Events: hub,
	})
	if err != nil {
		return fmt.Errorf("build ledger core: %w", err)
	}

	rpcServer := rpc.NewServer(core, sales)

	mux := http.NewServeMux()
	mux.Handle("/", rpcServer)
	mux.Handle(cfg.Server.WsPath, hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"ticketd"}`))
	})

	httpServer := &http.Server{
		Addr:        cfg.Server.ListenAddr,
		Handler:     mux,
		ReadTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
	}

	if !quiet {
		fmt.Println("Starting ticketd")
		fmt.Printf("  - HTTP JSON-RPC: http://%s/\n", cfg.Server.ListenAddr)
		fmt.Printf("  - WebSocket:     ws://%s%s\n", cfg.Server.ListenAddr, cfg.Server.WsPath)
		fmt.Printf("  - Health check:  http://%s/health\n", cfg.Server.ListenAddr)
		fmt.Printf("  - Store:         %s (%s)\n", cfg.Store.Backend, cfg.Store.Path)
		if sales != nil {
			fmt.Printf("  - Sales index:   %s\n", cfg.Index.Path)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if feed != nil {
		g.Go(func() error {
			if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("dex feed: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// salesRecorder avoids handing the core a non-nil interface holding a
// nil *Index.
func salesRecorder(sales *salesindex.Index) ledger.SalesRecorder {
	if sales == nil {
		return nil
	}
	return sales
}
