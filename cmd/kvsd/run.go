package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvsd/pkg/content"
	"github.com/cuemby/kvsd/pkg/events"
	"github.com/cuemby/kvsd/pkg/kvs"
	"github.com/cuemby/kvsd/pkg/log"
	"github.com/cuemby/kvsd/pkg/metrics"
	"github.com/cuemby/kvsd/pkg/rootlog"
	"github.com/cuemby/kvsd/pkg/rpc"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the kvsd daemon: Raft root log, content store, and gRPC service",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
		}

		logger := log.WithComponent("run")

		rl, err := rootlog.New(rootlog.Config{
			NodeID:   cfg.NodeID,
			BindAddr: cfg.BindAddr,
			DataDir:  cfg.DataDir,
		})
		if err != nil {
			return fmt.Errorf("run: create root log: %w", err)
		}
		if err := rl.Bootstrap(); err != nil {
			return fmt.Errorf("run: bootstrap root log: %w", err)
		}
		metrics.RegisterComponent("rootlog", true, "bootstrapped")

		broker := events.NewBroker()
		broker.Start()

		go func() {
			for isLeader := range rl.LeaderCh() {
				broker.PublishRootlogLeadership(isLeader)
			}
		}()

		namespaces := make(map[string]*kvs.Namespace, len(cfg.Namespaces))
		var stats []metrics.NamespaceStats
		for _, nsCfg := range cfg.Namespaces {
			store, err := content.NewBoltStore(nsCfg.dataDir(cfg.DataDir), nsCfg.Algo)
			if err != nil {
				return fmt.Errorf("run: open content store for namespace %q: %w", nsCfg.Name, err)
			}
			ns, err := kvs.NewNamespace(nsCfg.Name, nsCfg.Algo, nsCfg.IsPrimary, store, rl)
			if err != nil {
				return fmt.Errorf("run: create namespace %q: %w", nsCfg.Name, err)
			}
			ns.SetTouchHook(broker.PublishCommit)
			ns.SetFailHook(broker.PublishCommitFailed)
			ns.SetMergeHook(broker.PublishTxnMerged)
			ns.SetFallbackHook(broker.PublishTxnFallback)
			ns.SetCheckpointHook(broker.PublishCheckpointed)
			namespaces[nsCfg.Name] = ns
			metrics.RegisterComponent("namespace:"+nsCfg.Name, true, "ready")

			stats = append(stats, metrics.NamespaceStats{
				Name:     nsCfg.Name,
				GetRoot:  func() (string, uint64) { root, seq := ns.GetRoot(); return string(root), seq },
				CacheLen: ns.CacheLen,
			})
		}
		metrics.RegisterComponent("content_store", true, "open")

		server := rpc.NewServer(namespaces, broker)
		serveErrCh := make(chan error, 1)
		go func() {
			serveErrCh <- server.Start(cfg.RPCAddr)
		}()
		metrics.RegisterComponent("rpc", true, "listening on "+cfg.RPCAddr)

		collector := metrics.NewCollector(stats, rl)
		collector.Start()

		metrics.SetVersion(Version)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/healthz", metrics.HealthHandler())
		mux.HandleFunc("/readyz", metrics.ReadyHandler())
		mux.HandleFunc("/livez", metrics.LivenessHandler())
		httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()

		logger.Info().
			Str("node_id", cfg.NodeID).
			Str("rpc_addr", cfg.RPCAddr).
			Str("metrics_addr", cfg.MetricsAddr).
			Msg("kvsd started")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case err := <-serveErrCh:
			if err != nil {
				logger.Error().Err(err).Msg("rpc server exited")
			}
		}

		collector.Stop()
		server.Stop()
		_ = httpServer.Close()
		broker.Stop()
		if err := rl.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("root log shutdown")
		}

		return nil
	},
}
