// Command agent runs the log-shipping agent as a long-running daemon: it
// loads configuration, wires sources and sinks through the lifecycle
// manager, and serves an admin HTTP surface until signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/agent"
	"github.com/cloudshuttle/logshuttle/internal/bookmark"
	"github.com/cloudshuttle/logshuttle/internal/config"
	"github.com/cloudshuttle/logshuttle/internal/dependency"
	"github.com/cloudshuttle/logshuttle/internal/logging"
	"github.com/cloudshuttle/logshuttle/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file (defaults to KINESISTAP_CONFIG_PATH)")
	bookmarkDir := flag.String("bookmark-dir", "/var/lib/logshuttle/bookmarks", "directory holding per-source bookmark files")
	adminAddr := flag.String("admin-addr", ":9090", "address the /healthz and /metrics admin server listens on")
	flag.Parse()

	log := logging.NewFromEnv(agent.ServiceName)
	logging.InitDefault(agent.ServiceName, "info", "json")

	tree, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	m := metrics.Init(agent.ServiceName)
	bookmarks := bookmark.NewStore(*bookmarkDir)
	catalogs := agent.NewDefaultCatalogs(log, bookmarks)

	built, err := agent.Build(tree, catalogs, log, m)
	if err != nil {
		log.WithError(err).Error("failed to build pipeline from configuration")
		os.Exit(1)
	}

	metricDefs, err := tree.MetricDefinitions()
	if err != nil {
		log.WithError(err).Error("failed to parse metric definitions")
		os.Exit(1)
	}
	emitter := agent.NewMetricEmitter(metricDefs, log)

	health := metrics.NewHealthChecker()
	health.Register("config", func() error { return nil })
	adminServer := metrics.NewServer(*adminAddr, health)
	go func() {
		if err := adminServer.ListenAndServe(); err != nil {
			log.WithError(err).Warn("admin server stopped unexpectedly")
		}
	}()

	scheduler := agent.NewScheduler(log)
	for id, p := range built.Credentials {
		provider := p
		providerID := id
		if err := scheduler.RegisterFunc("@every 5m", func() {
			if _, err := provider.Refresh(); err != nil {
				log.WithFields(map[string]interface{}{"credentials": providerID}).WithError(err).Warn("scheduled credential refresh failed")
			}
		}); err != nil {
			log.WithError(err).Warn("failed to register credentials housekeeping")
		}
	}

	if err := scheduler.RegisterFunc("@every 1m", emitter.Emit); err != nil {
		log.WithError(err).Warn("failed to register EMF metric housekeeping")
	}

	netDep := dependency.NewAggregate("network", dependency.NewNetworkInterfaceUp("network-interfaces"))
	var netAvailable atomic.Bool
	checkNetwork := func() {
		ok, err := netDep.IsDependencyAvailable(context.Background())
		if err != nil {
			log.WithError(err).Warn("network dependency check failed")
			ok = false
		}
		if ok != netAvailable.Load() {
			log.DependencyTransition(netDep.Name(), fmt.Sprintf("%t", netAvailable.Load()), fmt.Sprintf("%t", ok))
		}
		netAvailable.Store(ok)
		gaugeValue := 0.0
		if ok {
			gaugeValue = 1
		}
		m.DependencyAvailable.WithLabelValues(agent.ServiceName, netDep.Name()).Set(gaugeValue)
	}
	checkNetwork()
	if err := scheduler.RegisterFunc("@every 30s", checkNetwork); err != nil {
		log.WithError(err).Warn("failed to register network dependency housekeeping")
	}
	health.Register("network", func() error {
		if netAvailable.Load() {
			return nil
		}
		return fmt.Errorf("no active non-loopback network interface")
	})

	tagCache := dependency.NewTagCache(dependency.EC2TagFetcher(nil))
	if err := scheduler.RegisterTagCache("@every 10m", tagCache); err != nil {
		log.WithError(err).Warn("failed to register tag cache housekeeping")
	}

	scheduler.Start()
	defer scheduler.Stop()

	sinks, sources := built.Components()
	lm := agent.NewLifecycleManager(sinks, sources, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lm.Start(ctx)
	<-lm.StartCompleted()
	built.RunPipes(ctx)
	log.WithFields(map[string]interface{}{"sinks": len(sinks), "sources": len(sources), "pipes": len(built.Pipes)}).Info("agent started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown requested")
	built.StopPipes(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*agent.MaximumServiceOperationDuration)
	defer stopCancel()
	lm.Stop(stopCtx)
	<-lm.StopCompleted()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = adminServer.Shutdown(shutdownCtx)

	log.Info("shutdown complete")
}
