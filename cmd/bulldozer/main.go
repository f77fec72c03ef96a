// X1-Bulldozer: single-sequencer ledger for low-code application schemas.
//
// This is the main entry point. It loads configuration, opens the ledger
// and serves JSON-RPC until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fortiblox/X1-Bulldozer/pkg/node"
	"github.com/fortiblox/X1-Bulldozer/pkg/rpc"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

// Configuration flags. Flags override the config file and environment.
var (
	configPath  = flag.String("config", "", "Path to a YAML config file")
	dataDir     = flag.String("data-dir", "", "Data directory for accounts, journal and snapshots")
	rpcAddr     = flag.String("rpc-addr", "", "RPC server listen address")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

const statusInterval = time.Minute

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("X1-Bulldozer %s (%s)\n", Version, GitCommit)
		os.Exit(0)
	}
	rpc.Version = Version

	config, err := node.LoadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	if *dataDir != "" {
		config.DataDir = *dataDir
	}
	if *rpcAddr != "" {
		config.RPC.Addr = *rpcAddr
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}

	node.ConfigureLogging(config)
	log := logrus.StandardLogger().WithField("type", "main")
	log.WithField("version", Version).Info("starting X1-Bulldozer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n, err := node.New(config, logrus.NewEntry(logrus.StandardLogger()))
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := n.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start node")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			log.WithField("signal", sig).Info("shutting down")
			if err := n.Stop(); err != nil {
				log.WithError(err).Error("unclean shutdown")
				os.Exit(1)
			}
			return

		case <-ticker.C:
			status := n.Status()
			fields := logrus.Fields{
				"slot":     status.Slot,
				"accounts": status.AccountsCount,
				"uptime":   status.Uptime.Round(time.Second),
			}
			if status.JournalStats != nil {
				fields["transactions"] = status.JournalStats.TransactionCount
			}
			if status.LastError != nil {
				fields["last_error"] = status.LastError.Error()
			}
			log.WithFields(fields).Info("status")
		}
	}
}
