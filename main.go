package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/libp2p/go-libp2p"

	"github.com/meta-node-blockchain/meta-oracle/pkg/accounting"
	"github.com/meta-node-blockchain/meta-oracle/pkg/config"
	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
	"github.com/meta-node-blockchain/meta-oracle/pkg/modules"
	"github.com/meta-node-blockchain/meta-oracle/pkg/oracle"
	"github.com/meta-node-blockchain/meta-oracle/pkg/service"
	"github.com/meta-node-blockchain/meta-oracle/pkg/storage"
)

var logLevels = map[string]int{
	"trace": logger.FLAG_TRACE,
	"debug": logger.FLAG_DEBUG,
	"info":  logger.FLAG_INFO,
	"warn":  logger.FLAG_WARN,
	"error": logger.FLAG_ERROR,
}

func main() {
	configFile := flag.String("config", "config.json", "Configuration file name")
	flag.Parse()

	cfg, err := config.LoadConfigFromFile(*configFile)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger.SetIdentifier("oracle-node")
	if level, ok := logLevels[cfg.LogLevel]; ok {
		logger.SetFlag(level)
	}
	if cfg.LogDir != "" {
		logFile, err := logger.OpenFileOutput(cfg.LogDir, "oracle-node.log")
		if err != nil {
			log.Fatalf("Error opening log file: %v", err)
		}
		defer logFile.Close()
		logger.SetOutputs([]*os.File{os.Stdout, logFile})
		if cfg.LogRetentionDays > 0 {
			cleaner := logger.NewCleaner(cfg.LogDir, time.Duration(cfg.LogRetentionDays)*24*time.Hour)
			cleaner.Start(time.Hour)
			defer cleaner.Stop()
		}
	}

	core := oracle.NewOracle(
		common.HexToAddress(cfg.OracleAddress),
		oracle.NewSequence(0),
		oracle.NewSequence(0),
	)
	ledger := accounting.NewAccounting(core)

	for _, mc := range cfg.Modules {
		addr := common.HexToAddress(mc.Address)
		switch mc.Kind {
		case "bonded_response":
			core.RegisterModule(modules.NewBondedResponseModule(addr, core, ledger))
		case "bonded_dispute":
			core.RegisterModule(modules.NewBondedDisputeModule(addr, core, ledger))
		case "authority_resolution":
			authority := common.HexToAddress(mc.Authority)
			core.RegisterModule(modules.NewAuthorityResolutionModule(addr, core, authority))
		default:
			log.Fatalf("Unknown module kind: %s", mc.Kind)
		}
		logger.Info("main: registered %s module at %s", mc.Kind, addr.Hex())
	}

	var db storage.Storage
	if cfg.Storage.Type != "" {
		db, err = storage.LoadDB(cfg.Storage.Path, cfg.Storage.Type)
		if err != nil {
			log.Fatalf("Error opening storage: %v", err)
		}
		defer db.Close()
		core.SetArchive(oracle.NewArchive(db))
		logger.Info("main: archive on %s storage at %s", cfg.Storage.Type, cfg.Storage.Path)
	}

	if cfg.RemoteStorage.Enabled {
		if db == nil {
			log.Fatalf("Remote storage requires a storage backend")
		}
		host, err := libp2p.New(libp2p.ListenAddrStrings(cfg.RemoteStorage.Listen))
		if err != nil {
			log.Fatalf("Error starting libp2p host: %v", err)
		}
		defer host.Close()
		storage.NewRemoteStorageService(db).RegisterHandlers(host)
		logger.Info("main: archive served to peers as %s", host.ID())
	}

	if cfg.ListenAddress == "" {
		logger.Warn("main: no listen address configured, nothing to serve")
		return
	}

	limits := cfg.RateLimits
	if limits == nil {
		limits = service.DefaultLimits()
	}
	server := service.NewServer(cfg.ListenAddress, service.NewHandler(service.Routes(core, ledger), limits))
	if err := server.Start(); err != nil {
		log.Fatalf("Error starting command service: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("main: shutting down")
	server.Stop()
}
