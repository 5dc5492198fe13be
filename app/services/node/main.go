package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"

	"github.com/quantumpulse/quantumpulse/foundation/events"
	"github.com/quantumpulse/quantumpulse/foundation/ledger"
	"github.com/quantumpulse/quantumpulse/foundation/ledger/genesis"
	"github.com/quantumpulse/quantumpulse/foundation/logger"
)

// build is the git version of this program. It is set using build flags
// in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Ledger struct {
			GenesisPath string        `conf:"default:zblock/genesis.json"`
			BackupDir   string        `conf:"default:zblock/backups"`
			Shard       int           `conf:"default:0"`
			MaxWeight   int           `conf:"default:4000000"`
			MineEvery   time.Duration `conf:"default:30s"`
			TargetBlock time.Duration `conf:"default:30s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Ledger Support

	g, err := genesis.Load(cfg.Ledger.GenesisPath)
	if err != nil {
		log.Infow("startup", "status", "genesis file not found, using defaults", "path", cfg.Ledger.GenesisPath)
		g = genesis.Default()
	}

	// Every ledger event is fanned out to registered subscribers. The
	// console subscriber mirrors the stream into the service log.
	evts := events.New()
	defer evts.Shutdown()

	go func() {
		for msg := range evts.Acquire("console") {
			log.Infow("ledger event", "msg", msg)
		}
	}()

	ldgr, err := ledger.New(ledger.Config{
		Genesis:   g,
		Log:       log,
		BackupDir: cfg.Ledger.BackupDir,
		EvHandler: evts.Signal,
	})
	if err != nil {
		return fmt.Errorf("constructing ledger: %w", err)
	}

	if !ldgr.ValidateChain() {
		return errors.New("genesis chain failed validation")
	}
	log.Infow("startup", "status", "chain validated", "blocks", ldgr.ChainLength())

	// =========================================================================
	// Mining Loop

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Ledger.MineEvery)
	defer ticker.Stop()

	lastMined := time.Now()

	for {
		select {
		case <-ticker.C:
			if !ldgr.CheckMiningLimit() {
				log.Infow("mining", "status", "supply cap reached, mining stopped")
				continue
			}

			block, mined, err := ldgr.MineBlock(cfg.Ledger.Shard, cfg.Ledger.MaxWeight)
			if err != nil {
				log.Errorw("mining", "ERROR", err)
				continue
			}
			if !mined {
				log.Infow("mining", "status", "no solution inside attempt budget")
				continue
			}

			actual := time.Since(lastMined)
			lastMined = time.Now()
			ldgr.Engine().AdjustDifficulty(actual.Seconds(), cfg.Ledger.TargetBlock.Seconds())

			log.Infow("mining", "status", "block mined",
				"block", fmt.Sprintf("%.16s", block.Hash),
				"txs", len(block.Trans),
				"height", ldgr.ChainLength(),
				"supply", ldgr.TotalMinedCoins())

		case sig := <-shutdown:
			log.Infow("shutdown", "status", "shutdown started", "signal", sig)
			ldgr.Audit()
			return nil
		}
	}
}
