package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/lattice/app/services/node/handlers"
	"github.com/ardanlabs/lattice/foundation/events"
	"github.com/ardanlabs/lattice/foundation/lattice/genesis"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/store/disk"
	"github.com/ardanlabs/lattice/foundation/logger"
	"github.com/ardanlabs/lattice/foundation/nameservice"
	"github.com/ardanlabs/lattice/foundation/node"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
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
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			CorsOrigins     []string      `conf:"default:*"`
			ProcessRate     int           `conf:"default:200"`
		}
		Ledger struct {
			DBPath      string `conf:"default:zlattice/ledger"`
			InMemory    bool   `conf:"default:false"`
			Sync        bool   `conf:"default:true"`
			Network     string `conf:"default:dev"`
			GenesisFile string
		}
		Quorum struct {
			WeightPeriod time.Duration `conf:"default:5m"`
			MaxSamples   int           `conf:"default:4032"`
		}
		WriteQueue struct {
			MaxSkips int `conf:"default:16"`
		}
		Prune struct {
			Interval time.Duration `conf:"default:0s"`
			Batch    uint64        `conf:"default:1024"`
		}
		NameService struct {
			Folder string `conf:"default:zlattice/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "block-lattice ledger node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
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

	fmt.Println(` _         _   _   _          `)
	fmt.Println(`| |   __ _| |_| |_(_) ___ ___ `)
	fmt.Println(`| |  / _' | __| __| |/ __/ _ \`)
	fmt.Println(`| |_| (_| | |_| |_| | (_|  __/`)
	fmt.Println(`|____\__,_|\__|\__|_|\___\___|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The names come from the key file names in the accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account.Address())
	}

	// =========================================================================
	// Ledger Support

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := logger.EventHandler(log, "00000000-0000-0000-0000-000000000000", evts.Send)

	gen, err := genesis.ForNetwork(cfg.Ledger.Network, cfg.Ledger.GenesisFile)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	backend, err := disk.New(disk.Config{
		Path:     cfg.Ledger.DBPath,
		InMemory: cfg.Ledger.InMemory,
		Sync:     cfg.Ledger.Sync,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("opening ledger database: %w", err)
	}
	st := store.New(backend)

	// The node owns the store from here on and closes it on shutdown.
	n, err := node.New(node.Config{
		Store:         st,
		Genesis:       gen,
		WeightPeriod:  cfg.Quorum.WeightPeriod,
		MaxSamples:    cfg.Quorum.MaxSamples,
		MaxSkips:      cfg.WriteQueue.MaxSkips,
		PruneInterval: cfg.Prune.Interval,
		PruneBatch:    cfg.Prune.Batch,
		EvHandler:     ev,
	})
	if err != nil {
		st.Close()
		return err
	}
	defer func() {
		if err := n.Shutdown(); err != nil {
			log.Errorw("shutdown", "status", "node shutdown", "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	muxCfg := handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Node:     n,
		NS:       ns,
		Evts:     evts,
		Origins:  cfg.Web.CorsOrigins,

		ProcessRate: cfg.Web.ProcessRate,
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      handlers.PublicMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      handlers.PrivateMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
