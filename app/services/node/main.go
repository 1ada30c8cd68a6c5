package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/nac-codes/blockbard/app/services/node/handlers"
	"github.com/nac-codes/blockbard/foundation/blockchain/genesis"
	"github.com/nac-codes/blockbard/foundation/blockchain/peer"
	"github.com/nac-codes/blockbard/foundation/blockchain/state"
	"github.com/nac-codes/blockbard/foundation/blockchain/storage/snapshot"
	"github.com/nac-codes/blockbard/foundation/blockchain/worker"
	"github.com/nac-codes/blockbard/foundation/events"
	"github.com/nac-codes/blockbard/foundation/logger"
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
		}
		Node struct {
			ExternalURL      string        `conf:"default:http://localhost:8080"`
			TrackerURL       string        `conf:"default:http://localhost:7000"`
			KnownPeers       []string      `conf:""`
			GenesisPath      string        `conf:"default:zblock/genesis.json"`
			SnapshotDir      string        `conf:"default:zblock/snapshots"`
			AutoMine         bool          `conf:"default:false"`
			AutoMineInterval time.Duration `conf:"default:15s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
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

	fmt.Println(` ____  _     ___   ____ _  ______    _    ____  ____  `)
	fmt.Println(`| __ )| |   / _ \ / ___| |/ / __ )  / \  |  _ \|  _ \ `)
	fmt.Println(`|  _ \| |  | | | | |   | ' /|  _ \ / _ \ | |_) | | | |`)
	fmt.Println(`| |_) | |__| |_| | |___| . \| |_) / ___ \|  _ <| |_| |`)
	fmt.Println(`|____/|_____\___/ \____|_|\_\____/_/   \_\_| \_\____/ `)
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
	// Story Chain Support

	// The genesis settings determine the identity of the network. Every node
	// must derive the identical genesis block or nothing else interoperates.
	gen, err := genesis.Load(cfg.Node.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis settings: %w", err)
	}

	// Snapshots are labeled chain dumps for debugging and recovery. The node
	// id in the file names comes from the external URL.
	snapshots, err := snapshot.New(cfg.Node.SnapshotDir, nodeID(cfg.Node.ExternalURL))
	if err != nil {
		return fmt.Errorf("unable to prepare snapshot storage: %w", err)
	}

	// A peer set is a collection of known nodes in the network so blocks and
	// peer lists can be shared. Statically configured peers seed the set; the
	// tracker fills in the rest.
	peerSet := peer.NewPeerSet()
	for _, address := range cfg.Node.KnownPeers {
		peerSet.Add(peer.New(address))
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the story chain node and provides the API
	// for application support.
	st, err := state.New(state.Config{
		Host:       cfg.Node.ExternalURL,
		TrackerURL: cfg.Node.TrackerURL,
		Genesis:    gen,
		KnownPeers: peerSet,
		Snapshots:  snapshots,
		EvHandler:  ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker package implements the different workflows such as mining,
	// chain syncing, and auto mining. The worker will register itself with
	// the state.
	worker.Run(st, ev)

	// Announce this node to the tracker and pull the initial peer list, then
	// let a first sync pass adopt the network's chain before any mining.
	regCtx, regCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.TrackerRegister(regCtx); err != nil {
		log.Infow("startup", "status", "tracker registration failed, continuing solo", "ERROR", err)
	}
	regCancel()
	st.Worker.SignalSync()

	if cfg.Node.AutoMine {
		st.SetAutoMine(true, cfg.Node.AutoMineInterval)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	debugMux := handlers.DebugMux(handlers.MuxConfig{
		Build:    build,
		Shutdown: shutdown,
		Log:      log,
		State:    st,
	})

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing public API support")

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Build:    build,
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
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
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shutdown and shed load.
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// nodeID derives a file name safe identifier for this node from its external
// URL.
func nodeID(externalURL string) string {
	id := externalURL
	if u, err := url.Parse(externalURL); err == nil && u.Host != "" {
		id = u.Host
	}

	return strings.NewReplacer(":", "_", "/", "_", ".", "_").Replace(id)
}
