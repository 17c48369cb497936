package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nstehr/skirmish/agent"
	"github.com/nstehr/skirmish/config"
	"github.com/nstehr/skirmish/content"
	"github.com/nstehr/skirmish/encounter"
	"github.com/nstehr/skirmish/ipc"
	"github.com/nstehr/skirmish/resolve"
	"github.com/nstehr/skirmish/rules"
	"github.com/nstehr/skirmish/search"
	"github.com/nstehr/skirmish/telemetry"
)

const banner = `
███████╗██╗  ██╗██╗██████╗ ███╗   ███╗██╗███████╗██╗  ██╗
██╔════╝██║ ██╔╝██║██╔══██╗████╗ ████║██║██╔════╝██║  ██║
███████╗█████╔╝ ██║██████╔╝██╔████╔██║██║███████╗███████║
╚════██║██╔═██╗ ██║██╔══██╗██║╚██╔╝██║██║╚════██║██╔══██║
███████║██║  ██╗██║██║  ██║██║ ╚═╝ ██║██║███████║██║  ██║
╚══════╝╚═╝  ╚═╝╚═╝╚═╝  ╚═╝╚═╝     ╚═╝╚═╝╚══════╝╚═╝  ╚═╝

Tactical Decisions for Grid Combat`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Logger(os.Stdout))

	fmt.Println(banner)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("skirmish failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	slog.Info("starting skirmish", "mode", cfg.Mode, "strategy", cfg.Strategy)

	shutdown, err := telemetry.Setup(ctx, "skirmish", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	var store *content.SQLiteStore
	if cfg.ContentDB != "" {
		if store, err = content.OpenSQLite(cfg.ContentDB); err != nil {
			return err
		}
		defer store.Close()
	}
	source := contentSource(cfg, store)
	cat, err := source(ctx)
	if err != nil {
		return err
	}
	slog.Info("content loaded", "archetypes", len(cat.Archetypes()), "actions", len(cat.Actions()), "encounters", len(cat.Encounters()))

	doctrine := rules.DefaultDoctrine()
	if cfg.DoctrineFile != "" {
		if doctrine, err = agent.LoadDoctrine(cfg.DoctrineFile); err != nil {
			return err
		}
	}
	engine, err := rules.NewEngine(rules.CompileDoctrine(doctrine))
	if err != nil {
		return err
	}

	var network search.Network
	if cfg.NetworkFile != "" {
		if network, err = loadNetwork(cfg.NetworkFile); err != nil {
			return err
		}
	}

	resolver := resolve.New(nil, nil, resolve.Options{CriticalHits: cfg.CriticalHits})
	rt := agent.NewRuntime(cat, resolver, engine, search.DefaultRegistry(network))
	rt.Search = cfg.Search()
	rt.Strategy = cfg.Strategy
	if !rt.Registry.Has(cfg.Strategy) {
		return fmt.Errorf("%w: %s (have %v)", search.ErrUnknownStrategy, cfg.Strategy, rt.Registry.Names())
	}

	if cfg.Mode == config.ModeEstimate {
		return estimate(ctx, cfg, rt)
	}
	return serve(ctx, cfg, rt, agent.NewReloader(rt, source, cfg.DoctrineFile))
}

func contentSource(cfg config.Config, store *content.SQLiteStore) agent.Source {
	if cfg.ContentDir != "" {
		return agent.DirSource(cfg.ContentDir, store)
	}
	return func(ctx context.Context) (*content.Catalog, error) {
		return content.Build(ctx, store)
	}
}

func loadNetwork(path string) (search.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n, err := search.LoadFeedForward(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func estimate(ctx context.Context, cfg config.Config, rt *agent.Runtime) error {
	est, err := encounter.EstimateDifficulty(ctx, rt.Shared(), encounter.EstimateConfig{
		Encounter: cfg.EstimateEncounter,
		Party:     cfg.EstimateParty,
		Strategy:  cfg.Strategy,
		Trials:    cfg.EstimateTrials,
		Workers:   cfg.EstimateWorkers,
		Seed:      cfg.EstimateSeed,
		Search:    cfg.Search(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s (won %d/%d, lost %d, drawn %d, %.1f rounds, %.0f%% party HP lost)\n",
		est.Encounter, est.Rating, est.Wins, est.Trials, est.Losses, est.Draws, est.MeanRounds, est.PartyHPLost*100)
	return nil
}

func serve(ctx context.Context, cfg config.Config, rt *agent.Runtime, reloader *agent.Reloader) error {
	if cfg.WatchContent {
		var dirs []string
		if cfg.ContentDir != "" {
			d, err := content.Dirs(cfg.ContentDir)
			if err != nil {
				return err
			}
			dirs = append(dirs, d...)
		}
		if cfg.DoctrineFile != "" {
			dirs = append(dirs, filepath.Dir(cfg.DoctrineFile))
		}
		if len(dirs) > 0 {
			w, err := content.NewWatcher(dirs...)
			if err != nil {
				return err
			}
			defer w.Close()
			go reloader.Start(ctx, w)
		}
	}

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(cfg.Socket); err != nil {
		return fmt.Errorf("clean up socket %s: %w", cfg.Socket, err)
	}
	listener, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Socket, err)
	}
	defer os.Remove(cfg.Socket)

	slog.Info("listening on domain socket", "path", cfg.Socket)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				slog.Info("shutting down")
				return nil
			default:
				slog.Error("failed to accept connection", "error", err)
				continue
			}
		}
		slog.Info("new connection accepted")
		go handleConn(ctx, conn, rt)
	}
}

func handleConn(ctx context.Context, conn net.Conn, rt *agent.Runtime) {
	c := ipc.NewConnection(conn, nil)
	agent.New(ctx, c, rt)
	c.ReadLoop()
}
