package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"voxeldestruct/internal/archive"
	"voxeldestruct/internal/config"
	"voxeldestruct/internal/destruction"
	"voxeldestruct/internal/logging"
	"voxeldestruct/internal/network"
	"voxeldestruct/internal/sim"
	"voxeldestruct/internal/voxel"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to simulation configuration file")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		logrus.WithError(err).Fatal("destructsim failed")
	}
}

func run(cfgPath string) error {
	if _, err := writeConfigFromEnv(cfgPath); err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("close store")
		}
	}()

	ctx, cancel := signalContext(log)
	defer cancel()

	var sinks multiSink
	opts := []sim.Option{sim.WithLogger(log)}
	if cfg.Archive.Enabled {
		arch, err := archive.Open(cfg.Archive, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := arch.Close(); err != nil {
				log.WithError(err).Warn("close archive")
			}
		}()
		sinks = append(sinks, arch)
	}

	var srv *network.Server
	if cfg.Network.Listen != "" {
		srv, err = network.Listen(cfg.Network.Listen, log, cfg.Network.MaxDatagram)
		if err != nil {
			return err
		}
		defer srv.Close()
		feed, err := network.NewFeed(srv, cfg.Simulation.WorldID, cfg.Network.Subscribers)
		if err != nil {
			return err
		}
		if err := feed.Hello(store.Region()); err != nil {
			log.WithError(err).Warn("announce feed")
		}
		sinks = append(sinks, feed)
		opts = append(opts, sim.WithDeltaHandler(feed.Deltas))
		log.WithField("addr", srv.Addr().String()).Info("network feed listening")
	}
	if len(sinks) > 0 {
		opts = append(opts, sim.WithSink(sinks))
	}

	runner, err := sim.New(cfg, store, opts...)
	if err != nil {
		return fmt.Errorf("initialise simulation: %w", err)
	}
	if srv != nil {
		network.HandleSignals(srv, runner.Signal)
		go func() {
			if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Warn("network feed stopped")
			}
		}()
	}

	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("simulation interrupted")
		err = nil
	}
	if err != nil {
		return fmt.Errorf("simulation exited with error: %w", err)
	}

	if path := cfg.Archive.PreviewPath; path != "" {
		if err := voxel.SavePreview(store, previewBounds(runner), path); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		log.WithField("path", path).Info("preview written")
	}
	return nil
}

// multiSink fans completed events out to several sinks.
type multiSink []destruction.EventSink

func (m multiSink) EventCompleted(rec destruction.EventRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.EventCompleted(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openStore(cfg *config.Config, log logrus.FieldLogger) (*voxel.Store, error) {
	region := voxel.NewRegion(cfg.Storage)
	var provider voxel.StorageProvider
	switch cfg.Storage.Backend {
	case "disk":
		if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		provider = voxel.NewDiskStorageProvider(cfg.Storage.Path)
	default:
		provider = voxel.NewMemoryStorageProvider()
	}
	return voxel.NewStore(region, provider, log.WithField("component", "store")), nil
}

// previewBounds covers every scenario structure, or the whole region when
// there are none.
func previewBounds(r *sim.Runner) voxel.Bounds {
	structures := r.Structures()
	if len(structures) == 0 {
		return r.Store().Region().Bounds()
	}
	bounds := structures[0].Env.Bounds()
	for _, st := range structures[1:] {
		b := st.Env.Bounds()
		bounds.Min = voxel.Pos{X: min(bounds.Min.X, b.Min.X), Y: min(bounds.Min.Y, b.Min.Y), Z: min(bounds.Min.Z, b.Min.Z)}
		bounds.Max = voxel.Pos{X: max(bounds.Max.X, b.Max.X), Y: max(bounds.Max.Y, b.Max.Y), Z: max(bounds.Max.Z, b.Max.Z)}
	}
	return bounds
}

func signalContext(log logrus.FieldLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		// Ensure the process terminates if shutdown stalls.
		time.AfterFunc(10*time.Second, func() {
			log.Error("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
