package cmd

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/zap"

	"github.com/luma/palrcon/client"
	"github.com/luma/palrcon/internal/env"
	"github.com/luma/palrcon/storage"
)

func loadEnv(ctx context.Context) (*env.Config, *zap.Logger, error) {
	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	log, err := env.MakeLogger(conf.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return conf, log, nil
}

// loadStore reads the server profiles file into a fresh store. A missing
// file leaves the store empty.
func loadStore(ctx context.Context, conf *env.Config, log *zap.Logger) (*storage.InmemoryStore, error) {
	store := storage.NewInmemoryStore()

	n, err := env.LoadServers(ctx, conf.ServersFile, store)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("No servers file, no server profiles loaded", zap.String("path", conf.ServersFile))
			return store, nil
		}

		store.Close()
		return nil, err
	}

	log.Info("Loaded server profiles", zap.String("path", conf.ServersFile), zap.Int("servers", n))
	return store, nil
}

func newClient(ctx context.Context, conf *env.Config, log *zap.Logger) *client.Client {
	return client.New(ctx, client.Options{
		AuthTimeout: conf.AuthTimeout,
		DialTimeout: conf.DialTimeout,
		KeepAlive:   conf.KeepAlive,
		Log:         log.Named("rcon"),
	})
}
