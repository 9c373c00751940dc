package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/party-queue-system/internal/config"
	"github.com/party-queue-system/pkg/database"
	"github.com/party-queue-system/pkg/logger"
	"github.com/party-queue-system/pkg/redis"
	"github.com/party-queue-system/pkg/store"
)

// openStore connects the session store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemory(), noop, nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil
	case config.DriverRedis:
		kv, err := redis.Connect(ctx, redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		})
		if err != nil {
			return nil, noop, err
		}
		return kv, kv.Close, nil
	case config.DriverMySQL:
		db, err := database.NewMySQLStore(cfg.MySQLHost, cfg.MySQLPort, cfg.MySQLUser, cfg.MySQLPassword, cfg.MySQLDatabase)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

var pingStoreCmd = &cobra.Command{
	Use:   "ping-store",
	Short: "Check that the configured session store is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		fmt.Fprintf(cmd.OutOrStdout(), "Store driver: %s\n", cfg.StoreDriver)
		st, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer closeStore()

		key := fmt.Sprintf("partyqueue_ping_%d", time.Now().UnixNano())
		if err := st.Set(ctx, key, []byte("pong")); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		value, err := st.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read: %w", err)
		}
		if string(value) != "pong" {
			return fmt.Errorf("read back %q, want %q", value, "pong")
		}

		logger.Debug("store ping ok", logger.String("driver", cfg.StoreDriver))
		fmt.Fprintln(cmd.OutOrStdout(), "Store is reachable and writable.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingStoreCmd)
}
