package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/cache"
	"github.com/d60-Lab/gin-blog/pkg/database"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:          "blog",
		Short:        "Community blog server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("BLOG_CONFIG", configPath)
			}
			return nil
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Manage the page cache",
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached page",
		RunE:  runCacheClear,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (overrides $BLOG_CONFIG)")

	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "run schema migration before serving")
	seedCmd.Flags().IntVar(&seedUsers, "users", 50, "number of users to create")
	seedCmd.Flags().IntVar(&seedPostsPerUser, "posts", 20, "posts per user")
	seedCmd.Flags().IntVar(&seedGroups, "groups", 5, "number of groups")
	seedCmd.Flags().IntVar(&seedFollows, "follows", 10, "authors each user follows")

	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, cacheCmd)
}

// bootstrap 加载配置并初始化日志与数据库
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	return cfg, db, nil
}

func newRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Cache.Backend != "redis" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema migrated")
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Cache.Backend == "memory" {
		fmt.Fprintln(cmd.OutOrStdout(), "memory cache lives inside the server process; nothing to clear")
		return nil
	}
	client := newRedisClient(cfg)
	defer client.Close()
	store, err := cache.New(cfg.Cache, client)
	if err != nil {
		return err
	}
	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "page cache cleared")
	return nil
}
