package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forbearing/quickdb/config"
	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/dispatch"
	loggerzap "github.com/forbearing/quickdb/logger/zap"
	"github.com/forbearing/quickdb/manager"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/registry"
	"github.com/forbearing/quickdb/schema"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "exercise create/find/update/delete against the dispatch core",
	RunE:  runBench,
}

func bootstrap() error {
	if err := config.Init(); err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	if err := loggerzap.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

func buildConfig() *dbconfig.DatabaseConfig {
	cfg := &dbconfig.DatabaseConfig{
		Alias:  alias,
		DBType: dbconfig.DBType(dbType),
		Pool:   dbconfig.PoolConfig{MaxConns: 10, MaxRetries: 3, RetryInterval: 50 * time.Millisecond},
		IDStrategy: dbconfig.IDStrategy{
			Kind: dbconfig.IDStrategyKind(idStrategy),
		},
	}
	if cfg.DBType == dbconfig.SQLite {
		cfg.SQLite = &dbconfig.SQLiteConn{Path: sqlitePath}
	} else {
		cfg.Host = &dbconfig.HostConn{Host: host, Port: port, Database: database, User: user, Password: password}
	}
	return cfg
}

func benchModel() *schema.ModelMeta {
	meta := schema.NewModelMeta("bench_items")
	meta.AddField("name", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	meta.AddField("value", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeInteger}})
	return meta
}

func runBench(cmd *cobra.Command, args []string) error {
	if err := bootstrap(); err != nil {
		return err
	}
	defer config.Clean()
	defer loggerzap.Clean()

	ctx := context.Background()
	if err := manager.Default.AddDatabase(ctx, buildConfig()); err != nil {
		return fmt.Errorf("add database: %w", err)
	}
	defer manager.Default.Shutdown(ctx)

	if err := registry.RegisterModel(benchModel()); err != nil {
		return fmt.Errorf("register model: %w", err)
	}

	core := dispatch.Default
	ids := make([]string, 0, rows)

	start := time.Now()
	for i := 0; i < rows; i++ {
		row, err := core.Create(ctx, alias, "bench_items", map[string]qvalue.Value{
			"name":  qvalue.String(fmt.Sprintf("item-%d", i)),
			"value": qvalue.I64(int64(i)),
		})
		if err != nil {
			return fmt.Errorf("create row %d: %w", i, err)
		}
		id, _ := row.MapGet("id")
		if s, ok := id.AsString(); ok {
			ids = append(ids, s)
		} else if n, ok := id.AsI64(); ok {
			ids = append(ids, fmt.Sprintf("%d", n))
		}
	}
	createElapsed := time.Since(start)

	start = time.Now()
	for _, id := range ids {
		if _, _, err := core.FindByID(ctx, alias, "bench_items", id); err != nil {
			return fmt.Errorf("find_by_id %s: %w", id, err)
		}
	}
	findColdElapsed := time.Since(start)

	start = time.Now()
	for _, id := range ids {
		if _, _, err := core.FindByID(ctx, alias, "bench_items", id); err != nil {
			return fmt.Errorf("find_by_id (warm) %s: %w", id, err)
		}
	}
	findWarmElapsed := time.Since(start)

	start = time.Now()
	for _, id := range ids {
		if _, err := core.UpdateByID(ctx, alias, "bench_items", id, map[string]qvalue.Value{
			"value": qvalue.I64(-1),
		}); err != nil {
			return fmt.Errorf("update_by_id %s: %w", id, err)
		}
	}
	updateElapsed := time.Since(start)

	start = time.Now()
	for _, id := range ids {
		if _, err := core.DeleteByID(ctx, alias, "bench_items", id); err != nil {
			return fmt.Errorf("delete_by_id %s: %w", id, err)
		}
	}
	deleteElapsed := time.Since(start)

	fmt.Printf("rows: %d\n", len(ids))
	fmt.Printf("create:        %s (%.3fms/op)\n", createElapsed, msPerOp(createElapsed, len(ids)))
	fmt.Printf("find_by_id (cold): %s (%.3fms/op)\n", findColdElapsed, msPerOp(findColdElapsed, len(ids)))
	fmt.Printf("find_by_id (warm): %s (%.3fms/op)\n", findWarmElapsed, msPerOp(findWarmElapsed, len(ids)))
	fmt.Printf("update_by_id:  %s (%.3fms/op)\n", updateElapsed, msPerOp(updateElapsed, len(ids)))
	fmt.Printf("delete_by_id:  %s (%.3fms/op)\n", deleteElapsed, msPerOp(deleteElapsed, len(ids)))

	stats, err := manager.Default.Stats(alias)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Printf("pool: in_use=%d waiting=%d max_conns=%d\n", stats.Pool.InUse, stats.Pool.Waiting, stats.Pool.MaxConns)
	if stats.Cache != nil {
		fmt.Printf("cache: hits=%d misses=%d hit_rate=%.2f%% writes=%d deletes=%d entries=%d avg_latency=%s\n",
			stats.Cache.Hits, stats.Cache.Misses, stats.Cache.HitRate*100, stats.Cache.Writes, stats.Cache.Deletes, stats.Cache.EntryCount, stats.Cache.AvgLatency)
	} else {
		fmt.Println("cache: disabled for this alias")
	}

	return nil
}

func msPerOp(d time.Duration, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(d.Milliseconds()) / float64(n)
}
