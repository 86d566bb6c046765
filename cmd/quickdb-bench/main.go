package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbType   string
	sqlitePath string
	host     string
	port     int
	database string
	user     string
	password string
	idStrategy string
	alias    string
	rows     int
)

var rootCmd = &cobra.Command{
	Use:     "quickdb-bench",
	Short:   "quickdb exerciser and micro-benchmark",
	Long:    "quickdb-bench drives the dispatch core end to end against a live database: add a database, register a model, run a scripted create/find/update/delete sequence, and report timing and cache-hit statistics.",
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbType, "db-type", "sqlite", "backend: sqlite, postgres, mysql, mongodb")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", ":memory:", "sqlite database file (db_type=sqlite)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "localhost", "database host (db_type != sqlite)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "database port (db_type != sqlite)")
	rootCmd.PersistentFlags().StringVar(&database, "database", "quickdb_bench", "database name (db_type != sqlite)")
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "database user (db_type != sqlite)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "database password (db_type != sqlite)")
	rootCmd.PersistentFlags().StringVar(&idStrategy, "id-strategy", "uuid", "id_strategy: auto_increment, uuid, snowflake, object_id")
	rootCmd.PersistentFlags().StringVar(&alias, "alias", "bench", "alias to register the database under")
	rootCmd.PersistentFlags().IntVar(&rows, "rows", 1000, "number of rows to exercise")

	rootCmd.AddCommand(runCmd, bridgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
