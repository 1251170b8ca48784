// Command migrate applies or rolls back the database schema in
// migrations/ using goose, the teacher's own migration tool. It reads
// the same layered configuration the other entrypoints do, so it
// connects to whichever database a deploy's config/env points at.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/stracscan/sentinel/internal/common"
)

type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func main() {
	var configFiles configPaths
	flag.Var(&configFiles, "config", "Configuration file path (repeatable, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	migrationsDir := flag.String("migrations", "migrations", "Directory of goose migration files")
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("config/scanner.toml"); err == nil {
			configFiles = append(configFiles, "config/scanner.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", config.Database.ToDBConfig().ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: set dialect: %v\n", err)
		os.Exit(1)
	}

	if err := goose.Run(command, db, *migrationsDir); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %s: %v\n", command, err)
		os.Exit(1)
	}

	fmt.Printf("migrate: %s complete\n", command)
}
