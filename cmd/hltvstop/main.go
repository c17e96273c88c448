// Command hltvstop asks a running scanner to shut down by setting the End
// signal. It takes no arguments.
package main

import (
	"fmt"
	"os"

	"github.com/TobiSchelling/hltvscan/internal/config"
	"github.com/TobiSchelling/hltvscan/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hltvstop: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path, err := config.ResolveConfigPath("")
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RequestEnd(true); err != nil {
		return err
	}
	fmt.Println("Shutdown requested.")
	return nil
}
