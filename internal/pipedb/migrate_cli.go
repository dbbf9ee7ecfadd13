package pipedb

import (
	"fmt"
	"log"
	"os"
)

// RunMigrateCommand implements a `migrate <action>` subcommand that manages
// the on-disk pipeline database schema. No command in cmd/ calls it.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		printMigrateHelp()
		os.Exit(1)
	}

	migFS, err := getMigrationsFS()
	if err != nil {
		log.Fatalf("failed to load migrations: %v", err)
	}
	db, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", dbPath, err)
	}
	defer db.Close()

	switch args[0] {
	case "up":
		if err := db.MigrateUp(migFS); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		fmt.Println("pipeline database is up to date")
	case "down":
		if err := db.MigrateDown(migFS); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		fmt.Println("rolled back one migration")
	case "status":
		version, dirty, err := db.MigrateVersion(migFS)
		if err != nil {
			log.Fatalf("migrate status: %v", err)
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
	case "force":
		if len(args) < 2 {
			log.Fatal("usage: specred migrate force <version>")
		}
		var version int
		if _, err := fmt.Sscanf(args[1], "%d", &version); err != nil {
			log.Fatalf("invalid version %q: %v", args[1], err)
		}
		if err := db.MigrateForce(migFS, version); err != nil {
			log.Fatalf("migrate force: %v", err)
		}
	default:
		printMigrateHelp()
		os.Exit(1)
	}
}

func printMigrateHelp() {
	fmt.Println("usage: specred migrate [up|down|status|force <version>]")
}
