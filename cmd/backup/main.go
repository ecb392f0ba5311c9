package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"tingxie/internal/config"
	"tingxie/internal/database"
	"tingxie/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing lists before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	backupService := service.NewBackupService(db)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(backupService, db, *importInput, *importClear)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	log.Printf("Exporting word lists to: %s", outputPath)
	if err := backupService.Export(outputPath); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		log.Printf("Export complete! File size: %.1f KB", float64(fileInfo.Size())/1024)
	}
}

func handleImport(backupService *service.BackupService, db *database.DB, inputPath string, clearData bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatalf("Input file does not exist: %s", inputPath)
	}

	if clearData {
		fmt.Print("WARNING: This will delete all existing word lists. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Println("Import cancelled")
			return
		}

		log.Println("Clearing existing data...")
		if err := clearDatabase(db); err != nil {
			log.Fatalf("Failed to clear database: %v", err)
		}
	}

	log.Printf("Importing word lists from: %s", inputPath)
	result, err := backupService.Import(inputPath)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Import complete! %d imported, %d skipped", result.Imported, result.Skipped)
}

func clearDatabase(db *database.DB) error {
	// Delete in reverse order of dependencies
	tables := []string{"words", "word_lists", "settings"}

	return db.WithTx(func(tx *database.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.Printf("Cleared table: %s", table)
		}
		return nil
	})
}

func printUsage() {
	fmt.Println("聽寫練習 Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export all word lists to a JSON file")
	fmt.Println("  backup import [options]    Import word lists from a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing lists before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Lists that already exist are skipped on import.")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./tingxie.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL (MySQL needs parseTime=true)")
}
