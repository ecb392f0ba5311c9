package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"tingxie/internal/database"
	"tingxie/internal/repository"
)

const (
	backupVersion   = "2.0"
	defaultLanguage = "zh-TW"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string       `json:"version"`
	ExportedAt   time.Time    `json:"exported_at"`
	DatabaseType string       `json:"database_type"`
	DefaultList  string       `json:"default_list,omitempty"`
	Lists        []ListBackup `json:"lists"`
}

// ListBackup represents a word list with its words in order
type ListBackup struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	Words       []string  `json:"words"`
}

// ImportResult counts what an import did
type ImportResult struct {
	Imported int
	Skipped  int
}

// BackupService exports and imports word lists as JSON, independent of the
// database engine
type BackupService struct {
	db *database.DB
}

func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a backup to outputPath
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(file)
	if err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s (%d lists)", outputPath, len(backup.Lists))
	return nil
}

// ExportToWriter writes a backup as indented JSON
func (s *BackupService) ExportToWriter(w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now(),
		DatabaseType: s.db.GetDialect().MigrationsSubdir(),
	}

	defaultList, err := repository.NewSettingsRepository(s.db).DefaultList()
	if err != nil {
		return nil, fmt.Errorf("failed to export settings: %w", err)
	}
	backup.DefaultList = defaultList

	if err := s.exportLists(backup); err != nil {
		return nil, fmt.Errorf("failed to export lists: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

func (s *BackupService) exportLists(backup *BackupData) error {
	repo := repository.NewListRepository(s.db)

	lists, err := repo.GetAllLists()
	if err != nil {
		return err
	}

	for _, list := range lists {
		words, err := repo.GetListWords(list.ID)
		if err != nil {
			return err
		}
		lb := ListBackup{
			Name:        list.Name,
			Description: list.Description,
			Language:    list.Language,
			CreatedAt:   list.CreatedAt,
			Words:       make([]string, len(words)),
		}
		for i, w := range words {
			lb.Words[i] = w.WordText
		}
		backup.Lists = append(backup.Lists, lb)
	}
	return nil
}

// Import restores lists from a backup file
func (s *BackupService) Import(inputPath string) (*ImportResult, error) {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores lists from a backup stream. Lists whose name
// already exists are skipped; everything else is imported in one transaction.
func (s *BackupService) ImportFromReader(reader io.Reader) (*ImportResult, error) {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	result := &ImportResult{}
	err := s.db.WithTx(func(tx *database.Tx) error {
		repo := repository.NewListRepository(tx)

		for _, lb := range backup.Lists {
			exists, err := repo.ListExists(lb.Name)
			if err != nil {
				return err
			}
			if exists {
				log.Printf("Skipping list %q: already exists", lb.Name)
				result.Skipped++
				continue
			}

			words, err := normalizeWords(lb.Words)
			if err != nil {
				return fmt.Errorf("list %q: %w", lb.Name, err)
			}

			language := lb.Language
			if language == "" {
				language = defaultLanguage
			}
			list, err := repo.CreateList(lb.Name, lb.Description, language)
			if err != nil {
				return err
			}
			for i, text := range words {
				if _, err := repo.AddWord(list.ID, text, i+1); err != nil {
					return err
				}
			}
			result.Imported++
		}

		if backup.DefaultList != "" {
			return repository.NewSettingsRepository(tx).SetDefaultList(backup.DefaultList)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import lists: %w", err)
	}

	log.Printf("Database import completed: %d imported, %d skipped", result.Imported, result.Skipped)
	return result, nil
}
