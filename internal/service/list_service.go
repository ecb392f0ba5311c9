package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"tingxie/internal/audio"
	"tingxie/internal/database"
	"tingxie/internal/drill"
	"tingxie/internal/models"
	"tingxie/internal/repository"
)

var (
	ErrListNotFound = errors.New("list not found")
	ErrListExists   = errors.New("a list with this name already exists")

	// ErrInvalidListFile wraps every decode or validation failure of a list file
	ErrInvalidListFile = errors.New("invalid list file")
)

// DefaultListName is the seeded vocabulary list
const DefaultListName = "國語第十課"

var defaultWords = []string{
	"黑皮鞋", "穿戴", "面具", "起飛", "舞者",
	"海洋", "寒冷", "北方", "扁平", "張嘴",
	"伸長", "溫飽", "沙子", "著急", "衣服",
	"站立", "翅膀", "陽光", "充滿", "思念",
}

// ListFile is the TOML representation of a word list
type ListFile struct {
	Name        string   `toml:"name" validate:"required,max=100"`
	Description string   `toml:"description,omitempty" validate:"max=500"`
	Language    string   `toml:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	Words       []string `toml:"words" validate:"required,min=1,dive,required"`
}

// ListService handles word list business logic
type ListService struct {
	db           *database.DB
	listRepo     *repository.ListRepository
	settingsRepo *repository.SettingsRepository
	ttsService   *audio.TTSService
	defaultList  string
	language     string
	validate     *validator.Validate
}

// NewListService creates a new list service. ttsService may be nil, in which
// case no audio is generated. defaultList is used when no default has been
// stored in settings.
func NewListService(db *database.DB, ttsService *audio.TTSService, defaultList, language string) *ListService {
	return &ListService{
		db:           db,
		listRepo:     repository.NewListRepository(db),
		settingsRepo: repository.NewSettingsRepository(db),
		ttsService:   ttsService,
		defaultList:  defaultList,
		language:     language,
		validate:     validator.New(),
	}
}

// SeedDefaultLists creates the built-in list if it doesn't exist and makes it
// the default when no default is set
func (s *ListService) SeedDefaultLists(ctx context.Context) error {
	exists, err := s.listRepo.ListExists(DefaultListName)
	if err != nil {
		return err
	}

	if !exists {
		if _, err := s.CreateList(ctx, DefaultListName, "國語第十課生字詞語", s.language, defaultWords); err != nil {
			return fmt.Errorf("failed to seed default list: %w", err)
		}
		log.Printf("Seeded default list %q with %d words", DefaultListName, len(defaultWords))
	}

	current, err := s.settingsRepo.DefaultList()
	if err != nil {
		return fmt.Errorf("failed to read default list: %w", err)
	}
	if current == "" {
		return s.settingsRepo.SetDefaultList(DefaultListName)
	}
	return nil
}

// normalizeWords trims every word and checks the result forms a valid bank
func normalizeWords(words []string) ([]string, error) {
	cleaned := make([]string, len(words))
	for i, w := range words {
		cleaned[i] = strings.TrimSpace(w)
	}
	if _, err := drill.NewWordBank(cleaned); err != nil {
		return nil, err
	}
	return cleaned, nil
}

// CreateList stores a new list with its words in order
func (s *ListService) CreateList(ctx context.Context, name, description, language string, words []string) (*models.ListWithWords, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("list name is required")
	}
	if language == "" {
		language = s.language
	}

	cleaned, err := normalizeWords(words)
	if err != nil {
		return nil, err
	}

	var result *models.ListWithWords
	err = s.db.WithTx(func(tx *database.Tx) error {
		repo := s.listRepo.WithTx(tx)

		exists, err := repo.ListExists(name)
		if err != nil {
			return err
		}
		if exists {
			return ErrListExists
		}

		list, err := repo.CreateList(name, strings.TrimSpace(description), language)
		if err != nil {
			return err
		}

		result = &models.ListWithWords{List: *list}
		for i, text := range cleaned {
			word, err := repo.AddWord(list.ID, text, i+1)
			if err != nil {
				return err
			}
			result.Words = append(result.Words, *word)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.generateAudio(ctx, result.Words)
	return result, nil
}

// generateAudio creates audio for words, logging rather than failing
func (s *ListService) generateAudio(ctx context.Context, words []models.Word) (generated, failed int) {
	if s.ttsService == nil {
		return 0, 0
	}

	for i := range words {
		word := &words[i]
		filename, err := s.ttsService.GenerateAudioFile(ctx, word.WordText)
		if err != nil {
			log.Printf("Warning: Failed to generate audio for '%s': %v", word.WordText, err)
			failed++
			continue
		}
		if word.AudioFilename == filename {
			continue
		}
		if err := s.listRepo.UpdateWordAudio(word.ID, filename); err != nil {
			log.Printf("Warning: Failed to update audio filename for word %d: %v", word.ID, err)
			failed++
			continue
		}
		word.AudioFilename = filename
		generated++
	}
	return generated, failed
}

// ParseListFile decodes and validates a TOML word list
func (s *ListService) ParseListFile(r io.Reader) (*ListFile, error) {
	var file ListFile
	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidListFile, err)
	}

	if err := s.validate.Struct(file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidListFile, err)
	}

	words, err := normalizeWords(file.Words)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidListFile, err)
	}
	file.Words = words
	return &file, nil
}

// ImportList parses a TOML list from r and stores it
func (s *ListService) ImportList(ctx context.Context, r io.Reader) (*models.ListWithWords, error) {
	file, err := s.ParseListFile(r)
	if err != nil {
		return nil, err
	}
	return s.CreateList(ctx, file.Name, file.Description, file.Language, file.Words)
}

// ImportListFile imports a TOML list from disk
func (s *ListService) ImportListFile(ctx context.Context, path string) (*models.ListWithWords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open list file: %w", err)
	}
	defer f.Close()

	return s.ImportList(ctx, f)
}

// ExportListFile writes a stored list as TOML
func (s *ListService) ExportListFile(name string, w io.Writer) error {
	list, err := s.GetList(name)
	if err != nil {
		return err
	}

	file := ListFile{
		Name:        list.List.Name,
		Description: list.List.Description,
		Language:    list.List.Language,
		Words:       list.Texts(),
	}
	if err := toml.NewEncoder(w).Encode(file); err != nil {
		return fmt.Errorf("failed to encode list file: %w", err)
	}
	return nil
}

// GetList retrieves a list and its words by name
func (s *ListService) GetList(name string) (*models.ListWithWords, error) {
	list, err := s.listRepo.GetListByName(name)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, ErrListNotFound
	}

	words, err := s.listRepo.GetListWords(list.ID)
	if err != nil {
		return nil, err
	}
	return &models.ListWithWords{List: *list, Words: words}, nil
}

// GetAllLists returns every list with its word count
func (s *ListService) GetAllLists() ([]models.ListSummary, error) {
	return s.listRepo.GetAllLists()
}

// DeleteList removes a list and its words
func (s *ListService) DeleteList(listID int64) error {
	list, err := s.listRepo.GetListByID(listID)
	if err != nil {
		return err
	}
	if list == nil {
		return ErrListNotFound
	}

	return s.db.WithTx(func(tx *database.Tx) error {
		return s.listRepo.WithTx(tx).DeleteList(listID)
	})
}

// ResolveDefaultList resolves the list drills start from: the stored setting,
// then the configured default, then the seeded list
func (s *ListService) ResolveDefaultList() (string, error) {
	name, err := s.settingsRepo.DefaultList()
	if err != nil {
		return "", fmt.Errorf("failed to read default list: %w", err)
	}
	if name != "" {
		return name, nil
	}
	if s.defaultList != "" {
		return s.defaultList, nil
	}
	return DefaultListName, nil
}

// SetDefaultList stores name as the default list
func (s *ListService) SetDefaultList(name string) error {
	exists, err := s.listRepo.ListExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return ErrListNotFound
	}
	return s.settingsRepo.SetDefaultList(name)
}

// LoadWordBank builds a word bank from a stored list. An empty name selects
// the default list.
func (s *ListService) LoadWordBank(name string) (*drill.WordBank, *models.WordList, error) {
	if name == "" {
		var err error
		if name, err = s.ResolveDefaultList(); err != nil {
			return nil, nil, err
		}
	}

	list, err := s.GetList(name)
	if err != nil {
		return nil, nil, err
	}

	bank, err := drill.NewWordBank(list.Texts())
	if err != nil {
		return nil, nil, fmt.Errorf("list %q cannot be drilled: %w", name, err)
	}
	return bank, &list.List, nil
}

// GenerateMissingAudio creates audio for every stored word whose clip is
// missing from disk
func (s *ListService) GenerateMissingAudio(ctx context.Context) (generated, failed int, err error) {
	if s.ttsService == nil {
		return 0, 0, errors.New("text-to-speech is not configured")
	}

	words, err := s.listRepo.GetAllWords()
	if err != nil {
		return 0, 0, err
	}

	var missing []models.Word
	for _, word := range words {
		if word.AudioFilename != "" {
			if _, statErr := os.Stat(s.ttsService.AudioPath(word.AudioFilename)); statErr == nil {
				continue
			}
			word.AudioFilename = ""
		}
		missing = append(missing, word)
	}

	generated, failed = s.generateAudio(ctx, missing)
	log.Printf("Audio generation finished: %d generated, %d failed, %d already present",
		generated, failed, len(words)-len(missing))
	return generated, failed, nil
}

// CleanupOrphanedAudioFiles deletes word clips no stored word refers to
func (s *ListService) CleanupOrphanedAudioFiles() (int, error) {
	if s.ttsService == nil {
		return 0, nil
	}

	words, err := s.listRepo.GetAllWords()
	if err != nil {
		return 0, err
	}
	used := make(map[string]bool, len(words))
	for _, word := range words {
		used[s.ttsService.FilenameFor(word.WordText)] = true
	}

	files, err := s.ttsService.GetAllAudioFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, file := range files {
		if used[file] {
			continue
		}
		if err := s.ttsService.DeleteAudioFile(file); err != nil {
			log.Printf("Warning: Failed to delete orphaned audio file %s: %v", file, err)
			continue
		}
		removed++
	}
	return removed, nil
}
