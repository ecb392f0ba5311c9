package repository

import (
	"database/sql"
	"fmt"
	"time"

	"tingxie/internal/database"
	"tingxie/internal/models"
)

// ListRepository handles database operations for word lists and words
type ListRepository struct {
	db database.DBTX
}

// NewListRepository creates a new list repository
func NewListRepository(db database.DBTX) *ListRepository {
	return &ListRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ListRepository) WithTx(tx *database.Tx) *ListRepository {
	return &ListRepository{db: tx}
}

// CreateList creates a new, empty word list
func (r *ListRepository) CreateList(name, description, language string) (*models.WordList, error) {
	query := "INSERT INTO word_lists (name, description, language) VALUES (?, ?, ?)"
	listID, err := r.db.ExecReturningID(query, name, description, language)
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	now := time.Now()
	return &models.WordList{
		ID:          listID,
		Name:        name,
		Description: description,
		Language:    language,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

const listColumns = "id, name, COALESCE(description, ''), language, created_at, updated_at"

func scanList(row interface{ Scan(...interface{}) error }) (*models.WordList, error) {
	list := &models.WordList{}
	err := row.Scan(
		&list.ID,
		&list.Name,
		&list.Description,
		&list.Language,
		&list.CreatedAt,
		&list.UpdatedAt,
	)
	return list, err
}

// GetListByID retrieves a word list by ID. It returns nil, nil when the list
// does not exist.
func (r *ListRepository) GetListByID(listID int64) (*models.WordList, error) {
	list, err := scanList(r.db.QueryRow("SELECT "+listColumns+" FROM word_lists WHERE id = ?", listID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return list, nil
}

// GetListByName retrieves a word list by its unique name. It returns nil, nil
// when the list does not exist.
func (r *ListRepository) GetListByName(name string) (*models.WordList, error) {
	list, err := scanList(r.db.QueryRow("SELECT "+listColumns+" FROM word_lists WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return list, nil
}

// ListExists checks whether a list with the given name exists
func (r *ListRepository) ListExists(name string) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM word_lists WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check list: %w", err)
	}
	return count > 0, nil
}

// GetAllLists retrieves every list with its word count, ordered by name
func (r *ListRepository) GetAllLists() ([]models.ListSummary, error) {
	query := `
		SELECT wl.id, wl.name, COALESCE(wl.description, ''), wl.language, wl.created_at, wl.updated_at,
		       COUNT(w.id) AS word_count
		FROM word_lists wl
		LEFT JOIN words w ON w.list_id = wl.id
		GROUP BY wl.id, wl.name, wl.description, wl.language, wl.created_at, wl.updated_at
		ORDER BY wl.name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get lists: %w", err)
	}
	defer rows.Close()

	var lists []models.ListSummary
	for rows.Next() {
		var s models.ListSummary
		err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Description,
			&s.Language,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.WordCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, s)
	}

	return lists, rows.Err()
}

// DeleteList deletes a list and, through the foreign key, its words
func (r *ListRepository) DeleteList(listID int64) error {
	if _, err := r.db.Exec("DELETE FROM words WHERE list_id = ?", listID); err != nil {
		return fmt.Errorf("failed to delete words: %w", err)
	}
	if _, err := r.db.Exec("DELETE FROM word_lists WHERE id = ?", listID); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

// AddWord appends a word to a list at the given position
func (r *ListRepository) AddWord(listID int64, wordText string, position int) (*models.Word, error) {
	query := "INSERT INTO words (list_id, position, word_text) VALUES (?, ?, ?)"
	wordID, err := r.db.ExecReturningID(query, listID, position, wordText)
	if err != nil {
		return nil, fmt.Errorf("failed to add word %q: %w", wordText, err)
	}

	return &models.Word{
		ID:        wordID,
		ListID:    listID,
		Position:  position,
		WordText:  wordText,
		CreatedAt: time.Now(),
	}, nil
}

// GetListWords retrieves the words of a list in position order
func (r *ListRepository) GetListWords(listID int64) ([]models.Word, error) {
	query := `
		SELECT id, list_id, position, word_text, audio_filename, created_at
		FROM words
		WHERE list_id = ?
		ORDER BY position, id
	`

	rows, err := r.db.Query(query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to get words: %w", err)
	}
	defer rows.Close()

	var words []models.Word
	for rows.Next() {
		var word models.Word
		err := rows.Scan(
			&word.ID,
			&word.ListID,
			&word.Position,
			&word.WordText,
			&word.AudioFilename,
			&word.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, word)
	}

	return words, rows.Err()
}

// GetAllWords retrieves every stored word across all lists
func (r *ListRepository) GetAllWords() ([]models.Word, error) {
	query := `
		SELECT id, list_id, position, word_text, audio_filename, created_at
		FROM words
		ORDER BY list_id, position, id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get words: %w", err)
	}
	defer rows.Close()

	var words []models.Word
	for rows.Next() {
		var word models.Word
		if err := rows.Scan(&word.ID, &word.ListID, &word.Position, &word.WordText, &word.AudioFilename, &word.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, word)
	}

	return words, rows.Err()
}

// UpdateWordAudio records the generated audio file for a word
func (r *ListRepository) UpdateWordAudio(wordID int64, audioFilename string) error {
	_, err := r.db.Exec("UPDATE words SET audio_filename = ? WHERE id = ?", audioFilename, wordID)
	if err != nil {
		return fmt.Errorf("failed to update word audio: %w", err)
	}
	return nil
}
