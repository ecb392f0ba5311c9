package repository

import (
	"database/sql"
	"errors"

	"tingxie/internal/database"
)

const defaultListKey = "default_list"

type SettingsRepository struct {
	db database.DBTX
}

func NewSettingsRepository(db database.DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting retrieves a setting value by key. A missing key yields "" and no error.
func (r *SettingsRepository) GetSetting(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT setting_value FROM settings WHERE setting_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting updates or inserts a setting
func (r *SettingsRepository) SetSetting(key, value string) error {
	_, err := r.db.Exec(r.db.GetDialect().UpsertSettingQuery(), key, value)
	return err
}

// DefaultList returns the name of the list drills start from when none is chosen
func (r *SettingsRepository) DefaultList() (string, error) {
	return r.GetSetting(defaultListKey)
}

// SetDefaultList changes the default list
func (r *SettingsRepository) SetDefaultList(name string) error {
	return r.SetSetting(defaultListKey, name)
}
