package main

import (
	"fmt"
	"strings"
	"sync"

	"tingxie/internal/audio"
	"tingxie/internal/config"
	"tingxie/internal/database"
	"tingxie/internal/service"
)

type commandContext struct {
	dbFlag *string

	configOnce sync.Once
	config     *config.Config
}

func newCommandContext(dbFlag *string) *commandContext {
	return &commandContext{dbFlag: dbFlag}
}

func (c *commandContext) configValue() *config.Config {
	c.configOnce.Do(func() {
		cfg := config.Load()
		if c.dbFlag != nil && strings.TrimSpace(*c.dbFlag) != "" {
			cfg.DatabaseType = "sqlite"
			cfg.DatabasePath = strings.TrimSpace(*c.dbFlag)
		}
		c.config = cfg
	})
	return c.config
}

func (c *commandContext) ttsService() *audio.TTSService {
	cfg := c.configValue()
	return audio.NewTTSService(cfg.AudioPath, cfg.TTSLanguage, cfg.TTSSpeed)
}

// withLists opens the database, brings the schema up to date and hands a
// list service to fn. withAudio controls whether stored words get clips.
func (c *commandContext) withLists(withAudio bool, fn func(*service.ListService) error) error {
	cfg := c.configValue()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var tts *audio.TTSService
	if withAudio {
		tts = c.ttsService()
	}
	return fn(service.NewListService(db, tts, cfg.DefaultList, cfg.TTSLanguage))
}
