package audio

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"tingxie/internal/drill"
)

// EffectLibrary downloads the correct/wrong feedback clips once and serves
// them from the audio directory
type EffectLibrary struct {
	dir    string
	urls   map[drill.Effect]string
	client *http.Client
}

// NewEffectLibrary creates a library for the two effect clips
func NewEffectLibrary(dir, correctURL, wrongURL string) *EffectLibrary {
	return &EffectLibrary{
		dir: dir,
		urls: map[drill.Effect]string{
			drill.EffectCorrect: correctURL,
			drill.EffectWrong:   wrongURL,
		},
		client: &http.Client{Timeout: ttsRequestTimeout},
	}
}

// Path returns where the clip for kind is cached
func (l *EffectLibrary) Path(kind drill.Effect) string {
	return filepath.Join(l.dir, fmt.Sprintf("effect_%s.mp3", kind))
}

// Ensure downloads any clip that is not cached yet
func (l *EffectLibrary) Ensure(ctx context.Context) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}

	for _, kind := range []drill.Effect{drill.EffectCorrect, drill.EffectWrong} {
		path := l.Path(kind)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if l.urls[kind] == "" {
			return fmt.Errorf("no URL configured for %s effect", kind)
		}
		if err := fetchToFile(ctx, l.client, l.urls[kind], path); err != nil {
			return fmt.Errorf("failed to download %s effect: %w", kind, err)
		}
	}

	return nil
}
