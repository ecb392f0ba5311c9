package audio

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	ttsRequestTimeout = 10 * time.Second
	defaultTTSURL     = "https://translate.google.com/translate_tts"
	userAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// TTSService turns words into cached MP3 files using Google Translate's
// text-to-speech endpoint
type TTSService struct {
	audioDir string
	language string
	speed    float64
	baseURL  string
	client   *http.Client
}

// TTSOption configures a TTSService
type TTSOption func(*TTSService)

// WithBaseURL points the service at a different TTS endpoint
func WithBaseURL(baseURL string) TTSOption {
	return func(s *TTSService) { s.baseURL = baseURL }
}

// WithHTTPClient sets the client used for TTS requests
func WithHTTPClient(client *http.Client) TTSOption {
	return func(s *TTSService) { s.client = client }
}

// NewTTSService creates a new TTS service writing into audioDir. language is
// a tag such as zh-TW; speed 1.0 is normal rate.
func NewTTSService(audioDir, language string, speed float64, opts ...TTSOption) *TTSService {
	s := &TTSService{
		audioDir: audioDir,
		language: language,
		speed:    speed,
		baseURL:  defaultTTSURL,
		client:   &http.Client{Timeout: ttsRequestTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Language returns the speech language tag
func (s *TTSService) Language() string {
	return s.language
}

// FilenameFor returns the cache filename for text. Words are usually not
// ASCII, so the name is derived from a hash of language and text.
func (s *TTSService) FilenameFor(text string) string {
	sum := sha1.Sum([]byte(s.language + "\x00" + strings.TrimSpace(text)))
	return fmt.Sprintf("word_%s.mp3", hex.EncodeToString(sum[:8]))
}

// AudioPath returns the full path of a file in the audio directory
func (s *TTSService) AudioPath(filename string) string {
	return filepath.Join(s.audioDir, filename)
}

// GenerateAudioFile converts text to speech and saves it as MP3.
// Returns the filename (not full path) on success.
func (s *TTSService) GenerateAudioFile(ctx context.Context, text string) (string, error) {
	filename := s.FilenameFor(text)
	path := s.AudioPath(filename)

	if _, err := os.Stat(path); err == nil {
		return filename, nil
	}

	if err := os.MkdirAll(s.audioDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	if err := fetchToFile(ctx, s.client, s.requestURL(text), path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}

	return filename, nil
}

func (s *TTSService) requestURL(text string) string {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", s.language)
	params.Set("client", "tw-ob")
	params.Set("textlen", strconv.Itoa(len([]rune(text))))
	if s.speed > 0 && s.speed != 1 {
		params.Set("ttsspeed", strconv.FormatFloat(s.speed, 'f', 2, 64))
	}
	return s.baseURL + "?" + params.Encode()
}

// BatchGenerateAudio generates audio files for multiple words. It stops at
// the first failure and returns what was generated so far.
func (s *TTSService) BatchGenerateAudio(ctx context.Context, words []string) (map[string]string, error) {
	results := make(map[string]string)

	for _, word := range words {
		filename, err := s.GenerateAudioFile(ctx, word)
		if err != nil {
			return results, fmt.Errorf("failed to generate audio for '%s': %w", word, err)
		}
		results[word] = filename
	}

	return results, nil
}

// DeleteAudioFile removes an audio file
func (s *TTSService) DeleteAudioFile(filename string) error {
	err := os.Remove(s.AudioPath(filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// GetAllAudioFiles returns the generated word clips in the audio directory
func (s *TTSService) GetAllAudioFiles() ([]string, error) {
	files, err := os.ReadDir(s.audioDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	var audioFiles []string
	for _, file := range files {
		name := file.Name()
		if !file.IsDir() && strings.HasPrefix(name, "word_") && filepath.Ext(name) == ".mp3" {
			audioFiles = append(audioFiles, name)
		}
	}

	return audioFiles, nil
}

// fetchToFile downloads url into path. The file is written under a temporary
// name and renamed, so a failed download never leaves a truncated clip.
func fetchToFile(ctx context.Context, client *http.Client, url, path string) error {
	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}
