package audio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tingxie/internal/drill"
)

func newTTSServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Query().Get("q") == "fail" {
			http.Error(w, "nope", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ID3" + r.URL.Query().Get("tl") + r.URL.Query().Get("q")))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateAudioFileCaches(t *testing.T) {
	var hits int32
	srv := newTTSServer(t, &hits)
	dir := t.TempDir()
	tts := NewTTSService(dir, "zh-TW", 0.8, WithBaseURL(srv.URL))

	name, err := tts.GenerateAudioFile(context.Background(), "黑皮鞋")
	require.NoError(t, err)
	assert.Equal(t, tts.FilenameFor("黑皮鞋"), name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "ID3zh-TW黑皮鞋", string(data))

	_, err = tts.GenerateAudioFile(context.Background(), "黑皮鞋")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGenerateAudioFileFailureLeavesNoFile(t *testing.T) {
	var hits int32
	srv := newTTSServer(t, &hits)
	dir := t.TempDir()
	tts := NewTTSService(dir, "zh-TW", 1, WithBaseURL(srv.URL))

	_, err := tts.GenerateAudioFile(context.Background(), "fail")
	require.Error(t, err)

	files, err := tts.GetAllAudioFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFilenameFor(t *testing.T) {
	a := NewTTSService("", "zh-TW", 1)
	b := NewTTSService("", "en", 1)

	assert.Equal(t, a.FilenameFor("海洋"), a.FilenameFor(" 海洋 "))
	assert.NotEqual(t, a.FilenameFor("海洋"), a.FilenameFor("寒冷"))
	assert.NotEqual(t, a.FilenameFor("海洋"), b.FilenameFor("海洋"))
	assert.Regexp(t, `^word_[0-9a-f]{16}\.mp3$`, a.FilenameFor("海洋"))
}

func TestRequestURLSpeed(t *testing.T) {
	tts := NewTTSService("", "zh-TW", 0.8, WithBaseURL("http://tts.local"))
	assert.Contains(t, tts.requestURL("面具"), "ttsspeed=0.80")

	normal := NewTTSService("", "zh-TW", 1, WithBaseURL("http://tts.local"))
	assert.NotContains(t, normal.requestURL("面具"), "ttsspeed")
}

func TestBatchAndDelete(t *testing.T) {
	var hits int32
	srv := newTTSServer(t, &hits)
	tts := NewTTSService(t.TempDir(), "zh-TW", 1, WithBaseURL(srv.URL))

	results, err := tts.BatchGenerateAudio(context.Background(), []string{"起飛", "舞者"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	files, err := tts.GetAllAudioFiles()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	require.NoError(t, tts.DeleteAudioFile(results["起飛"]))
	require.NoError(t, tts.DeleteAudioFile(results["起飛"]))

	files, err = tts.GetAllAudioFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{results["舞者"]}, files)
}

func TestEffectLibraryEnsure(t *testing.T) {
	var hits int32
	srv := newTTSServer(t, &hits)
	lib := NewEffectLibrary(t.TempDir(), srv.URL+"/correct.mp3", srv.URL+"/wrong.mp3")

	require.NoError(t, lib.Ensure(context.Background()))
	require.NoError(t, lib.Ensure(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	assert.FileExists(t, lib.Path(drill.EffectCorrect))
	assert.FileExists(t, lib.Path(drill.EffectWrong))
}

type fakeRunner struct {
	mu      sync.Mutex
	started []string
	stopped []string
}

func (f *fakeRunner) run(ctx context.Context, _, path string) error {
	f.mu.Lock()
	f.started = append(f.started, path)
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	f.stopped = append(f.stopped, path)
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeRunner) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started), len(f.stopped)
}

func newTestPlayer(t *testing.T, limit time.Duration) (*CommandPlayer, *fakeRunner) {
	t.Helper()
	var hits int32
	srv := newTTSServer(t, &hits)
	dir := t.TempDir()

	p := NewCommandPlayer("mpg123",
		NewTTSService(dir, "zh-TW", 1, WithBaseURL(srv.URL)),
		NewEffectLibrary(dir, srv.URL+"/c.mp3", srv.URL+"/w.mp3"),
		limit)
	runner := &fakeRunner{}
	p.run = runner.run
	p.lookPath = func(string) (string, error) { return "/usr/bin/mpg123", nil }
	return p, runner
}

func TestSpeakCancelsPreviousUtterance(t *testing.T) {
	p, runner := newTestPlayer(t, 0)

	require.NoError(t, p.Speak(context.Background(), "海洋"))
	assert.Eventually(t, func() bool {
		started, _ := runner.counts()
		return started == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Speak(context.Background(), "寒冷"))

	assert.Eventually(t, func() bool {
		started, stopped := runner.counts()
		return started == 2 && stopped == 1
	}, time.Second, 5*time.Millisecond)

	p.Close()
	started, stopped := runner.counts()
	assert.Equal(t, 2, started)
	assert.Equal(t, 2, stopped)
}

func TestWrongEffectIsTimeBounded(t *testing.T) {
	p, runner := newTestPlayer(t, 20*time.Millisecond)

	require.NoError(t, p.PlayEffect(context.Background(), drill.EffectWrong))

	assert.Eventually(t, func() bool {
		_, stopped := runner.counts()
		return stopped == 1
	}, time.Second, 5*time.Millisecond)
	p.Close()
}

func TestSpeakWithoutPlayer(t *testing.T) {
	p, _ := newTestPlayer(t, 0)
	p.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	err := p.Speak(context.Background(), "海洋")
	assert.ErrorIs(t, err, drill.ErrSpeechUnavailable)
	assert.False(t, p.Available())
}

// newSlowClipServer answers every request after delay, or when the client
// gives up. Requests for a word in blocked wait until release is closed.
func newSlowClipServer(t *testing.T, delay time.Duration, blocked string, release <-chan struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wait := time.After(delay)
		if blocked != "" && r.URL.Query().Get("q") == blocked {
			wait = nil
		}
		select {
		case <-wait:
		case <-release:
		case <-r.Context().Done():
			return
		}
		w.Write([]byte("ID3" + r.URL.Query().Get("q")))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSlowPlayer(t *testing.T, srv *httptest.Server) (*CommandPlayer, *fakeRunner) {
	t.Helper()
	dir := t.TempDir()
	p := NewCommandPlayer("mpg123",
		NewTTSService(dir, "zh-TW", 1, WithBaseURL(srv.URL)),
		NewEffectLibrary(dir, srv.URL+"/c.mp3", srv.URL+"/w.mp3"),
		time.Second)
	runner := &fakeRunner{}
	p.run = runner.run
	p.lookPath = func(string) (string, error) { return "/usr/bin/mpg123", nil }
	return p, runner
}

func TestPlaybackDoesNotWaitForDownloads(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	srv := newSlowClipServer(t, 1500*time.Millisecond, "", release)
	p, runner := newSlowPlayer(t, srv)
	defer p.Close()

	bank, err := drill.NewWordBank([]string{"海洋", "寒冷"})
	require.NoError(t, err)
	session := drill.NewSession(bank, drill.WithSpeaker(p), drill.WithEffects(p))

	begin := time.Now()
	session.SubmitAnswer(context.Background(), "海")
	assert.Less(t, time.Since(begin), 500*time.Millisecond, "SubmitAnswer waited for the effect download")

	begin = time.Now()
	session.Speak(context.Background())
	assert.Less(t, time.Since(begin), 500*time.Millisecond, "Speak waited for the speech download")

	assert.Eventually(t, func() bool {
		started, _ := runner.counts()
		return started == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSpeakSupersedesPendingDownload(t *testing.T) {
	release := make(chan struct{})
	srv := newSlowClipServer(t, 0, "海洋", release)
	p, runner := newSlowPlayer(t, srv)

	require.NoError(t, p.Speak(context.Background(), "海洋"))
	require.NoError(t, p.Speak(context.Background(), "寒冷"))

	assert.Eventually(t, func() bool {
		started, _ := runner.counts()
		return started == 1
	}, 2*time.Second, 5*time.Millisecond)
	close(release)

	p.Close()
	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.started, 1)
	assert.Equal(t, p.tts.AudioPath(p.tts.FilenameFor("寒冷")), runner.started[0])
}
