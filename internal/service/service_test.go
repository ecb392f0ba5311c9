package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tingxie/internal/audio"
	"tingxie/internal/database"
	"tingxie/internal/drill"
	"tingxie/internal/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations("../../migrations"))
	return db
}

func newTestTTS(t *testing.T) *audio.TTSService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3" + r.URL.Query().Get("q")))
	}))
	t.Cleanup(srv.Close)
	return audio.NewTTSService(t.TempDir(), "zh-TW", 0.8, audio.WithBaseURL(srv.URL))
}

func TestSeedDefaultLists(t *testing.T) {
	db := openTestDB(t)
	lists := NewListService(db, nil, "", "zh-TW")
	ctx := context.Background()

	require.NoError(t, lists.SeedDefaultLists(ctx))
	require.NoError(t, lists.SeedDefaultLists(ctx))

	all, err := lists.GetAllLists()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, DefaultListName, all[0].Name)
	assert.Equal(t, 20, all[0].WordCount)

	bank, list, err := lists.LoadWordBank("")
	require.NoError(t, err)
	assert.Equal(t, DefaultListName, list.Name)
	assert.Equal(t, "黑皮鞋", bank.Get(0))
	assert.Equal(t, "思念", bank.Get(19))
}

func TestCreateListValidation(t *testing.T) {
	db := openTestDB(t)
	lists := NewListService(db, nil, "", "zh-TW")
	ctx := context.Background()

	tests := []struct {
		name    string
		list    string
		words   []string
		wantErr error
	}{
		{name: "empty bank", list: "a", words: nil, wantErr: drill.ErrEmptyBank},
		{name: "blank word", list: "b", words: []string{"海洋", "  "}, wantErr: drill.ErrBlankWord},
		{name: "duplicate after trim", list: "c", words: []string{"海洋", " 海洋"}, wantErr: drill.ErrDuplicateWord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lists.CreateList(ctx, tt.list, "", "", tt.words)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	created, err := lists.CreateList(ctx, "第一課", "desc", "", []string{" 海洋 ", "寒冷"})
	require.NoError(t, err)
	assert.Equal(t, []string{"海洋", "寒冷"}, created.Texts())
	assert.Equal(t, "zh-TW", created.List.Language)

	_, err = lists.CreateList(ctx, "第一課", "", "", []string{"北方"})
	assert.ErrorIs(t, err, ErrListExists)
}

func TestParseListFile(t *testing.T) {
	lists := NewListService(nil, nil, "", "zh-TW")

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "name = \"第二課\"\nlanguage = \"zh-TW\"\nwords = [\"面具\", \"起飛\"]\n"},
		{name: "missing name", input: "words = [\"面具\"]\n", wantErr: true},
		{name: "no words", input: "name = \"x\"\nwords = []\n", wantErr: true},
		{name: "empty word", input: "name = \"x\"\nwords = [\"面具\", \"\"]\n", wantErr: true},
		{name: "duplicate word", input: "name = \"x\"\nwords = [\"面具\", \"面具\"]\n", wantErr: true},
		{name: "bad language", input: "name = \"x\"\nlanguage = \"not a tag\"\nwords = [\"面具\"]\n", wantErr: true},
		{name: "unknown field", input: "name = \"x\"\nwords = [\"面具\"]\ncolour = \"red\"\n", wantErr: true},
		{name: "malformed", input: "name = ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := lists.ParseListFile(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "第二課", file.Name)
			assert.Equal(t, []string{"面具", "起飛"}, file.Words)
		})
	}
}

func TestImportExportList(t *testing.T) {
	db := openTestDB(t)
	lists := NewListService(db, nil, "", "zh-TW")
	ctx := context.Background()

	input := "name = \"第三課\"\ndescription = \"動物\"\nwords = [\"舞者\", \"海洋\", \"寒冷\"]\n"
	_, err := lists.ImportList(ctx, strings.NewReader(input))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, lists.ExportListFile("第三課", &buf))

	file, err := lists.ParseListFile(&buf)
	require.NoError(t, err)
	assert.Equal(t, "動物", file.Description)
	assert.Equal(t, []string{"舞者", "海洋", "寒冷"}, file.Words)

	assert.ErrorIs(t, lists.ExportListFile("missing", &buf), ErrListNotFound)
}

func TestDefaultListResolution(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	lists := NewListService(db, nil, "configured", "zh-TW")
	name, err := lists.ResolveDefaultList()
	require.NoError(t, err)
	assert.Equal(t, "configured", name)

	_, _, err = lists.LoadWordBank("")
	assert.ErrorIs(t, err, ErrListNotFound)

	_, err = lists.CreateList(ctx, "stored", "", "", []string{"沙子"})
	require.NoError(t, err)
	require.NoError(t, lists.SetDefaultList("stored"))
	assert.ErrorIs(t, lists.SetDefaultList("missing"), ErrListNotFound)

	bank, list, err := lists.LoadWordBank("")
	require.NoError(t, err)
	assert.Equal(t, "stored", list.Name)
	assert.Equal(t, []string{"沙子"}, bank.Words())
}

func TestDeleteList(t *testing.T) {
	db := openTestDB(t)
	lists := NewListService(db, nil, "", "zh-TW")

	created, err := lists.CreateList(context.Background(), "tmp", "", "", []string{"衣服", "站立"})
	require.NoError(t, err)

	require.NoError(t, lists.DeleteList(created.List.ID))
	assert.ErrorIs(t, lists.DeleteList(created.List.ID), ErrListNotFound)

	_, err = lists.GetList("tmp")
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestAudioMaintenance(t *testing.T) {
	db := openTestDB(t)
	tts := newTestTTS(t)
	lists := NewListService(db, tts, "", "zh-TW")
	ctx := context.Background()

	created, err := lists.CreateList(ctx, "audio", "", "", []string{"翅膀", "陽光"})
	require.NoError(t, err)
	for _, w := range created.Words {
		assert.Equal(t, tts.FilenameFor(w.WordText), w.AudioFilename)
		assert.FileExists(t, tts.AudioPath(w.AudioFilename))
	}

	require.NoError(t, os.Remove(tts.AudioPath(tts.FilenameFor("陽光"))))
	require.NoError(t, os.WriteFile(tts.AudioPath("word_orphan.mp3"), []byte("x"), 0644))

	generated, failed, err := lists.GenerateMissingAudio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, generated)
	assert.Equal(t, 0, failed)
	assert.FileExists(t, tts.AudioPath(tts.FilenameFor("陽光")))

	removed, err := lists.CleanupOrphanedAudioFiles()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, tts.AudioPath("word_orphan.mp3"))
}

type staticLoader struct {
	words []string
	err   error
}

func (l staticLoader) LoadWordBank(name string) (*drill.WordBank, *models.WordList, error) {
	if l.err != nil {
		return nil, nil, l.err
	}
	bank, err := drill.NewWordBank(l.words)
	if err != nil {
		return nil, nil, err
	}
	return bank, &models.WordList{Name: name}, nil
}

func TestDrillService(t *testing.T) {
	drills := NewDrillService(staticLoader{words: []string{"A", "B"}})
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	drills.now = func() time.Time { return now }

	id, list, err := drills.Start("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", list.Name)
	assert.Equal(t, 1, drills.Count())

	err = drills.With(id, func(s *drill.Session) error {
		assert.True(t, s.SubmitAnswer(context.Background(), "A").IsCorrect())
		assert.Equal(t, drill.TransitionLearningNext, s.Next())
		return nil
	})
	require.NoError(t, err)

	err = drills.With(id, func(s *drill.Session) error {
		assert.Equal(t, "B", s.CurrentWord())
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")

	got, err := drills.List(id)
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)

	assert.ErrorIs(t, drills.With("missing", func(*drill.Session) error { return nil }), ErrSessionNotFound)

	drills.End(id)
	assert.ErrorIs(t, drills.With(id, func(*drill.Session) error { return nil }), ErrSessionNotFound)
}

func TestDrillServiceStartFailure(t *testing.T) {
	drills := NewDrillService(staticLoader{err: ErrListNotFound})
	_, _, err := drills.Start("missing")
	assert.ErrorIs(t, err, ErrListNotFound)
	assert.Zero(t, drills.Count())
}

func TestDrillServiceCleanupExpired(t *testing.T) {
	drills := NewDrillService(staticLoader{words: []string{"A"}})
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	drills.now = func() time.Time { return now }

	idle, _, err := drills.Start("")
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	active, _, err := drills.Start("")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, drills.CleanupExpired(time.Hour))

	assert.ErrorIs(t, drills.With(idle, func(*drill.Session) error { return nil }), ErrSessionNotFound)
	assert.NoError(t, drills.With(active, func(*drill.Session) error { return nil }))
}

func reportSnapshot(t *testing.T) drill.Snapshot {
	t.Helper()
	bank, err := drill.NewWordBank([]string{"海洋", "<寒冷>"})
	require.NoError(t, err)
	s := drill.NewSession(bank)
	ctx := context.Background()
	s.SubmitAnswer(ctx, "海")
	s.Next()
	s.SubmitAnswer(ctx, "<寒冷>")
	return s.Snapshot()
}

func TestRenderSessionReport(t *testing.T) {
	htmlBody, textBody := renderSessionReport("第十課", reportSnapshot(t))

	assert.Contains(t, htmlBody, "正確率 50.0%")
	assert.Contains(t, htmlBody, "&lt;寒冷&gt;")
	assert.NotContains(t, htmlBody, "<寒冷>")
	assert.Contains(t, htmlBody, "待複習：海洋")
	assert.Contains(t, htmlBody, `class="wrong"`)

	assert.Contains(t, textBody, "<寒冷>")
	assert.Contains(t, textBody, "✗ 第 1 題 海洋 → 海")
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSendSessionReport(t *testing.T) {
	ctx := context.Background()
	snap := reportSnapshot(t)

	disabled, err := NewEmailService("us-east-1", "", "", false)
	require.NoError(t, err)
	assert.False(t, disabled.IsEnabled())
	assert.NoError(t, disabled.SendSessionReport(ctx, "parent@example.com", "第十課", snap))

	client := &fakeSES{}
	svc := &EmailService{client: client, fromEmail: "drill@example.com", fromName: "聽寫練習", enabled: true}
	require.NoError(t, svc.SendSessionReport(ctx, "parent@example.com", "第十課", snap))
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "聽寫練習 <drill@example.com>", aws.ToString(client.inputs[0].FromEmailAddress))
	assert.Equal(t, []string{"parent@example.com"}, client.inputs[0].Destination.ToAddresses)
	assert.Contains(t, aws.ToString(client.inputs[0].Content.Simple.Subject.Data), "50.0%")

	assert.Error(t, svc.SendSessionReport(ctx, "", "第十課", snap))

	client.err = errors.New("throttled")
	assert.Error(t, svc.SendSessionReport(ctx, "parent@example.com", "第十課", snap))
}

func TestBackupRoundTrip(t *testing.T) {
	src := openTestDB(t)
	ctx := context.Background()
	srcLists := NewListService(src, nil, "", "zh-TW")
	require.NoError(t, srcLists.SeedDefaultLists(ctx))
	_, err := srcLists.CreateList(ctx, "extra", "", "", []string{"著急", "溫飽"})
	require.NoError(t, err)
	require.NoError(t, srcLists.SetDefaultList("extra"))

	var buf bytes.Buffer
	backup, err := NewBackupService(src).ExportToWriter(&buf)
	require.NoError(t, err)
	assert.Len(t, backup.Lists, 2)
	assert.Equal(t, "sqlite", backup.DatabaseType)

	dst := openTestDB(t)
	result, err := NewBackupService(dst).ImportFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	dstLists := NewListService(dst, nil, "", "zh-TW")
	bank, list, err := dstLists.LoadWordBank("")
	require.NoError(t, err)
	assert.Equal(t, "extra", list.Name)
	assert.Equal(t, []string{"著急", "溫飽"}, bank.Words())

	again, err := NewBackupService(dst).ImportFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported)
	assert.Equal(t, 2, again.Skipped)
}
