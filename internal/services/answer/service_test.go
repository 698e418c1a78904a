package answer

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/models"
	"github.com/bobmcallan/insight/internal/storage"
	tcommon "github.com/bobmcallan/insight/tests/common"
)

func newStore(t *testing.T) *storage.MemoryObjectStore {
	t.Helper()
	return storage.NewMemoryObjectStore("docs", storage.PublicURLBuilder{Style: storage.URLStylePath, BaseURL: "http://localhost:8080/files"})
}

func putRecord(t *testing.T, store *storage.MemoryObjectStore, key string, kind models.DocumentKind, data []byte) models.DocumentRecord {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), key, data, storage.ContentTypeForKey(key)))
	return models.DocumentRecord{
		Filename:       key,
		Kind:           kind,
		EventDate:      "2024-02-20",
		EventTitle:     "Q4 2023",
		StorageLocator: store.Locator(key),
		PublicURL:      store.PublicURL(key),
		ContentType:    storage.ContentTypeForKey(key),
	}
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t,
		"You are a senior financial analyst. Review the attached documents and provide a detailed and structured answer to the user's query. User's query: 'What was revenue?'",
		BuildPrompt("What was revenue?"))
}

func TestFormatSources(t *testing.T) {
	assert.Empty(t, FormatSources(nil))

	got := FormatSources([]models.Source{
		{Filename: "a_2024-02-20_q4_transcript.pdf", URL: "http://x/a", Kind: models.KindTranscript, EventTitle: "Q4", EventDate: "2024-02-20"},
		{Filename: "a_2024-02-20_q4_report.pdf", URL: "http://x/b", Kind: models.KindReport, EventTitle: "Q4", EventDate: "2024-02-20"},
	})
	assert.Equal(t, "\n\n### Sources\n"+
		"1. [a_2024-02-20_q4_transcript.pdf](http://x/a) - transcript, Q4 (2024-02-20)\n"+
		"2. [a_2024-02-20_q4_report.pdf](http://x/b) - report, Q4 (2024-02-20)", got)
}

func TestAnswer_SendsDocumentsInOrder(t *testing.T) {
	store := newStore(t)
	llm := tcommon.NewMockLLMClient("  Revenue rose 5%.  ")
	svc := NewService(store, llm, common.NewSilentLogger(), WithTempDir(t.TempDir()))

	records := []models.DocumentRecord{
		putRecord(t, store, "co_2024-02-20_q4_2023_transcript.pdf", models.KindTranscript, []byte("%PDF-transcript")),
		putRecord(t, store, "co_2024-02-20_q4_2023_slides.pptx", models.KindSlides, []byte("PK-deck")),
	}

	ans, err := svc.Answer(context.Background(), "  What was revenue?  ", records)
	require.NoError(t, err)

	require.Equal(t, 1, llm.Calls())
	assert.Equal(t, BuildPrompt("What was revenue?"), llm.Prompts[0])

	parts := llm.Parts[0]
	require.Len(t, parts, 2)
	assert.Equal(t, "co_2024-02-20_q4_2023_transcript.pdf", parts[0].Name)
	assert.Equal(t, "application/pdf", parts[0].MIMEType)
	assert.Equal(t, []byte("%PDF-transcript"), parts[0].Data)
	assert.Equal(t, []byte("PK-deck"), parts[1].Data)

	require.NotNil(t, llm.Options[0].Temperature)
	assert.InDelta(t, 0.1, *llm.Options[0].Temperature, 1e-6)
	assert.Equal(t, int32(7000), llm.Options[0].MaxOutputTokens)

	assert.Equal(t, "mock-model", ans.Model)
	assert.Equal(t, 2, ans.Documents)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "http://localhost:8080/files/docs/co_2024-02-20_q4_2023_transcript.pdf", ans.Sources[0].URL)
	assert.Equal(t, "Revenue rose 5%."+FormatSources(ans.Sources), ans.Text)
}

func TestAnswer_SkipsMissingDocuments(t *testing.T) {
	store := newStore(t)
	llm := tcommon.NewMockLLMClient("ok")
	svc := NewService(store, llm, nil)

	good := putRecord(t, store, "co_2024-01-01_q_report.pdf", models.KindReport, []byte("%PDF-report"))
	missing := good
	missing.Filename = "co_2023-01-01_q_report.pdf"
	missing.StorageLocator = store.Locator(missing.Filename)

	ans, err := svc.Answer(context.Background(), "Outlook?", []models.DocumentRecord{missing, good})
	require.NoError(t, err)
	assert.Equal(t, 1, ans.Documents)
	require.Len(t, llm.Parts[0], 1)
	assert.Equal(t, good.Filename, llm.Parts[0][0].Name)
}

func TestAnswer_NoDocumentsDoesNotCallModel(t *testing.T) {
	store := newStore(t)
	llm := tcommon.NewMockLLMClient("unused")
	svc := NewService(store, llm, nil)

	ans, err := svc.Answer(context.Background(), "Anything?", []models.DocumentRecord{
		{Filename: "gone.pdf", StorageLocator: "mem://docs/gone.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, NoDocumentsMessage, ans.Text)
	assert.Equal(t, 0, ans.Documents)
	assert.Equal(t, 0, llm.Calls())

	ans, err = svc.Answer(context.Background(), "Anything?", nil)
	require.NoError(t, err)
	assert.Equal(t, NoDocumentsMessage, ans.Text)
}

func TestAnswer_ModelErrorIsReturned(t *testing.T) {
	store := newStore(t)
	llm := tcommon.NewMockLLMClient("")
	llm.Err = errors.New("quota exceeded")
	svc := NewService(store, llm, nil)

	rec := putRecord(t, store, "co_2024-01-01_q_report.pdf", models.KindReport, []byte("%PDF"))
	_, err := svc.Answer(context.Background(), "Q?", []models.DocumentRecord{rec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAnswer_Validation(t *testing.T) {
	svc := NewService(newStore(t), nil, nil)
	_, err := svc.Answer(context.Background(), "Q?", nil)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	svc = NewService(newStore(t), tcommon.NewMockLLMClient("x"), nil)
	_, err = svc.Answer(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAnswer_RemovesTempDirectory(t *testing.T) {
	parent := t.TempDir()
	store := newStore(t)
	svc := NewService(store, tcommon.NewMockLLMClient("ok"), nil, WithTempDir(parent))

	rec := putRecord(t, store, "co_2024-01-01_q_report.pdf", models.KindReport, []byte("%PDF"))
	_, err := svc.Answer(context.Background(), "Q?", []models.DocumentRecord{rec})
	require.NoError(t, err)

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAnswer_ZeroTemperatureHonoured(t *testing.T) {
	store := newStore(t)
	llm := tcommon.NewMockLLMClient("ok")
	svc := NewService(store, llm, nil, WithTemperature(0))

	rec := putRecord(t, store, "co_2024-02-20_q4_2023_report.pdf", models.KindReport, []byte("%PDF"))
	_, err := svc.Answer(context.Background(), "Q?", []models.DocumentRecord{rec})
	require.NoError(t, err)

	require.NotNil(t, llm.Options[0].Temperature)
	assert.Equal(t, float32(0), *llm.Options[0].Temperature)

	// Negative values keep the default.
	svc = NewService(store, llm, nil, WithTemperature(-1))
	_, err = svc.Answer(context.Background(), "Q?", []models.DocumentRecord{rec})
	require.NoError(t, err)
	assert.InDelta(t, DefaultTemperature, *llm.Options[1].Temperature, 1e-6)
}

func TestAnswer_FallsBackToFilenameAndStoreURL(t *testing.T) {
	store := newStore(t)
	llm := tcommon.NewMockLLMClient("ok")
	svc := NewService(store, llm, nil, WithTemperature(0.5), WithMaxOutputTokens(100))

	require.NoError(t, store.Put(context.Background(), "legacy_report.pdf", []byte("%PDF"), ""))
	ans, err := svc.Answer(context.Background(), "Q?", []models.DocumentRecord{{Filename: "legacy_report.pdf", Kind: models.KindReport}})
	require.NoError(t, err)

	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "http://localhost:8080/files/docs/legacy_report.pdf", ans.Sources[0].URL)
	assert.Equal(t, "application/pdf", llm.Parts[0][0].MIMEType)
	require.NotNil(t, llm.Options[0].Temperature)
	assert.InDelta(t, 0.5, *llm.Options[0].Temperature, 1e-6)
	assert.Equal(t, int32(100), llm.Options[0].MaxOutputTokens)
}
