package transcript

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/models"
	tcommon "github.com/bobmcallan/insight/tests/common"
)

func TestFormatText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"two sentences", "Hello world. This is a test.", "Hello world.\n\nThis is a test."},
		{"escaped newlines and whitespace", `Line one\nLine  two.   Next`, "Line one Line two.\n\nNext."},
		{"real newlines collapse", "A\n\n\tB. C", "A B.\n\nC."},
		{"decimals split", "Revenue was 3.5 billion.", "Revenue was 3.\n\n5 billion."},
		{"empty pieces dropped", "One... Two.", "One.\n\nTwo."},
		{"no sentences", "   ", "."},
		{"empty", "", "."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatText(tt.in))
		})
	}
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"Hello world.", "This is a test."}, Paragraphs("Hello world.\n\nThis is a test."))
	assert.Empty(t, Paragraphs("\n\n  \n\n"))
}

func TestEscapeMarkup(t *testing.T) {
	assert.Equal(t, "AT&amp;T &lt;b&gt;", EscapeMarkup("AT&T <b>"))
}

func TestBuildMarkup_EscapesUserText(t *testing.T) {
	markup := BuildMarkup("AT&T", "<script>", "2024-01-01", "Margins > 5%.\n\nR&D up.")
	assert.Contains(t, markup, "<b>AT&amp;T</b>")
	assert.Contains(t, markup, "Event: &lt;script&gt;")
	assert.Contains(t, markup, "<p>Margins &gt; 5%.</p><p>R&amp;D up.</p>")
	assert.NotContains(t, markup, "<script>")
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested transcript", `{"transcript":{"text":"Nested text"},"text":"top"}`, "Nested text"},
		{"empty nested falls to top level", `{"transcript":{"text":""},"text":"Top text"}`, "Top text"},
		{"top level only", `{"text":"Top text"}`, "Top text"},
		{"json without text", `{"paragraphs":[]}`, ""},
		{"json array", `[1,2]`, ""},
		{"plain text", "Good morning everyone.", "Good morning everyone."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractText([]byte(tt.body)))
		})
	}
}

func TestResolveURL_Order(t *testing.T) {
	provider := tcommon.NewMockProviderClient()
	n := NewNormalizer(provider, common.NewSilentLogger())
	appURL := "https://app.quartr.test/document/98765/transcript"

	meta := models.TranscriptMeta{
		TranscriptURL:   "https://files.test/raw.json",
		LiveTranscripts: &models.TranscriptMeta{FinishedLiveTranscriptURL: "https://files.test/live.json"},
	}
	assert.Equal(t, "https://files.test/raw.json", n.ResolveURL(appURL, meta))

	meta.TranscriptURL = ""
	assert.Equal(t, "https://files.test/live.json", n.ResolveURL(appURL, meta))

	assert.Equal(t, "https://files.test/flat.json", n.ResolveURL(appURL, models.TranscriptMeta{FinishedLiveTranscriptURL: "https://files.test/flat.json"}))

	assert.Equal(t, "https://api.quartr.test/public/v1/transcripts/document/98765", n.ResolveURL(appURL, models.TranscriptMeta{}))

	assert.Equal(t, "", n.ResolveURL("https://app.quartr.test/document/abc/transcript", models.TranscriptMeta{}))
	assert.Equal(t, "", n.ResolveURL("https://elsewhere.test/document/123/transcript", models.TranscriptMeta{}))
	assert.Equal(t, "", n.ResolveURL("", models.TranscriptMeta{}))
}

func TestNormalize(t *testing.T) {
	provider := tcommon.NewMockProviderClient()
	provider.AddDocument("https://files.test/t.json", "application/json", []byte(`{"transcript":{"text":"Welcome to the call. Revenue rose."}}`))
	provider.AddDocument("https://files.test/t.txt", "text/plain", []byte(`Plain\ntranscript. Done`))
	provider.AddDocument("https://files.test/empty.json", "application/json", []byte(`{"transcript":{"text":"   "}}`))
	provider.Failures["https://files.test/500.json"] = errors.New("status 500")

	n := NewNormalizer(provider, common.NewSilentLogger())
	ctx := context.Background()

	got := n.Normalize(ctx, "", models.TranscriptMeta{TranscriptURL: "https://files.test/t.json"})
	assert.Equal(t, "Welcome to the call.\n\nRevenue rose.", got)

	got = n.Normalize(ctx, "", models.TranscriptMeta{TranscriptURL: "https://files.test/t.txt"})
	assert.Equal(t, "Plain transcript.\n\nDone.", got)

	assert.Equal(t, "", n.Normalize(ctx, "", models.TranscriptMeta{TranscriptURL: "https://files.test/empty.json"}))
	assert.Equal(t, "", n.Normalize(ctx, "", models.TranscriptMeta{TranscriptURL: "https://files.test/500.json"}))
	assert.Equal(t, "", n.Normalize(ctx, "https://nowhere.test/x", models.TranscriptMeta{}))
}

func TestNormalize_AppURLFetchesAPIDocument(t *testing.T) {
	provider := tcommon.NewMockProviderClient()
	apiURL := provider.TranscriptDocumentURL("4411")
	provider.AddDocument(apiURL, "application/json", []byte(`{"transcript":{"text":"From the API."}}`))

	n := NewNormalizer(provider, nil)
	got := n.Normalize(context.Background(), "https://app.quartr.test/document/4411/transcript", models.TranscriptMeta{})

	assert.Equal(t, "From the API.", got)
	assert.Equal(t, []string{apiURL}, provider.FetchCalls)
}

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r.NumPage()
}

func TestRender_SinglePage(t *testing.T) {
	data := Render(common.NewSilentLogger(), "Air Liquide SA", "Q4 2023 Earnings Call", "2024-02-20", FormatText("Hello world. This is a test."))
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, 1, pageCount(t, data))
}

func TestRender_Paginates(t *testing.T) {
	text := FormatText(strings.Repeat("The quarter delivered resilient margins across every region we operate in. ", 400))
	data := Render(common.NewSilentLogger(), "ASML Holding NV", "Q1 2024", "2024-04-17", text)
	require.NotEmpty(t, data)
	assert.Greater(t, pageCount(t, data), 1)
}

func TestRender_SpecialCharacters(t *testing.T) {
	data := Render(common.NewSilentLogger(), "AT&T <Inc>", "Q&A > Results", "2024-01-01", "Margins < 5% & rising.\n\nCafé société.")
	require.NotEmpty(t, data)
	assert.Equal(t, 1, pageCount(t, data))
}

func TestRender_OutsideCodePageStillRenders(t *testing.T) {
	data := Render(common.NewSilentLogger(), "PKN Orlen Spółka Akcyjna", "Q4 2023", "2024-01-01", "Zysk wzrósł. 売上高は増加した。")
	require.NotEmpty(t, data)
	assert.Equal(t, 1, pageCount(t, data))
}

func TestRender_EmptyText(t *testing.T) {
	assert.Nil(t, Render(common.NewSilentLogger(), "A", "B", "C", "  "))

	n := NewNormalizer(tcommon.NewMockProviderClient(), nil)
	assert.Nil(t, n.Render("A", "B", "C", ""))
}
