package transcript

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/bobmcallan/insight/internal/common"
)

// Page geometry in points: US Letter with 1-inch margins.
const (
	pageMargin     = 72.0
	headerFontSize = 14.0
	bodyFontSize   = 10.0
	bodyLeading    = 14.0
	paragraphSpace = 6.0
	headerSpace    = 30.0
)

// headerColor is the title block colour (#1a472a).
var headerColor = [3]int{0x1a, 0x47, 0x2a}

// BuildMarkup lays out the title block and body as basic markup.
// All caller text is escaped.
func BuildMarkup(companyName, eventTitle, eventDate, text string) string {
	var sb strings.Builder
	sb.WriteString("<center><b>")
	sb.WriteString(EscapeMarkup(companyName))
	sb.WriteString("</b><br><br>Event: ")
	sb.WriteString(EscapeMarkup(eventTitle))
	sb.WriteString("<br>Date: ")
	sb.WriteString(EscapeMarkup(eventDate))
	sb.WriteString("</center>")
	for _, p := range Paragraphs(text) {
		sb.WriteString("<p>")
		sb.WriteString(EscapeMarkup(p))
		sb.WriteString("</p>")
	}
	return sb.String()
}

// Render produces a PDF of the transcript with a centered title block.
// Returns nil on empty text or any rendering failure; failures are logged.
func Render(logger *common.Logger, companyName, eventTitle, eventDate, text string) []byte {
	if strings.TrimSpace(text) == "" {
		logger.Warn().Str("event_title", eventTitle).Msg("Cannot render transcript: empty text")
		return nil
	}

	data, err := renderMarkup(companyName, eventTitle, BuildMarkup(companyName, eventTitle, eventDate, text))
	if err != nil {
		logger.Warn().Err(err).Str("company", companyName).Str("event_title", eventTitle).Msg("Transcript rendering failed")
		return nil
	}
	return data
}

// renderMarkup walks the tokenized markup and writes it to a Letter page.
// Text segments are unescaped on write.
func renderMarkup(companyName, eventTitle, markup string) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf render panic: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(companyName+" - "+eventTitle, true)
	pdf.SetCreator("insight", true)
	pdf.AddPage()

	// Core fonts are cp1252. Runes outside that code page (Polish, Czech,
	// Greek, CJK) are replaced by the translator and do not survive into the PDF.
	// TODO: embed a UTF-8 TTF via AddUTF8Font to render them faithfully.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	bold := false
	center := false
	setFont := func() {
		style := ""
		if bold {
			style = "B"
		}
		size := bodyFontSize
		if center {
			size = headerFontSize
		}
		pdf.SetFont("Helvetica", style, size)
	}
	setFont()

	for _, seg := range fpdf.HTMLBasicTokenize(markup) {
		switch seg.Cat {
		case 'O':
			switch seg.Str {
			case "b":
				bold = true
				setFont()
			case "center":
				center = true
				pdf.SetTextColor(headerColor[0], headerColor[1], headerColor[2])
				setFont()
			case "br":
				pdf.Ln(4)
			case "p":
				pdf.Ln(paragraphSpace)
			}
		case 'C':
			switch seg.Str {
			case "b":
				bold = false
				setFont()
			case "center":
				center = false
				pdf.SetTextColor(0, 0, 0)
				setFont()
				pdf.Ln(headerSpace)
			case "p":
				pdf.Ln(bodyLeading)
			}
		case 'T':
			txt := tr(html.UnescapeString(seg.Str))
			if center {
				pdf.MultiCell(0, headerFontSize+4, txt, "", "C", false)
			} else {
				pdf.Write(bodyLeading, txt)
			}
		}
		if pdf.Err() {
			return nil, pdf.Error()
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}
