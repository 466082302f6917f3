// Package docexport renders report text as a Word-compatible HTML document.
package docexport

import (
	"fmt"
	"html"
	"mime"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/dalemusser/reporthub/internal/domain/models"
)

// ContentType is served with every export.
const ContentType = "application/msword"

const spanStyle = "font-family:Calibri,sans-serif;font-size:11.0pt;"

const (
	envelopeOpen  = `<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'><head><meta charset='utf-8'><title>Report</title></head><body><div>`
	envelopeClose = `</div></body></html>`
)

var labelPrefix = regexp.MustCompile(`^(Visita n°\d+:|Riassunto visita:|Obiettivo prox visita:|Prox visita entro:)`)

// Paragraph is one exported line: Bold is rendered in bold, Plain after it.
// Both empty means a blank line.
type Paragraph struct {
	Bold  string
	Plain string
}

// Paragraphs splits text into lines and classifies each one.
func Paragraphs(text string) []Paragraph {
	lines := strings.Split(text, "\n")
	out := make([]Paragraph, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.TrimSpace(line) == "":
			out = append(out, Paragraph{})
		case strings.HasPrefix(line, "Report del"):
			out = append(out, Paragraph{Bold: line})
		default:
			if m := labelPrefix.FindString(line); m != "" {
				out = append(out, Paragraph{Bold: m, Plain: line[len(m):]})
			} else {
				out = append(out, Paragraph{Plain: line})
			}
		}
	}
	return out
}

// Body renders the paragraphs of text, without the document envelope.
func Body(text string) string {
	var b strings.Builder
	for _, p := range Paragraphs(text) {
		b.WriteString(`<p style="margin:0;"><span style="` + spanStyle + `">`)
		switch {
		case p.Bold == "" && p.Plain == "":
			b.WriteString("&nbsp;")
		case p.Bold != "":
			b.WriteString("<b>" + html.EscapeString(p.Bold) + "</b>" + html.EscapeString(p.Plain))
		default:
			b.WriteString(html.EscapeString(p.Plain))
		}
		b.WriteString(`</span></p>`)
	}
	return b.String()
}

// Document wraps Body in the Word HTML envelope.
func Document(text string) []byte {
	return []byte(envelopeOpen + Body(text) + envelopeClose)
}

// Filename is "Report DD-MM-YYYY.doc" for the calendar day of dateISO.
func Filename(dateISO string) string {
	parts := strings.Split(models.DayOf(dateISO), "-")
	if len(parts) != 3 || !allDigits(parts) {
		return "Report.doc"
	}
	return fmt.Sprintf("Report %s-%s-%s.doc", parts[2], parts[1], parts[0])
}

// Write serves text as a download named after dateISO.
func Write(w http.ResponseWriter, dateISO, text string) error {
	doc := Document(text)
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": Filename(dateISO)}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	_, err := w.Write(doc)
	return err
}

func allDigits(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
