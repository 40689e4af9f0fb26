package testutil

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"testing"
)

// Block is one lesson block of a timetable cell.
type Block struct {
	Code            string
	Title           string
	TeacherRoom     string // "teacher, room"
	TeacherFullName string
	Groups          []string
	Cancelled       bool
	Hidden          bool // rendered inside the collapsed wrapper
}

func (b Block) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<div class="ednevnik-seznam_ur_teden-blok-wrap"><div class="ednevnik-seznam_ur_teden-blok">`)
	if b.Code != "" || b.Title != "" {
		fmt.Fprintf(&sb, `<div class="ednevnik-title"><span title="%s">%s</span></div>`, html.EscapeString(b.Title), html.EscapeString(b.Code))
	}
	if b.TeacherRoom != "" || b.TeacherFullName != "" {
		fmt.Fprintf(&sb, `<div class="ednevnik-subtitle" title="%s">%s</div>`, html.EscapeString(b.TeacherFullName), html.EscapeString(b.TeacherRoom))
	}
	for _, g := range b.Groups {
		fmt.Fprintf(&sb, `<div class="ednevnik-subtitle">%s</div>`, html.EscapeString(g))
	}
	if b.Cancelled {
		sb.WriteString(`<span class="wl-tag-cancelled">odpadlo</span>`)
	}
	sb.WriteString(`</div></div>`)
	if b.Hidden {
		return `<div class="hidden teden-blok-wrapper">` + sb.String() + `</div>`
	}
	return sb.String()
}

type Cell struct {
	Blocks    []Block
	Cancelled bool
}

type Row struct {
	Name  string // e.g. "1. ura"
	Time  string // e.g. "8:00 - 8:45"
	Cells []Cell
}

// Table renders the weekly lesson table of a timetable payload.
type Table struct {
	Headers []string // short dates, e.g. "14. 10."
	Rows    []Row
}

func (t Table) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<table class="ednevnik-seznam_ur_teden"><thead><tr><th></th>`)
	for _, h := range t.Headers {
		fmt.Fprintf(&sb, `<th><div>Dan</div><div class="date">%s</div></th>`, h)
	}
	sb.WriteString(`</tr></thead><tbody>`)
	for _, r := range t.Rows {
		fmt.Fprintf(&sb, `<tr><td><div class="naziv-ure">%s</div><div class="potek-ure">%s</div></td>`, r.Name, r.Time)
		for _, c := range r.Cells {
			if c.Cancelled {
				sb.WriteString(`<td class="ednevnik-seznam_ur_teden-td ednevnik-seznam_ur_teden-td-odpadla-ura">`)
			} else {
				sb.WriteString(`<td class="ednevnik-seznam_ur_teden-td">`)
			}
			for _, b := range c.Blocks {
				sb.WriteString(b.HTML())
			}
			sb.WriteString(`</td>`)
		}
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)
	return sb.String()
}

// Payload assembles a unit-separator delimited timetable response.
func Payload(weekStart, weekEnd, tableHTML string) string {
	return strings.Join([]string{"ok", weekStart, weekEnd, tableHTML}, "\u001F")
}

// SchoolPage renders a school landing page; classes are (value, label) pairs.
func SchoolPage(schoolID string, classes ...[2]string) string {
	var sb strings.Builder
	sb.WriteString(`<html><head><script type="text/javascript">var id_sola = '` + schoolID + `'; var x = 1;</script></head><body>`)
	sb.WriteString(`<select id="id_parameter"><option value="">Izberi</option>`)
	for _, c := range classes {
		fmt.Fprintf(&sb, `<option value="%s">%s</option>`, c[0], c[1])
	}
	sb.WriteString(`</select></body></html>`)
	return sb.String()
}

// UnsignedJWT builds a JWT carrying `claims` with a dummy signature.
func UnsignedJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("UnsignedJWT() failed: %v", err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + ".c2lnbmF0dXJl"
}
