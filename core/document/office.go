package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// ─── OPC (DOCX / XLSX / PPTX) ─────────────────────────────────────────────────

const (
	corePartPath = "docProps/core.xml"
	appPartPath  = "docProps/app.xml"

	officeNoMetadataStatus = "No readable metadata found in this document."
)

// officeField maps a display name to the docProps element holding it.
type officeField struct {
	name  string
	part  string
	local string // element name without namespace prefix
	date  bool
	// cleared returns the text written in place of the original value.
	cleared func(now time.Time) string
}

func emptyValue(time.Time) string { return "" }

func timestampValue(now time.Time) string { return now.UTC().Format("2006-01-02T15:04:05Z") }

var officeFields = []officeField{
	{name: "Author", part: corePartPath, local: "creator", cleared: emptyValue},
	{name: "Last Modified By", part: corePartPath, local: "lastModifiedBy", cleared: emptyValue},
	{name: "Revision", part: corePartPath, local: "revision", cleared: func(time.Time) string { return "1" }},
	{name: "Creation Date", part: corePartPath, local: "created", date: true, cleared: timestampValue},
	{name: "Modification Date", part: corePartPath, local: "modified", date: true, cleared: timestampValue},
	{name: "Company", part: appPartPath, local: "Company", cleared: emptyValue},
}

var elementPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, f := range officeFields {
		elementPatterns[f.local] = elementPattern(f.local)
	}
}

// elementPattern matches <prefix:local attrs>text</prefix:local>, capturing
// the open tag, the text and the close tag. Matching is non-greedy.
func elementPattern(local string) *regexp.Regexp {
	prefix := `(?:[A-Za-z_][\w.-]*:)?`
	return regexp.MustCompile(`(?s)(<` + prefix + regexp.QuoteMeta(local) + `(?:\s[^>]*)?>)(.*?)(</` + prefix + regexp.QuoteMeta(local) + `>)`)
}

// officeContext carries the open container and both raw parts.
type officeContext struct {
	zr    *zip.Reader
	parts map[string][]byte // part path → raw XML; absent parts are missing
}

func openOffice(data []byte) (*officeContext, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("cannot open as ZIP: %w", err)
	}
	oc := &officeContext{zr: zr, parts: map[string][]byte{}}
	for _, f := range zr.File {
		if f.Name != corePartPath && f.Name != appPartPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		oc.parts[f.Name] = content
	}
	return oc, nil
}

func extractOffice(f *core.UploadedFile) (*core.Snapshot, error) {
	oc, err := openOffice(f.Data)
	if err != nil {
		return nil, core.NewParseError(core.KindOffice, err)
	}
	snap := &core.Snapshot{Kind: core.KindOffice, Context: oc}
	for _, fld := range officeFields {
		part, ok := oc.parts[fld.part]
		if !ok {
			continue
		}
		m := elementPatterns[fld.local].FindSubmatch(part)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(html.UnescapeString(string(m[2])))
		if v == "" {
			continue
		}
		if fld.date {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				v = core.FormatTimestamp(t)
			}
		}
		snap.Set(fld.name, v)
	}
	snap.EnsureStatus(officeNoMetadataStatus)
	return snap, nil
}

// replaceElement rewrites the text of every <local> element in part.
func replaceElement(part []byte, local, value string) []byte {
	re := elementPatterns[local]
	matches := re.FindAllSubmatchIndex(part, -1)
	if len(matches) == 0 {
		return part
	}
	var out bytes.Buffer
	last := 0
	for _, m := range matches {
		// m[2:4] open tag, m[4:6] text, m[6:8] close tag
		out.Write(part[last:m[4]])
		out.WriteString(value)
		last = m[5]
	}
	out.Write(part[last:])
	return out.Bytes()
}

func scrubOffice(f *core.UploadedFile, snap *core.Snapshot, sel *core.Selection, now time.Time) (*core.ScrubResult, error) {
	oc, ok := snap.Context.(*officeContext)
	if !ok || oc == nil {
		return nil, errors.New("snapshot carries no office container")
	}

	parts := map[string][]byte{}
	for _, fld := range officeFields {
		if !sel.Contains(fld.name) {
			continue
		}
		part, ok := parts[fld.part]
		if !ok {
			if part, ok = oc.parts[fld.part]; !ok {
				continue
			}
		}
		parts[fld.part] = replaceElement(part, fld.local, fld.cleared(now))
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, zf := range oc.zr.File {
		content, changed := parts[zf.Name]
		if !changed {
			if err := w.Copy(zf); err != nil {
				return nil, fmt.Errorf("copy %s: %w", zf.Name, err)
			}
			continue
		}
		hdr := zf.FileHeader
		hdr.CompressedSize64 = 0
		hdr.UncompressedSize64 = 0
		hdr.CRC32 = 0
		hdr.Flags &^= 0x8 // sizes are recomputed
		fw, err := w.CreateHeader(&hdr)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", zf.Name, err)
		}
		if _, err := fw.Write(content); err != nil {
			return nil, fmt.Errorf("write %s: %w", zf.Name, err)
		}
	}
	if err := w.SetComment(oc.zr.Comment); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalise container: %w", err)
	}
	return core.NewResult(f, buf.Bytes()), nil
}
