package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "5", Dark: "5"})
	styleKey    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "6", Dark: "6"})
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "8", Dark: "8"})
	styleMarked = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "1"})
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "2"})
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout}
}

// PrintSnapshot renders the extracted fields of f. Selected fields are
// marked when sel is non-nil.
func (p *Printer) PrintSnapshot(f *UploadedFile, snap *Snapshot, sel *Selection) {
	if p.JSON {
		p.printJSON(f, snap, sel)
		return
	}
	p.printText(f, snap, sel)
}

func (p *Printer) printText(f *UploadedFile, snap *Snapshot, sel *Selection) {
	fmt.Fprintln(p.Writer, styleTitle.Render(f.Name))
	fmt.Fprintln(p.Writer, styleMuted.Render(fmt.Sprintf("%s · %s · %s", snap.Kind, f.MediaType, FormatMB(f.Size()))))
	fmt.Fprintln(p.Writer)

	width := 0
	for _, fld := range snap.Fields {
		if len(fld.Name) > width {
			width = len(fld.Name)
		}
	}
	for _, fld := range snap.Fields {
		mark := "  "
		if sel.Contains(fld.Name) {
			mark = styleMarked.Render("✘ ")
		}
		key := styleKey.Render(fmt.Sprintf("%-*s", width+1, fld.Name+":"))
		fmt.Fprintf(p.Writer, "%s%s %s\n", mark, key, fld.Value)
	}
	if p.Verbose && sel != nil {
		fmt.Fprintln(p.Writer)
		fmt.Fprintln(p.Writer, styleMuted.Render(fmt.Sprintf("selected %d of %d (%s)", sel.Len(), snap.Len(), sel.State())))
	}
}

func (p *Printer) printJSON(f *UploadedFile, snap *Snapshot, sel *Selection) {
	type jsonField struct {
		Name     string `json:"name"`
		Value    string `json:"value"`
		Selected bool   `json:"selected,omitempty"`
	}
	type jsonOutput struct {
		File      string      `json:"file"`
		MediaType string      `json:"media_type"`
		Kind      string      `json:"kind"`
		Size      int64       `json:"size"`
		Fields    []jsonField `json:"fields"`
	}

	out := jsonOutput{
		File:      f.Name,
		MediaType: f.MediaType,
		Kind:      snap.Kind.String(),
		Size:      f.Size(),
		Fields:    make([]jsonField, 0, len(snap.Fields)),
	}
	for _, fld := range snap.Fields {
		out.Fields = append(out.Fields, jsonField{
			Name:     fld.Name,
			Value:    fld.Value,
			Selected: sel.Contains(fld.Name),
		})
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintFormats lists what each handler can read and scrub.
func (p *Printer) PrintFormats(infos []FormatInfo) {
	if p.JSON {
		type jsonFormat struct {
			Name       string   `json:"name"`
			MediaTypes []string `json:"media_types"`
			Selective  bool     `json:"selective"`
			Notes      string   `json:"notes"`
		}
		out := make([]jsonFormat, 0, len(infos))
		for _, fi := range infos {
			out = append(out, jsonFormat{fi.Name, fi.MediaTypes, fi.Selective, fi.Notes})
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(p.Writer, string(b))
		return
	}
	for i, fi := range infos {
		if i > 0 {
			fmt.Fprintln(p.Writer)
		}
		mode := "all fields"
		if fi.Selective {
			mode = "selected fields"
		}
		fmt.Fprintln(p.Writer, styleTitle.Render(fi.Name)+styleMuted.Render("  "+strings.Join(fi.MediaTypes, ", ")))
		fmt.Fprintln(p.Writer, styleKey.Render("scrubs: ")+mode)
		fmt.Fprintln(p.Writer, styleMuted.Render(fi.Notes))
	}
}

// PrintSuccess prints a success message.
func (p *Printer) PrintSuccess(msg string) {
	if p.JSON {
		return
	}
	fmt.Fprintln(p.Writer, styleOK.Render("✔ ")+msg)
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, styleMarked.Render("✘ Error: ")+msg)
}

// ResolveOutPath returns dst if non-empty, otherwise the scrubbed name next
// to src.
func ResolveOutPath(src, dst string) string {
	if dst != "" {
		return dst
	}
	return filepath.Join(filepath.Dir(src), OutputName(filepath.Base(src)))
}

// SplitFieldList parses a comma separated list of field names.
func SplitFieldList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
