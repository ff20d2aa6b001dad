package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
	"github.com/ankit-chaubey/media-metadata-scrubber/core/pipeline"
)

type cleanOptions struct {
	fields      string
	all         bool
	interactive bool
	out         string
}

func newCleanCmd(a *app) *cobra.Command {
	var opts cleanOptions
	cmd := &cobra.Command{
		Use:   "clean <file>",
		Short: "Write a copy of a file with metadata removed",
		Long: "Read the metadata of a file, select the fields to remove and write the\n" +
			"cleaned copy. Images, audio and video always lose every field; PDF and\n" +
			"Office documents honour the selection.",
		Example: "  scrubber clean report.pdf --fields Author,Creator\n" +
			"  scrubber clean photo.jpg --out clean.jpg\n" +
			"  scrubber clean deck.pptx --interactive",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClean(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.fields, "fields", "f", "", "comma separated field names to remove")
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "remove every field")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick fields with a fuzzy finder")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output path (default: scrubbed-<name> next to the input)")
	cmd.MarkFlagsMutuallyExclusive("all", "interactive")
	return cmd
}

func (a *app) runClean(cmd *cobra.Command, path string, opts cleanOptions) error {
	f, err := readLocal(path)
	if err != nil {
		return err
	}
	d, err := a.dispatcher()
	if err != nil {
		return err
	}
	h, err := d.Route(f)
	if err != nil {
		return err
	}
	sess := pipeline.NewSession(d, a.log)
	snap, err := sess.Load(cmd.Context(), f)
	if err != nil {
		return err
	}

	names := core.SplitFieldList(opts.fields)
	if opts.interactive {
		picked, err := pickFields(snap)
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			a.printer.PrintInfo("Operation cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
		names = append(names, picked...)
	}
	if opts.all {
		err = sess.SelectAll()
	}
	for _, n := range names {
		if err != nil {
			break
		}
		err = sess.Toggle(n, true)
	}
	if err != nil {
		return fmt.Errorf("selecting fields: %w", err)
	}

	info := h.Info()
	if info.Selective && len(sess.Selected()) == 0 {
		return errors.New("no fields selected; use --fields, --all or --interactive")
	}
	if a.verbose {
		sel := core.NewSelection(snap)
		for _, n := range sess.Selected() {
			sel.Toggle(n, true)
		}
		a.printer.PrintSnapshot(f, snap, sel)
	}

	res, err := sess.Commit(cmd.Context())
	if err != nil {
		return err
	}
	outPath := core.ResolveOutPath(path, opts.out)
	if err := os.WriteFile(outPath, res.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	if info.Selective {
		a.printer.PrintSuccess(fmt.Sprintf("Removed %d field(s), wrote %s", len(sess.Selected()), outPath))
	} else {
		a.printer.PrintSuccess(fmt.Sprintf("Removed all %s metadata, wrote %s", h.Kind(), outPath))
	}
	return nil
}

// pickFields lets the user mark fields with Tab in a fuzzy finder.
func pickFields(snap *core.Snapshot) ([]string, error) {
	idx, err := fuzzyfinder.FindMulti(
		snap.Fields,
		func(i int) string {
			return snap.Fields[i].Name
		},
		fuzzyfinder.WithHeader("Tab marks a field for removal, Enter confirms"),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			return snap.Fields[i].Name + "\n\n" + snap.Fields[i].Value
		}),
	)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(idx))
	for _, i := range idx {
		names = append(names, snap.Fields[i].Name)
	}
	return names, nil
}
