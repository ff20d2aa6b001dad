package main

import (
	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

func newFormatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported format families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dispatcher()
			if err != nil {
				return err
			}
			var infos []core.FormatInfo
			for _, h := range d.Handlers() {
				infos = append(infos, h.Info())
			}
			a.printer.PrintFormats(infos)
			return nil
		},
	}
}
