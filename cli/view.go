package main

import (
	"github.com/spf13/cobra"
)

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view <file>",
		Short: "Show the metadata of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readLocal(args[0])
			if err != nil {
				return err
			}
			sess, err := a.session()
			if err != nil {
				return err
			}
			snap, err := sess.Load(cmd.Context(), f)
			if err != nil {
				return err
			}
			a.printer.PrintSnapshot(f, snap, nil)
			return nil
		},
	}
}
