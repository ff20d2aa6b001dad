package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/media-metadata-scrubber/core/video/probe"
	"github.com/ankit-chaubey/media-metadata-scrubber/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the video metadata service",
		Long: "Serve POST /video-metadata and POST /video-scrub. ffprobe and ffmpeg are\n" +
			"used when installed; otherwise only MP4 and QuickTime files are handled.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			prober, stripper := probe.Detect(a.cfg.FFprobePath, a.cfg.FFmpegPath, a.log)
			srv := server.New(server.Options{
				Addr:           addr,
				MaxUploadBytes: a.cfg.MaxUploadBytes(),
				TempDir:        a.cfg.TempDir,
				Logger:         a.log,
			}, prober, stripper)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides listen_addr)")
	return cmd
}
