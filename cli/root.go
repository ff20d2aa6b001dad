package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/media-metadata-scrubber/config"
	"github.com/ankit-chaubey/media-metadata-scrubber/core"
	"github.com/ankit-chaubey/media-metadata-scrubber/core/pipeline"
)

// app holds what every command needs once flags and config are resolved.
type app struct {
	configPath string
	jsonOut    bool
	verbose    bool

	cfg     *config.Config
	log     *slog.Logger
	printer *core.Printer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "scrubber",
		Short: "Inspect and remove metadata from media files",
		Long: "scrubber reads the metadata embedded in images, PDFs, Office documents,\n" +
			"audio and video files, and writes a copy with the chosen fields removed.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath(), "path to the YAML config file")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output and debug logging")

	root.AddCommand(
		newViewCmd(a),
		newCleanCmd(a),
		newServeCmd(a),
		newFormatsCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Local commands only log problems unless asked otherwise.
	logCfg := *cfg
	if cmd.Name() != "serve" && logCfg.LogLevel == "info" {
		logCfg.LogLevel = "warn"
	}
	a.log = logCfg.NewLogger(cmd.ErrOrStderr(), a.verbose)
	a.printer = &core.Printer{JSON: a.jsonOut, Verbose: a.verbose, Writer: cmd.OutOrStdout()}
	return nil
}

func (a *app) dispatcher() (*pipeline.Dispatcher, error) {
	return pipeline.New(pipeline.Options{
		Logger:         a.log,
		JPEGQuality:    a.cfg.JPEGQuality,
		VideoService:   a.cfg.VideoServiceURL,
		RequestTimeout: a.cfg.RequestTimeout(),
	})
}

func (a *app) session() (*pipeline.Session, error) {
	d, err := a.dispatcher()
	if err != nil {
		return nil, err
	}
	return pipeline.NewSession(d, a.log), nil
}

// readLocal loads path as an upload. The media type comes from the
// extension, the way a browser declares it.
func readLocal(path string) (*core.UploadedFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &core.UploadedFile{
		Name:         filepath.Base(path),
		MediaType:    core.MediaTypeFor(path),
		Data:         data,
		LastModified: st.ModTime(),
	}, nil
}
