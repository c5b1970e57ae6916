package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spherical/pdf-transcriber/cmd/pdf-transcriber/ui"
	"github.com/spherical/pdf-transcriber/internal/config"
	"github.com/spherical/pdf-transcriber/internal/observability"
	"github.com/spherical/pdf-transcriber/pkg/transcriber"
)

var (
	cfgFile string
	output  string
	workDir string
	scale   float64
	model   string
	backend string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "pdf-transcriber [pdf-file]",
	Short: "Transcribe a PDF into plain text with a vision model",
	Long: `pdf-transcriber renders every page of a PDF to an image, sends each page
to a Gemini vision model, and writes the page transcriptions to one text file
with a "--- Page N ---" delimiter before each page.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTranscribe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", "", "directory for rendered page images (default pdf_pages)")
	rootCmd.PersistentFlags().Float64Var(&scale, "scale", 0, "render scale, 1.0 is 72 DPI (default 2)")
	rootCmd.PersistentFlags().StringVar(&backend, "renderer", "", "rendering backend: fitz or pdfium")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "stream model output and debug logs")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output text file (default gemini_output.txt)")
	rootCmd.Flags().StringVar(&model, "model", "", "model name (default gemini-2.5-flash)")
}

// Execute runs the root command and reports any failure on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.New(rootCmd.OutOrStdout(), rootCmd.ErrOrStderr(), noColor, verbose).Error("%v", err)
	}
	return err
}

// flagOverrides turns explicitly set flags and the positional PDF path into
// config options, so unset flags never mask file or environment values.
func flagOverrides(cmd *cobra.Command, args []string) []config.Option {
	var opts []config.Option
	if len(args) > 0 {
		input := args[0]
		opts = append(opts, func(c *config.Config) { c.InputPath = input })
	}
	if f := cmd.Flags().Lookup("output"); f != nil && f.Changed {
		opts = append(opts, func(c *config.Config) { c.OutputPath = output })
	}
	if cmd.Flags().Changed("work-dir") {
		opts = append(opts, func(c *config.Config) { c.WorkDir = workDir })
	}
	if cmd.Flags().Changed("scale") {
		opts = append(opts, func(c *config.Config) { c.Scale = scale })
	}
	if f := cmd.Flags().Lookup("model"); f != nil && f.Changed {
		opts = append(opts, func(c *config.Config) { c.ModelName = model })
	}
	if cmd.Flags().Changed("renderer") {
		opts = append(opts, func(c *config.Config) { c.Renderer.Backend = backend })
	}
	if verbose {
		opts = append(opts, func(c *config.Config) { c.Log.Level = "debug" })
	}
	return opts
}

// newLogger builds the stderr logger. Without --verbose, info lines are left to
// the status output and only warnings and errors are logged.
func newLogger(cfg *config.Config) *observability.Logger {
	level := cfg.Log.Level
	if !verbose && observability.ParseLevel(level) == zerolog.InfoLevel {
		level = "warn"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      cfg.Log.Format,
		Output:      os.Stderr,
		ServiceName: "pdf-transcriber",
	})
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	out := ui.Default(noColor, verbose)

	cfg, err := config.Load(cfgFile, flagOverrides(cmd, args)...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventCh := make(chan transcriber.StreamEvent, 100)

	opts := []transcriber.Option{transcriber.WithLogger(newLogger(cfg))}
	if verbose {
		// Chunks share the event channel so they print after their page's status line
		opts = append(opts, transcriber.WithChunkHandler(func(page int, chunk string) {
			eventCh <- transcriber.StreamEvent{
				Type:       transcriber.EventPageChunk,
				PageNumber: page,
				Payload:    chunk,
				Timestamp:  time.Now(),
			}
		}))
	}

	client, err := transcriber.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	out.Section("Transcribing " + cfg.InputPath)
	start := time.Now()

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Run(ctx, eventCh)
		close(eventCh)
		errCh <- err
	}()

	showEvents(out, eventCh)
	out.StopSpinner()

	if err := <-errCh; err != nil {
		if ctx.Err() != nil {
			out.Info("Interrupted, no output written")
		}
		return err
	}

	out.Info("Finished in %s", ui.FormatDuration(time.Since(start)))
	return nil
}

// showEvents prints one status line per pipeline event until the channel closes.
func showEvents(out *ui.UI, eventCh <-chan transcriber.StreamEvent) {
	for event := range eventCh {
		switch event.Type {
		case transcriber.EventStart:
			out.StartSpinner("Rendering pages...")

		case transcriber.EventRendered:
			out.StopSpinner()
			out.Success("%v", event.Payload)

		case transcriber.EventPageProcessing:
			out.Status("%v", event.Payload)
			out.StartSpinner("Waiting for model...")

		case transcriber.EventPageChunk:
			out.Chunk(fmt.Sprint(event.Payload))

		case transcriber.EventPageComplete:
			out.StopSpinner()
			if out.Verbose() {
				out.Status("")
			}
			out.Success("%v", event.Payload)

		case transcriber.EventError:
			// The returned error is reported once by Execute
			out.StopSpinner()

		case transcriber.EventComplete:
			out.StopSpinner()
			out.Success("%v", event.Payload)
		}
	}
}
