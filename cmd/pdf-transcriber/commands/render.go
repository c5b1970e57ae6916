package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-transcriber/cmd/pdf-transcriber/ui"
	"github.com/spherical/pdf-transcriber/internal/config"
	"github.com/spherical/pdf-transcriber/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [pdf-file]",
	Short: "Render PDF pages to images without contacting the model",
	Long: `Render writes page_<N> images into the work directory at the configured
scale. No credential is needed, which makes it useful for checking how a
document will look to the model before paying for a transcription.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	out := ui.Default(noColor, verbose)

	cfg, err := config.LoadForRender(cfgFile, flagOverrides(cmd, args)...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer, err := render.NewRenderer(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer renderer.Close()

	out.Section("Rendering " + cfg.InputPath)
	out.StartSpinner("Rendering pages...")
	images, err := renderer.Render(ctx, cfg.InputPath)
	out.StopSpinner()
	if err != nil {
		return err
	}

	for _, img := range images {
		out.Status("Page %d: %s (%dx%d)", img.PageNumber, img.ImagePath, img.Width, img.Height)
	}
	out.Success("Rendered %d pages at %g DPI into %s", len(images), cfg.DPI(), cfg.WorkDir)
	return nil
}
