package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-transcriber/cmd/pdf-transcriber/ui"
	"github.com/spherical/pdf-transcriber/internal/config"
	"github.com/spherical/pdf-transcriber/pkg/transcriber"
)

// flagCommand binds the package flag variables to a fresh command so each
// test starts with no flags marked as changed.
func flagCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().StringVarP(&output, "output", "o", "", "")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "")
	cmd.Flags().Float64Var(&scale, "scale", 0, "")
	cmd.Flags().StringVar(&model, "model", "", "")
	cmd.Flags().StringVar(&backend, "renderer", "", "")
	return cmd
}

func applyOverrides(t *testing.T, flags []string, args []string) *config.Config {
	t.Helper()
	verbose = false
	cmd := flagCommand()
	require.NoError(t, cmd.ParseFlags(flags))

	cfg := config.DefaultConfig()
	for _, opt := range flagOverrides(cmd, args) {
		opt(cfg)
	}
	return cfg
}

func TestFlagOverrides_OnlyChangedFlags(t *testing.T) {
	cfg := applyOverrides(t, nil, nil)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestFlagOverrides_AppliesFlagsAndArg(t *testing.T) {
	cfg := applyOverrides(t,
		[]string{"-o", "out.txt", "--scale", "3", "--renderer", "pdfium", "--model", "gemini-2.5-pro", "--work-dir", "pages"},
		[]string{"manual.pdf"})

	assert.Equal(t, "manual.pdf", cfg.InputPath)
	assert.Equal(t, "out.txt", cfg.OutputPath)
	assert.Equal(t, 3.0, cfg.Scale)
	assert.Equal(t, config.BackendPDFium, cfg.Renderer.Backend)
	assert.Equal(t, "gemini-2.5-pro", cfg.ModelName)
	assert.Equal(t, "pages", cfg.WorkDir)
}

func TestFlagOverrides_ExplicitZeroScaleIsKept(t *testing.T) {
	cfg := applyOverrides(t, []string{"--scale", "0"}, nil)
	assert.Equal(t, 0.0, cfg.Scale)
	assert.Error(t, cfg.Validate())
}

func TestShowEvents(t *testing.T) {
	var out, errOut bytes.Buffer
	u := ui.New(&out, &errOut, true, false)

	eventCh := make(chan transcriber.StreamEvent, 8)
	eventCh <- transcriber.StreamEvent{Type: transcriber.EventRendered, Payload: "Rendered 1 pages"}
	eventCh <- transcriber.StreamEvent{Type: transcriber.EventPageProcessing, PageNumber: 1, Payload: "Processing page 1: pdf_pages/page_1.png"}
	eventCh <- transcriber.StreamEvent{Type: transcriber.EventPageComplete, PageNumber: 1, Payload: "Page 1 done"}
	eventCh <- transcriber.StreamEvent{Type: transcriber.EventComplete, Payload: "Extraction complete, saved to gemini_output.txt"}
	close(eventCh)

	showEvents(u, eventCh)
	u.StopSpinner()

	assert.Equal(t,
		"✓ Rendered 1 pages\n"+
			"Processing page 1: pdf_pages/page_1.png\n"+
			"✓ Page 1 done\n"+
			"✓ Extraction complete, saved to gemini_output.txt\n",
		out.String())
}

func TestShowEvents_VerboseChunksFollowTheirPage(t *testing.T) {
	var out bytes.Buffer
	u := ui.New(&out, &bytes.Buffer{}, true, true)

	eventCh := make(chan transcriber.StreamEvent, 8)
	eventCh <- transcriber.StreamEvent{Type: transcriber.EventPageProcessing, PageNumber: 1, Payload: "Processing page 1: pdf_pages/page_1.png"}
	eventCh <- transcriber.StreamEvent{Type: transcriber.EventPageChunk, PageNumber: 1, Payload: "Heading "}
	eventCh <- transcriber.StreamEvent{Type: transcriber.EventPageChunk, PageNumber: 1, Payload: "and body"}
	eventCh <- transcriber.StreamEvent{Type: transcriber.EventPageComplete, PageNumber: 1, Payload: "Page 1 done"}
	close(eventCh)

	showEvents(u, eventCh)

	assert.Equal(t,
		"Processing page 1: pdf_pages/page_1.png\n"+
			"Heading and body\n"+
			"✓ Page 1 done\n",
		out.String())
}

func TestExecute_ReportsErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"one.pdf", "two.pdf"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute()
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "✗")
	assert.Contains(t, stderr.String(), err.Error())
	assert.Empty(t, stdout.String())
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Equal(t, "pdf-transcriber version "+Version+"\n", buf.String())
}
