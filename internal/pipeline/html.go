package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/bankquality/internal/core"
	"github.com/JonMunkholm/bankquality/internal/csvio"
	"github.com/JonMunkholm/bankquality/internal/web/templates"
)

// HTMLReportFile is the file name of the rendered report.
const HTMLReportFile = "quality_report.html"

// HTMLSink renders the quality report page into Dir.
type HTMLSink struct {
	Dir string
}

// Name identifies the sink in logs.
func (s HTMLSink) Name() string { return "html" }

// Write renders res to Dir/quality_report.html.
func (s HTMLSink) Write(ctx context.Context, runID string, res core.Result) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	page := templates.Report(templates.NewReportData(runID, res, ""))
	path := filepath.Join(s.Dir, HTMLReportFile)
	if err := csvio.WriteFileAtomic(path, func(w io.Writer) error { return page.Render(ctx, w) }); err != nil {
		return fmt.Errorf("write %s: %w", HTMLReportFile, err)
	}
	return nil
}
