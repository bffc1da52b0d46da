// Package cmdutil holds helpers shared by the evently commands.
package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/evently/cmd/evently/context"
	"github.com/agentstation/evently/internal/cmd/output"
	"github.com/agentstation/evently/internal/cmd/table"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/pagination"
	"github.com/agentstation/evently/pkg/types"
)

// Render writes raw in the configured format. Tabular formats render rows.
func Render(cmd *cobra.Command, appCtx appcontext.Context, raw any, rows func(wide bool) table.Data) error {
	format := output.DetectFormat(appCtx.OutputFormat())
	return output.Render(cmd.OutOrStdout(), format, raw, rows)
}

// Footer prints a paging summary after a table. Structured formats skip it.
func Footer(cmd *cobra.Command, appCtx appcontext.Context, page pagination.State) {
	switch output.DetectFormat(appCtx.OutputFormat()) {
	case output.FormatTable, output.FormatWide:
	default:
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d total)\n", page.CurrentPage, page.TotalPages, page.TotalItems)
}

// ID parses a positive numeric id argument.
func ID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("id", arg, "must be a positive number")
	}
	return id, nil
}

// Date parses "2006-01-02", "2006-01-02T15:04" or RFC3339.
func Date(field, s string) (utc.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := utc.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return utc.Time{}, errors.NewValidationError(field, s, "must be a date like 2006-01-02 or 2006-01-02T15:04")
}

// Done prints a confirmation line unless output is structured.
func Done(cmd *cobra.Command, appCtx appcontext.Context, format string, args ...any) {
	if !output.DetectFormat(appCtx.OutputFormat()).IsTabular() {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

// OpenFiles opens local paths for upload. The returned func closes them.
func OpenFiles(paths []string) ([]types.File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]types.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, errors.WrapIO("open", p, err)
		}
		opened = append(opened, f)
		files = append(files, types.File{Name: filepath.Base(p), Content: f})
	}
	return files, closeAll, nil
}

// OpenFile opens a single path for upload.
func OpenFile(path string) (types.File, func(), error) {
	files, closeFile, err := OpenFiles([]string{path})
	if err != nil {
		return types.File{}, closeFile, err
	}
	return files[0], closeFile, nil
}
