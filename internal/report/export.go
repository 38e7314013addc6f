// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2text/pkg/types"
)

// exportRun is the YAML shape of a run, with the duration spelled out.
type exportRun struct {
	types.RunRecord `yaml:",inline"`
	Duration        string `yaml:"duration"`
}

// WriteYAML writes run to w as a YAML document.
func WriteYAML(w io.Writer, run types.RunRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exportRun{RunRecord: run, Duration: run.Duration().String()}); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// WriteSummary writes one line per run: id prefix, status, counts and
// document, newest first as given.
func WriteSummary(w io.Writer, runs []types.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s  %s  %-9s images=%d described=%d failed=%d leftovers=%d  %s\n",
			id, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
			r.Images, r.Described, r.Failed, r.Leftovers, r.Document)
	}
}
