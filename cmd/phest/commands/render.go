package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"git.home.luguber.info/inful/phest/internal/diagnostics"
)

// Report is the machine-readable result of check and plugin.
type Report struct {
	Site         string                    `json:"site"`
	Lang         string                    `json:"lang,omitempty"`
	BuildType    string                    `json:"build_type"`
	BuildID      string                    `json:"build_id"`
	SourcePath   string                    `json:"source_path,omitempty"`
	OutputPath   string                    `json:"output_path,omitempty"`
	NeedsRebuild *bool                     `json:"needs_rebuild,omitempty"`
	Hash         string                    `json:"hash,omitempty"`
	Watched      int                       `json:"watched,omitempty"`
	Changed      []string                  `json:"changed,omitempty"`
	Missing      []string                  `json:"missing,omitempty"`
	Plugins      []string                  `json:"plugins,omitempty"`
	HasError     bool                      `json:"has_error"`
	Diagnostics  []diagnostics.SectionView `json:"diagnostics"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, r Report, asJSON bool) error {
	if r.Diagnostics == nil {
		r.Diagnostics = []diagnostics.SectionView{}
	}
	if asJSON {
		return writeJSON(w, r)
	}

	ident := r.BuildType
	if r.Lang != "" {
		ident = r.Lang + "/" + r.BuildType
	}
	if r.NeedsRebuild != nil {
		status := "up to date"
		if *r.NeedsRebuild {
			status = "rebuild required"
		}
		fmt.Fprintf(w, "%s [%s]: %s (%d watched, %d changed, %d missing)\n",
			r.Site, ident, status, r.Watched, len(r.Changed), len(r.Missing))
	}
	for _, p := range r.Plugins {
		fmt.Fprintf(w, "loaded plugin %s\n", p)
	}
	writeDiagnostics(w, r.Diagnostics)
	return nil
}

func writeDiagnostics(w io.Writer, view []diagnostics.SectionView) {
	for _, s := range view {
		fmt.Fprintf(w, "== %s [%s] ==\n", s.Title, strings.ToUpper(string(s.Type)))
		for _, m := range s.Messages {
			fmt.Fprintf(w, "  - %s\n", m)
		}
	}
}
