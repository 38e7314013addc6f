// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStatus is the outcome of converting one document.
type RunStatus string

const (
	// RunConverted means every stage completed.
	RunConverted RunStatus = "converted"
	// RunDegraded means the output was written but the description phase
	// did not run (backend init failure or skipped), so placeholders remain.
	RunDegraded RunStatus = "degraded"
	// RunFailed means no output was written.
	RunFailed RunStatus = "failed"
)

// ImageStatus is the outcome of describing one image.
type ImageStatus string

const (
	ImageDescribed ImageStatus = "described"
	ImageFailed    ImageStatus = "failed"
	ImageMissing   ImageStatus = "missing"
	ImageSkipped   ImageStatus = "skipped"
)

// ImageOutcome records what happened to one materialized image.
type ImageOutcome struct {
	Name   string      `json:"name" yaml:"name"`
	Page   int         `json:"page" yaml:"page"`
	Block  int         `json:"block" yaml:"block"`
	Path   string      `json:"path" yaml:"path"`
	Status ImageStatus `json:"status" yaml:"status"`
	Detail string      `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// RunRecord summarizes one document conversion for the run ledger.
type RunRecord struct {
	ID         string         `json:"id" yaml:"id"`
	Document   string         `json:"document" yaml:"document"`
	OutputPath string         `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Backend    string         `json:"backend" yaml:"backend"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
	Pages      int            `json:"pages" yaml:"pages"`
	Images     int            `json:"images" yaml:"images"`
	Described  int            `json:"described" yaml:"described"`
	Failed     int            `json:"failed" yaml:"failed"`
	Leftovers  int            `json:"leftovers" yaml:"leftovers"`
	Status     RunStatus      `json:"status" yaml:"status"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	Outcomes   []ImageOutcome `json:"images_detail,omitempty" yaml:"images_detail,omitempty"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
