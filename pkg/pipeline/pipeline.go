// Package pipeline provides the core tendon import pipeline.
//
// This package implements the complete parse → align → snap → group →
// create flow that turns an INDUCTA PTD export into placed drawing
// elements. Centralizing it here keeps the CLI a thin shell and makes the
// whole import testable against the in-memory document.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Parse: Read the PTD export into tendon records
//  2. Align: Fit the batch onto the slab boundary with a rigid transform
//  3. Snap: Pull near-boundary endpoints onto the boundary
//  4. Group: Cluster similar tendons behind one representative
//  5. Create: Place elements and annotations in two transactions
//
// Element creation is two-phase on purpose: tendons, leaders, drape marks
// and tags commit first, and the detail group wraps them in a second
// transaction, because the host rejects grouping elements created in the
// same transaction.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(store, logger)
//	opts := pipeline.Options{
//	    PTDPath: "slab-l3.ptd",
//	}
//	result, err := runner.Execute(ctx, doc, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Stats.TendonCount, "tendons placed")
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/align"
	"github.com/threedaro/ptdetail/pkg/group"
	"github.com/threedaro/ptdetail/pkg/host"
	"github.com/threedaro/ptdetail/pkg/ptd"
	"github.com/threedaro/ptdetail/pkg/settings"
	"github.com/threedaro/ptdetail/pkg/tag"
)

// DefaultDetailGroupName is the detail group name used when the caller does
// not provide one.
const DefaultDetailGroupName = "PT Tendons"

// Stage names, as reported to observability hooks.
const (
	StageParse       = "parse"
	StageAlign       = "align"
	StageSnap        = "snap"
	StageGroup       = "group"
	StageCreate      = "create"
	StageDetailGroup = "detail-group"
)

// PointMapping is one manually picked correspondence: a point of the
// imported batch and where it belongs on the drawing.
type PointMapping struct {
	From orb.Point `json:"from"`
	To   orb.Point `json:"to"`
}

// ManualAligner supplies point picks when automatic alignment fails. The
// pipeline blocks on PickPoints, so implementations should honor ctx.
type ManualAligner interface {
	PickPoints(ctx context.Context) (a, b PointMapping, err error)
}

// Options contains all configuration for one import run.
type Options struct {
	// PTDPath is the PTD export to import. Ignored when Input is set.
	PTDPath string `json:"ptd_path,omitempty"`

	// DetailGroupName names the detail group created over the import.
	DetailGroupName string `json:"detail_group_name,omitempty"`

	// Runtime options (not serialized)
	Input    io.Reader          `json:"-"` // overrides PTDPath when set
	Settings *settings.Settings `json:"-"` // overrides the store lookup when set
	Manual   ManualAligner      `json:"-"` // optional manual alignment fallback
	Logger   *log.Logger        `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.PTDPath == "" && o.Input == nil {
		return fmt.Errorf("ptd_path is required")
	}
	if o.DetailGroupName == "" {
		o.DetailGroupName = DefaultDetailGroupName
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Result contains the outputs of an import run.
type Result struct {
	// Tendons are the placed tendons, aligned and snapped.
	Tendons ptd.TendonSet

	// Transform is the rigid transform that placed the batch.
	Transform align.Transform

	// Residual is the fit residual of the applied transform.
	Residual float64

	// ManualAligned reports whether the transform came from manual picks.
	ManualAligned bool

	// Groups is the tendon grouping used for annotation.
	Groups []*group.Group

	// Placements are the strand tag placements.
	Placements []tag.Placement

	// CreatedElements are the handles committed in the creation phase.
	CreatedElements []host.Handle

	// DetailGroup is the committed detail group handle, zero when skipped.
	DetailGroup host.Handle

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	TendonCount  int
	GroupCount   int
	SnappedEnds  int
	ElementCount int
	TagCount     int
	LeaderCount  int
	DrapeCount   int

	ParseTime  time.Duration
	AlignTime  time.Duration
	SnapTime   time.Duration
	GroupTime  time.Duration
	CreateTime time.Duration
}
