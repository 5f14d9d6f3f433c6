package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/threedaro/ptdetail/pkg/align"
	"github.com/threedaro/ptdetail/pkg/errors"
	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/group"
	"github.com/threedaro/ptdetail/pkg/host"
	"github.com/threedaro/ptdetail/pkg/observability"
	"github.com/threedaro/ptdetail/pkg/ptd"
	"github.com/threedaro/ptdetail/pkg/settings"
	"github.com/threedaro/ptdetail/pkg/snap"
	"github.com/threedaro/ptdetail/pkg/tag"
)

// alignState tracks where the alignment stage is; it only ever moves
// forward.
type alignState int

const (
	stateAutoAligning alignState = iota
	stateAwaitingManualPick
	stateAligned
	stateAborted
)

func (s alignState) String() string {
	switch s {
	case stateAutoAligning:
		return "auto-aligning"
	case stateAwaitingManualPick:
		return "awaiting-manual-pick"
	case stateAligned:
		return "aligned"
	case stateAborted:
		return "aborted"
	}
	return "unknown"
}

// Runner executes imports against a host document.
//
// The Runner is stateless except for the settings store and logger, so
// multiple imports can share one Runner.
type Runner struct {
	Store  settings.Store
	Logger *log.Logger
}

// NewRunner creates a runner. A nil store means every import runs on
// default settings.
func NewRunner(store settings.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Store: store, Logger: logger}
}

// Execute runs the complete import pipeline against doc.
func (r *Runner) Execute(ctx context.Context, doc host.Document, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}

	st, err := r.loadSettings(doc, opts)
	if err != nil {
		return nil, err
	}

	boundary := doc.Boundary()
	if boundary == nil {
		return nil, errors.New(errors.ErrCodeInvalidBoundary, "document has no slab boundary")
	}

	result := &Result{}

	// Stage 1: Parse
	ts, err := r.parse(ctx, opts, result)
	if err != nil {
		return nil, err
	}
	result.Stats.TendonCount = len(ts)
	logger.Info("parsed tendons", "count", len(ts), "duration", result.Stats.ParseTime)

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAborted, err, "import canceled")
	}

	// Families resolve before anything moves, so a missing family fails
	// the import without touching the document.
	syms, err := resolveFamilies(doc, st)
	if err != nil {
		return nil, err
	}

	// Stage 2: Align
	working, err := r.align(ctx, ts, boundary, st, opts, result, logger)
	if err != nil {
		return nil, err
	}
	result.Tendons = working

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAborted, err, "import canceled")
	}

	// Stage 3: Snap
	if st.AutoSnapEnds {
		snapStart := time.Now()
		observability.Import().OnStageStart(ctx, StageSnap, len(working))
		result.Stats.SnappedEnds = snap.Ends(working, boundary, st.AutoSnapTolerance)
		result.Stats.SnapTime = time.Since(snapStart)
		observability.Import().OnStageComplete(ctx, StageSnap, result.Stats.SnapTime, nil)
		logger.Info("snapped endpoints", "moved", result.Stats.SnappedEnds,
			"tolerance", st.AutoSnapTolerance)
	}

	// Stage 4: Group
	groupStart := time.Now()
	observability.Import().OnStageStart(ctx, StageGroup, len(working))
	if st.GroupSimilarTendons {
		result.Groups = group.Partition(working, st.GroupTolerances())
	} else {
		result.Groups = group.Singletons(working)
	}
	result.Stats.GroupCount = len(result.Groups)
	result.Stats.GroupTime = time.Since(groupStart)
	observability.Import().OnStageComplete(ctx, StageGroup, result.Stats.GroupTime, nil)
	logger.Info("grouped tendons", "groups", len(result.Groups),
		"grouping", st.GroupSimilarTendons, "duration", result.Stats.GroupTime)

	if st.TagStrands {
		result.Placements = tag.Placements(result.Groups, st.PanStressedEndOffset)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAborted, err, "import canceled")
	}

	// Stage 5: Create
	if err := r.create(ctx, doc, syms, st, opts, result, logger); err != nil {
		return nil, err
	}

	return result, nil
}

// loadSettings resolves the settings for the run: explicit options beat the
// store, the store beats factory defaults.
func (r *Runner) loadSettings(doc host.Document, opts Options) (*settings.Settings, error) {
	if opts.Settings != nil {
		if err := opts.Settings.Validate(); err != nil {
			return nil, err
		}
		return opts.Settings, nil
	}
	if r.Store != nil {
		return r.Store.Load(doc.Key())
	}
	return settings.Defaults(), nil
}

func (r *Runner) parse(ctx context.Context, opts Options, result *Result) (ptd.TendonSet, error) {
	parseStart := time.Now()
	observability.Import().OnStageStart(ctx, StageParse, 0)

	var ts ptd.TendonSet
	var err error
	if opts.Input != nil {
		ts, err = ptd.Parse(opts.Input)
	} else {
		ts, err = ptd.ParseFile(opts.PTDPath)
	}
	result.Stats.ParseTime = time.Since(parseStart)
	observability.Import().OnStageComplete(ctx, StageParse, result.Stats.ParseTime, err)
	return ts, err
}

// align runs the alignment state machine: automatic first, then one manual
// pick when the automatic fit is rejected and a ManualAligner is available.
func (r *Runner) align(ctx context.Context, ts ptd.TendonSet, boundary *geom.Boundary,
	st *settings.Settings, opts Options, result *Result, logger *log.Logger) (ptd.TendonSet, error) {

	alignStart := time.Now()
	observability.Import().OnStageStart(ctx, StageAlign, len(ts))
	state := stateAutoAligning
	logger.Debug("alignment state", "state", state)

	tr, residual, autoErr := align.Auto(ts, boundary, st.AutoSnapTolerance)
	if autoErr == nil {
		state = stateAligned
		logger.Debug("alignment state", "state", state)
		result.Transform = tr
		result.Residual = residual
		result.Stats.AlignTime = time.Since(alignStart)
		observability.Import().OnStageComplete(ctx, StageAlign, result.Stats.AlignTime, nil)
		logger.Info("aligned automatically", "residual", residual,
			"rotation", geom.Degrees(tr.Angle), "duration", result.Stats.AlignTime)
		return tr.ApplyTendons(ts), nil
	}

	if opts.Manual == nil {
		state = stateAborted
		logger.Debug("alignment state", "state", state)
		result.Stats.AlignTime = time.Since(alignStart)
		observability.Import().OnStageComplete(ctx, StageAlign, result.Stats.AlignTime, autoErr)
		return nil, errors.Wrap(errors.ErrCodeAlignment, autoErr, "automatic alignment failed")
	}

	state = stateAwaitingManualPick
	logger.Debug("alignment state", "state", state)
	logger.Warn("automatic alignment failed, falling back to manual picks", "reason", autoErr)
	observability.Import().OnManualAlignment(ctx, residual)

	a, b, err := opts.Manual.PickPoints(ctx)
	if err != nil {
		state = stateAborted
		logger.Debug("alignment state", "state", state)
		result.Stats.AlignTime = time.Since(alignStart)
		observability.Import().OnStageComplete(ctx, StageAlign, result.Stats.AlignTime, err)
		return nil, errors.Wrap(errors.ErrCodeAlignment, err, "manual alignment declined")
	}
	tr, err = align.FromPointPairs(a.From, a.To, b.From, b.To)
	if err != nil {
		state = stateAborted
		logger.Debug("alignment state", "state", state)
		result.Stats.AlignTime = time.Since(alignStart)
		observability.Import().OnStageComplete(ctx, StageAlign, result.Stats.AlignTime, err)
		return nil, err
	}

	state = stateAligned
	logger.Debug("alignment state", "state", state)
	working := tr.ApplyTendons(ts)
	result.Transform = tr
	result.Residual = align.Residual(working, boundary)
	result.ManualAligned = true
	result.Stats.AlignTime = time.Since(alignStart)
	observability.Import().OnStageComplete(ctx, StageAlign, result.Stats.AlignTime, nil)
	logger.Info("aligned manually", "residual", result.Residual,
		"rotation", geom.Degrees(tr.Angle), "duration", result.Stats.AlignTime)
	return working, nil
}

// familySymbols holds the resolved symbols for one import.
type familySymbols struct {
	tendon host.FamilySymbol
	leader host.FamilySymbol
	drape  host.FamilySymbol
	tag    host.FamilySymbol
}

// resolveFamilies resolves every family the enabled features need.
func resolveFamilies(doc host.Document, st *settings.Settings) (familySymbols, error) {
	var syms familySymbols
	var err error

	if syms.tendon, err = doc.Resolve(st.TendonFamily, host.CategoryTendon); err != nil {
		return syms, err
	}
	if st.GroupSimilarTendons {
		if syms.leader, err = doc.Resolve(st.LeaderFamily, host.CategoryLeader); err != nil {
			return syms, err
		}
	}
	if st.TagDrapes {
		if syms.drape, err = doc.Resolve(st.DrapeFamily, host.CategoryDrape); err != nil {
			return syms, err
		}
	}
	if st.TagStrands {
		if syms.tag, err = doc.Resolve(st.TagFamily, host.CategoryTag); err != nil {
			return syms, err
		}
	}
	return syms, nil
}

// create places all elements in one transaction, then the detail group in a
// second one. A failure rolls back the open transaction and leaves the
// document untouched by it.
func (r *Runner) create(ctx context.Context, doc host.Document, syms familySymbols,
	st *settings.Settings, opts Options, result *Result, logger *log.Logger) error {

	createStart := time.Now()
	observability.Import().OnStageStart(ctx, StageCreate, len(result.Tendons))

	txn, err := doc.Begin("Create PT Tendons")
	if err != nil {
		return errors.Wrap(errors.ErrCodeCreation, err, "begin creation transaction")
	}

	handles, err := r.createElements(doc, txn, syms, st, result)
	if err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			logger.Error("rollback failed", "error", rbErr)
		}
		observability.Import().OnStageComplete(ctx, StageCreate, time.Since(createStart), err)
		return errors.Wrap(errors.ErrCodeCreation, err, "element creation failed, rolled back")
	}
	if err := txn.Commit(); err != nil {
		observability.Import().OnStageComplete(ctx, StageCreate, time.Since(createStart), err)
		return errors.Wrap(errors.ErrCodeCreation, err, "commit creation transaction")
	}
	result.CreatedElements = handles
	result.Stats.ElementCount = len(handles)
	result.Stats.CreateTime = time.Since(createStart)
	observability.Import().OnStageComplete(ctx, StageCreate, result.Stats.CreateTime, nil)
	observability.Import().OnElementsCreated(ctx, "all", len(handles))
	logger.Info("created elements", "count", len(handles), "duration", result.Stats.CreateTime)

	if !st.CreateDetailGroup {
		return nil
	}
	if len(handles) > host.MaxGroupSize {
		logger.Warn("skipping detail group, too many elements",
			"count", len(handles), "limit", host.MaxGroupSize)
		return nil
	}

	observability.Import().OnStageStart(ctx, StageDetailGroup, len(handles))
	groupStart := time.Now()
	gtxn, err := doc.Begin("Create PT Detail Group")
	if err != nil {
		return errors.Wrap(errors.ErrCodeCreation, err, "begin detail group transaction")
	}
	gh, err := doc.CreateDetailGroup(gtxn, opts.DetailGroupName, handles)
	if err != nil {
		if rbErr := gtxn.Rollback(); rbErr != nil {
			logger.Error("rollback failed", "error", rbErr)
		}
		observability.Import().OnStageComplete(ctx, StageDetailGroup, time.Since(groupStart), err)
		return errors.Wrap(errors.ErrCodeCreation, err, "detail group creation failed, rolled back")
	}
	if err := gtxn.Commit(); err != nil {
		observability.Import().OnStageComplete(ctx, StageDetailGroup, time.Since(groupStart), err)
		return errors.Wrap(errors.ErrCodeCreation, err, "commit detail group transaction")
	}
	result.DetailGroup = gh
	observability.Import().OnStageComplete(ctx, StageDetailGroup, time.Since(groupStart), nil)
	logger.Info("created detail group", "name", opts.DetailGroupName, "members", len(handles))
	return nil
}

// createElements stages every element of the import into txn and returns
// the handles in creation order.
func (r *Runner) createElements(doc host.Document, txn host.Txn, syms familySymbols,
	st *settings.Settings, result *Result) ([]host.Handle, error) {

	reps := make(map[*ptd.Tendon]*group.Group, len(result.Groups))
	members := make(map[*ptd.Tendon]bool, len(result.Tendons))
	for _, g := range result.Groups {
		reps[g.Representative] = g
		for _, m := range g.Members {
			if m != g.Representative {
				members[m] = true
			}
		}
	}

	var handles []host.Handle
	tendonHandles := make(map[*ptd.Tendon]host.Handle, len(result.Tendons))

	// Tendons go in import order, members flagged as grouped.
	for _, t := range result.Tendons {
		params := host.EndParams{
			StartType:   t.StartType,
			EndType:     t.EndType,
			StrandCount: t.StrandCount,
			TendonID:    t.ID,
			Grouped:     members[t],
		}
		if t.StartType == ptd.EndPan {
			params.StartPanOffset = st.PanStressedEndOffset
		}
		if t.EndType == ptd.EndPan {
			params.EndPanOffset = st.PanStressedEndOffset
		}
		h, err := doc.CreateTendon(txn, syms.tendon, t, params)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
		tendonHandles[t] = h
	}

	// Leaders for every multi-member group.
	if st.GroupSimilarTendons {
		for _, g := range result.Groups {
			for _, l := range g.Leaders() {
				h, err := doc.CreateLeader(txn, syms.leader, l)
				if err != nil {
					return nil, err
				}
				handles = append(handles, h)
				result.Stats.LeaderCount++
			}
		}
	}

	// Drape marks on representatives only.
	if st.TagDrapes {
		for _, g := range result.Groups {
			for _, m := range tag.DrapeMarks(g.Representative, st.TagDrapeEnds) {
				h, err := doc.CreateDrapeMark(txn, syms.drape, m)
				if err != nil {
					return nil, err
				}
				handles = append(handles, h)
				result.Stats.DrapeCount++
			}
		}
	}

	// Strand tags on the representatives' live ends.
	if st.TagStrands {
		for _, p := range result.Placements {
			target, ok := tendonHandles[p.Tendon]
			if !ok {
				return nil, errors.New(errors.ErrCodeInternal,
					"tag placement references unplaced tendon %d", p.Tendon.ID)
			}
			h, err := doc.CreateTag(txn, syms.tag, p.Anchor, target)
			if err != nil {
				return nil, err
			}
			handles = append(handles, h)
			result.Stats.TagCount++
		}
	}

	return handles, nil
}
