package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/errors"
	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/host"
	"github.com/threedaro/ptdetail/pkg/host/memdoc"
	"github.com/threedaro/ptdetail/pkg/settings"
)

// exportFor renders a minimal PTD export with two full-span parallel
// tendons, in the export's metre units.
func exportFor(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	for i, y := range []float64{2.0, 3.2} {
		fmt.Fprintf(&sb, "Tendon No. %d\n", i+1)
		sb.WriteString("Length : 9.96m\n")
		fmt.Fprintf(&sb,
			"End Point co-orinates of the tendon are start: (0.02, %.2f) end: (9.98, %.2f)\n", y, y)
		sb.WriteString("Type : 1\n")
		sb.WriteString("Type of strands : 15.2\n")
		sb.WriteString("Number of strands : 4\n")
		sb.WriteString("Start : Live End\n")
		sb.WriteString("End : Dead End\n")
		sb.WriteString("No., L, H, Rs, Rh\n")
		sb.WriteString("1, 0.0, 0.035\n")
		sb.WriteString("2, 4.98, 0.15\n")
		sb.WriteString("3, 9.96, 0.035\n\n")
	}
	return sb.String()
}

func newTestDoc(t *testing.T, st *settings.Settings) *memdoc.Document {
	t.Helper()
	b, err := geom.NewBoundary(orb.Ring{{0, 0}, {10000, 0}, {10000, 10000}, {0, 10000}})
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}
	return memdoc.New("slab-l3.doc", b,
		memdoc.WithFamily(st.TendonFamily, host.CategoryTendon),
		memdoc.WithFamily(st.LeaderFamily, host.CategoryLeader),
		memdoc.WithFamily(st.DrapeFamily, host.CategoryDrape),
		memdoc.WithFamily(st.TagFamily, host.CategoryTag),
	)
}

func TestExecuteEndToEnd(t *testing.T) {
	st := settings.Defaults()
	doc := newTestDoc(t, st)
	runner := NewRunner(nil, nil)

	result, err := runner.Execute(context.Background(), doc, Options{
		Input:    strings.NewReader(exportFor(t)),
		Settings: st,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Stats.TendonCount != 2 {
		t.Errorf("TendonCount = %d, want 2", result.Stats.TendonCount)
	}
	if result.ManualAligned {
		t.Error("ManualAligned = true, want automatic alignment")
	}
	if result.Residual > 200 {
		t.Errorf("Residual = %v, want within acceptance", result.Residual)
	}
	// Two parallel full-span tendons 1200mm apart cluster into one group.
	if result.Stats.GroupCount != 1 {
		t.Errorf("GroupCount = %d, want 1", result.Stats.GroupCount)
	}
	// The far endpoint of the second tendon is 40mm shy of the edge after
	// alignment, inside the 50mm snap tolerance.
	if result.Stats.SnappedEnds != 1 {
		t.Errorf("SnappedEnds = %d, want 1", result.Stats.SnappedEnds)
	}
	if result.Stats.LeaderCount != 1 {
		t.Errorf("LeaderCount = %d, want 1 uniform-spacing leader", result.Stats.LeaderCount)
	}
	if result.Stats.DrapeCount != 1 {
		t.Errorf("DrapeCount = %d, want 1 interior mark on the representative", result.Stats.DrapeCount)
	}
	// Only the representative's live start end is tagged.
	if result.Stats.TagCount != 1 {
		t.Errorf("TagCount = %d, want 1", result.Stats.TagCount)
	}
	// 2 tendons + 1 leader + 1 drape mark + 1 tag.
	if result.Stats.ElementCount != 5 {
		t.Errorf("ElementCount = %d, want 5", result.Stats.ElementCount)
	}

	els := doc.Elements()
	if len(els) != 5 {
		t.Fatalf("document has %d committed elements, want 5", len(els))
	}
	tendons := 0
	for _, el := range els {
		if el.Category == host.CategoryTendon {
			tendons++
			if el.EndParams.StrandCount != 4 {
				t.Errorf("tendon %d strand count = %d, want 4",
					el.EndParams.TendonID, el.EndParams.StrandCount)
			}
		}
	}
	if tendons != 2 {
		t.Errorf("document has %d tendon elements, want 2", tendons)
	}

	groups := doc.DetailGroups()
	if len(groups) != 1 {
		t.Fatalf("document has %d detail groups, want 1", len(groups))
	}
	if groups[0].Name != DefaultDetailGroupName {
		t.Errorf("detail group name = %q, want %q", groups[0].Name, DefaultDetailGroupName)
	}
	if len(groups[0].Members) != 5 {
		t.Errorf("detail group has %d members, want 5", len(groups[0].Members))
	}
}

func TestExecuteGroupedMemberFlag(t *testing.T) {
	st := settings.Defaults()
	doc := newTestDoc(t, st)
	runner := NewRunner(nil, nil)

	_, err := runner.Execute(context.Background(), doc, Options{
		Input:    strings.NewReader(exportFor(t)),
		Settings: st,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var grouped, plain int
	for _, el := range doc.Elements() {
		if el.Category != host.CategoryTendon {
			continue
		}
		if el.EndParams.Grouped {
			grouped++
		} else {
			plain++
		}
	}
	if plain != 1 || grouped != 1 {
		t.Errorf("representative/member split = %d/%d, want 1/1", plain, grouped)
	}
}

func TestExecuteWithoutDetailGroup(t *testing.T) {
	st := settings.Defaults()
	st.CreateDetailGroup = false
	doc := newTestDoc(t, st)
	runner := NewRunner(nil, nil)

	result, err := runner.Execute(context.Background(), doc, Options{
		Input:    strings.NewReader(exportFor(t)),
		Settings: st,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.DetailGroup != (host.Handle{}) {
		t.Error("DetailGroup set, want zero handle")
	}
	if len(doc.DetailGroups()) != 0 {
		t.Errorf("document has %d detail groups, want 0", len(doc.DetailGroups()))
	}
	if len(doc.Elements()) != 5 {
		t.Errorf("document has %d elements, want 5", len(doc.Elements()))
	}
}

func TestExecuteGroupingDisabled(t *testing.T) {
	st := settings.Defaults()
	st.GroupSimilarTendons = false
	doc := newTestDoc(t, st)
	runner := NewRunner(nil, nil)

	result, err := runner.Execute(context.Background(), doc, Options{
		Input:    strings.NewReader(exportFor(t)),
		Settings: st,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Stats.GroupCount != 2 {
		t.Errorf("GroupCount = %d, want 2 singletons", result.Stats.GroupCount)
	}
	if result.Stats.LeaderCount != 0 {
		t.Errorf("LeaderCount = %d, want 0", result.Stats.LeaderCount)
	}
	// Every singleton representative's live end gets a tag.
	if result.Stats.TagCount != 2 {
		t.Errorf("TagCount = %d, want 2", result.Stats.TagCount)
	}
}

func TestExecuteMissingFamilyLeavesDocumentUntouched(t *testing.T) {
	st := settings.Defaults()
	b, err := geom.NewBoundary(orb.Ring{{0, 0}, {10000, 0}, {10000, 10000}, {0, 10000}})
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}
	// Tag family deliberately not registered.
	doc := memdoc.New("slab-l3.doc", b,
		memdoc.WithFamily(st.TendonFamily, host.CategoryTendon),
		memdoc.WithFamily(st.LeaderFamily, host.CategoryLeader),
		memdoc.WithFamily(st.DrapeFamily, host.CategoryDrape),
	)
	runner := NewRunner(nil, nil)

	_, err = runner.Execute(context.Background(), doc, Options{
		Input:    strings.NewReader(exportFor(t)),
		Settings: st,
	})
	if err == nil {
		t.Fatal("Execute() succeeded, want family resolution failure")
	}
	if !errors.Is(err, errors.ErrCodeFamily) {
		t.Errorf("error code = %v, want family not found", errors.GetCode(err))
	}
	if len(doc.Elements()) != 0 {
		t.Errorf("document has %d elements after failed import, want 0", len(doc.Elements()))
	}
}

// pickAligner returns fixed point mappings.
type pickAligner struct {
	a, b PointMapping
	err  error
	used bool
}

func (p *pickAligner) PickPoints(context.Context) (PointMapping, PointMapping, error) {
	p.used = true
	return p.a, p.b, p.err
}

// offCenterExport builds an export whose batch cannot be auto-aligned: two
// short tendons spaced so far apart that every fit leaves a corner hanging.
func offCenterExport() string {
	var sb strings.Builder
	for i, y := range []float64{1.0, 2.5} {
		fmt.Fprintf(&sb, "Tendon No. %d\n", i+1)
		sb.WriteString("Length : 2.0m\n")
		fmt.Fprintf(&sb,
			"End Point co-orinates of the tendon are start: (1.0, %.2f) end: (3.0, %.2f)\n", y, y)
		sb.WriteString("Number of strands : 4\n")
		sb.WriteString("Start : Live End\n")
		sb.WriteString("End : Dead End\n")
		sb.WriteString("No., L, H, Rs, Rh\n")
		sb.WriteString("1, 0.0, 0.035\n")
		sb.WriteString("2, 2.0, 0.035\n\n")
	}
	return sb.String()
}

func TestExecuteManualFallback(t *testing.T) {
	st := settings.Defaults()
	doc := newTestDoc(t, st)
	runner := NewRunner(nil, nil)

	// Identity mapping: keep the batch where the export put it.
	manual := &pickAligner{
		a: PointMapping{From: orb.Point{1000, 1000}, To: orb.Point{1000, 1000}},
		b: PointMapping{From: orb.Point{3000, 1000}, To: orb.Point{3000, 1000}},
	}
	result, err := runner.Execute(context.Background(), doc, Options{
		Input:    strings.NewReader(offCenterExport()),
		Settings: st,
		Manual:   manual,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !manual.used {
		t.Error("manual aligner was never consulted")
	}
	if !result.ManualAligned {
		t.Error("ManualAligned = false, want true")
	}
	if result.Tendons[0].Start != (orb.Point{1000, 1000}) {
		t.Errorf("first start = %v, want unchanged (1000, 1000)", result.Tendons[0].Start)
	}
}

func TestExecuteManualDeclined(t *testing.T) {
	st := settings.Defaults()
	doc := newTestDoc(t, st)
	runner := NewRunner(nil, nil)

	manual := &pickAligner{err: fmt.Errorf("user canceled")}
	_, err := runner.Execute(context.Background(), doc, Options{
		Input:    strings.NewReader(offCenterExport()),
		Settings: st,
		Manual:   manual,
	})
	if err == nil {
		t.Fatal("Execute() succeeded, want alignment error")
	}
	if !errors.Is(err, errors.ErrCodeAlignment) {
		t.Errorf("error code = %v, want alignment", errors.GetCode(err))
	}
	if len(doc.Elements()) != 0 {
		t.Errorf("document has %d elements after declined import, want 0", len(doc.Elements()))
	}
}

func TestExecuteNoAlignerFails(t *testing.T) {
	st := settings.Defaults()
	doc := newTestDoc(t, st)
	runner := NewRunner(nil, nil)

	_, err := runner.Execute(context.Background(), doc, Options{
		Input:    strings.NewReader(offCenterExport()),
		Settings: st,
	})
	if err == nil {
		t.Fatal("Execute() succeeded, want alignment error")
	}
	if !errors.Is(err, errors.ErrCodeAlignment) {
		t.Errorf("error code = %v, want alignment", errors.GetCode(err))
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	st := settings.Defaults()
	doc := newTestDoc(t, st)
	runner := NewRunner(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Execute(ctx, doc, Options{
		Input:    strings.NewReader(exportFor(t)),
		Settings: st,
	})
	if err == nil {
		t.Fatal("Execute() succeeded with canceled context, want error")
	}
	if !errors.Is(err, errors.ErrCodeAborted) {
		t.Errorf("error code = %v, want aborted", errors.GetCode(err))
	}
}

func TestOptionsValidate(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("empty options validated, want error")
	}

	opts = Options{PTDPath: "slab.ptd"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.DetailGroupName != DefaultDetailGroupName {
		t.Errorf("DetailGroupName = %q, want default", opts.DetailGroupName)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}
}
