package memdoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/errors"
	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/host"
	"github.com/threedaro/ptdetail/pkg/ptd"
)

func newTestDoc(t *testing.T) *Document {
	t.Helper()
	b, err := geom.NewBoundary(orb.Ring{{0, 0}, {10000, 0}, {10000, 10000}, {0, 10000}})
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}
	return New("test.doc", b,
		WithFamily("tendon.rfa", host.CategoryTendon),
		WithFamily("tag.rfa", host.CategoryTag),
	)
}

func testTendon(id int) *ptd.Tendon {
	return &ptd.Tendon{
		ID:          id,
		Start:       orb.Point{0, float64(id) * 1000},
		End:         orb.Point{9000, float64(id) * 1000},
		StrandCount: 4,
		StartType:   ptd.EndStress,
		EndType:     ptd.EndDead,
		Profile:     []ptd.ProfilePoint{{Distance: 0, Height: 35}, {Distance: 9000, Height: 35}},
	}
}

func createTendon(t *testing.T, d *Document, tx host.Txn, id int) host.Handle {
	t.Helper()
	sym, err := d.Resolve("tendon.rfa", host.CategoryTendon)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	h, err := d.CreateTendon(tx, sym, testTendon(id), host.EndParams{TendonID: id, StrandCount: 4})
	if err != nil {
		t.Fatalf("CreateTendon() error = %v", err)
	}
	return h
}

func TestCommitMakesElementsVisible(t *testing.T) {
	d := newTestDoc(t)
	tx, err := d.Begin("create")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	createTendon(t, d, tx, 1)
	createTendon(t, d, tx, 2)

	if got := len(d.Elements()); got != 0 {
		t.Errorf("before commit: %d elements visible, want 0", got)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	els := d.Elements()
	if len(els) != 2 {
		t.Fatalf("after commit: %d elements, want 2", len(els))
	}
	if els[0].Category != host.CategoryTendon || els[0].EndParams.TendonID != 1 {
		t.Errorf("first element = %v/%d, want tendon/1", els[0].Category, els[0].EndParams.TendonID)
	}
}

func TestRollbackDiscards(t *testing.T) {
	d := newTestDoc(t)
	tx, err := d.Begin("create")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	createTendon(t, d, tx, 1)
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if got := len(d.Elements()); got != 0 {
		t.Errorf("after rollback: %d elements, want 0", got)
	}
	// The document accepts a fresh transaction afterwards.
	if _, err := d.Begin("retry"); err != nil {
		t.Errorf("Begin() after rollback error = %v", err)
	}
}

func TestSingleOpenTransaction(t *testing.T) {
	d := newTestDoc(t)
	if _, err := d.Begin("first"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if _, err := d.Begin("second"); err == nil {
		t.Fatal("second Begin() succeeded, want error")
	}
}

func TestClosedTransactionRejected(t *testing.T) {
	d := newTestDoc(t)
	tx, _ := d.Begin("create")
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	sym, _ := d.Resolve("tendon.rfa", host.CategoryTendon)
	if _, err := d.CreateTendon(tx, sym, testTendon(1), host.EndParams{}); err == nil {
		t.Error("CreateTendon() on closed transaction succeeded, want error")
	}
	if err := tx.Commit(); err == nil {
		t.Error("double Commit() succeeded, want error")
	}
}

func TestDetailGroupRejectsSameTransactionMembers(t *testing.T) {
	d := newTestDoc(t)
	tx, _ := d.Begin("create")
	h := createTendon(t, d, tx, 1)
	if _, err := d.CreateDetailGroup(tx, "PT Tendons", []host.Handle{h}); err == nil {
		t.Fatal("CreateDetailGroup() over same-transaction element succeeded, want error")
	} else if !errors.Is(err, errors.ErrCodeCreation) {
		t.Errorf("error code = %v, want creation", errors.GetCode(err))
	}
}

func TestTwoPhaseDetailGroup(t *testing.T) {
	d := newTestDoc(t)

	tx1, _ := d.Begin("create elements")
	h1 := createTendon(t, d, tx1, 1)
	h2 := createTendon(t, d, tx1, 2)
	if err := tx1.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	tx2, _ := d.Begin("create group")
	gh, err := d.CreateDetailGroup(tx2, "PT Tendons", []host.Handle{h1, h2})
	if err != nil {
		t.Fatalf("CreateDetailGroup() error = %v", err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	groups := d.DetailGroups()
	if len(groups) != 1 {
		t.Fatalf("got %d detail groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Handle != gh || g.Name != "PT Tendons" || len(g.Members) != 2 {
		t.Errorf("group = %+v, want 2-member group named PT Tendons", g)
	}
}

func TestTagTargetMustExist(t *testing.T) {
	d := newTestDoc(t)
	tx, _ := d.Begin("create")
	h := createTendon(t, d, tx, 1)
	sym, _ := d.Resolve("tag.rfa", host.CategoryTag)

	// Tagging an element staged in the same transaction is fine.
	if _, err := d.CreateTag(tx, sym, orb.Point{100, 100}, h); err != nil {
		t.Errorf("CreateTag() on staged target error = %v", err)
	}
	// Tagging a handle the document has never seen is not.
	if _, err := d.CreateTag(tx, sym, orb.Point{0, 0}, host.Handle{}); err == nil {
		t.Error("CreateTag() on unknown target succeeded, want error")
	}
}

func TestResolveUnknownFamily(t *testing.T) {
	d := newTestDoc(t)
	_, err := d.Resolve("missing.rfa", host.CategoryLeader)
	if err == nil {
		t.Fatal("Resolve() succeeded, want error")
	}
	if !errors.Is(err, errors.ErrCodeFamily) {
		t.Errorf("error code = %v, want family not found", errors.GetCode(err))
	}
}

func TestResolveAutoLoadsFromDir(t *testing.T) {
	dir := t.TempDir()
	fam := "leader.rfa"
	if err := os.WriteFile(filepath.Join(dir, fam), nil, 0o644); err != nil {
		t.Fatalf("write family file: %v", err)
	}

	b, err := geom.NewBoundary(orb.Ring{{0, 0}, {1000, 0}, {1000, 1000}, {0, 1000}})
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}
	d := New("test.doc", b, WithFamilyDir(dir))
	sym, err := d.Resolve(fam, host.CategoryLeader)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sym.Name != fam || sym.Category != host.CategoryLeader {
		t.Errorf("symbol = %+v, want %s/leader", sym, fam)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	d := newTestDoc(t)
	if _, err := d.Resolve("../evil.rfa", host.CategoryTendon); err == nil {
		t.Fatal("Resolve() accepted a traversal name, want error")
	}
}

func TestCategoryMismatch(t *testing.T) {
	d := newTestDoc(t)
	tx, _ := d.Begin("create")
	tagSym, _ := d.Resolve("tag.rfa", host.CategoryTag)
	if _, err := d.CreateTendon(tx, tagSym, testTendon(1), host.EndParams{}); err == nil {
		t.Error("CreateTendon() with tag family succeeded, want error")
	}
}
