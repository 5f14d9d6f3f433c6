// Package memdoc is the in-memory host document. It enforces the same
// transactional rules a real drafting host would: single open transaction,
// nothing visible until commit, and no detail group over elements created
// in the same transaction.
package memdoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/errors"
	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/group"
	"github.com/threedaro/ptdetail/pkg/host"
	"github.com/threedaro/ptdetail/pkg/observability"
	"github.com/threedaro/ptdetail/pkg/ptd"
	"github.com/threedaro/ptdetail/pkg/tag"
)

// Element is one committed drawing element.
type Element struct {
	Handle   host.Handle
	Category host.Category
	Family   string

	// Exactly one of the payloads is set, matching Category.
	Tendon    *ptd.Tendon
	EndParams *host.EndParams
	Leader    *group.Leader
	Drape     *tag.DrapeMark
	TagAt     orb.Point
	TagTarget host.Handle
}

// DetailGroup is one committed named group of elements.
type DetailGroup struct {
	Handle  host.Handle
	Name    string
	Members []host.Handle
}

// Document is an in-memory host.Document.
type Document struct {
	mu sync.Mutex

	key       string
	boundary  *geom.Boundary
	families  map[string]host.FamilySymbol
	familyDir string

	elements []Element
	groups   []DetailGroup

	open *txn
}

// Option configures a Document.
type Option func(*Document)

// WithFamilyDir points the document at a directory of family files, used to
// auto-load families that are not registered up front.
func WithFamilyDir(dir string) Option {
	return func(d *Document) { d.familyDir = dir }
}

// WithFamily registers a loaded family.
func WithFamily(name string, cat host.Category) Option {
	return func(d *Document) {
		d.families[name] = host.FamilySymbol{Name: name, Category: cat}
	}
}

// New creates an empty document with the given key and slab boundary.
func New(key string, boundary *geom.Boundary, opts ...Option) *Document {
	d := &Document{
		key:      key,
		boundary: boundary,
		families: make(map[string]host.FamilySymbol),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key returns the document identity used to address per-document settings.
func (d *Document) Key() string {
	return d.key
}

// Boundary returns the slab outline.
func (d *Document) Boundary() *geom.Boundary {
	return d.boundary
}

// Resolve finds a placeable symbol for the family, auto-loading it from the
// family directory when configured.
func (d *Document) Resolve(name string, cat host.Category) (host.FamilySymbol, error) {
	if err := errors.ValidateFamilyName(name); err != nil {
		return host.FamilySymbol{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if sym, ok := d.families[name]; ok {
		return sym, nil
	}
	if d.familyDir != "" {
		if _, err := os.Stat(filepath.Join(d.familyDir, name)); err == nil {
			sym := host.FamilySymbol{Name: name, Category: cat}
			d.families[name] = sym
			return sym, nil
		}
	}
	return host.FamilySymbol{}, &host.FamilyNotFoundError{Family: name}
}

type txn struct {
	doc  *Document
	name string
	done bool

	staged       []Element
	stagedGroups []DetailGroup
}

// Begin opens a transaction. A second Begin before Commit or Rollback is a
// caller bug and fails.
func (d *Document) Begin(name string) (host.Txn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open != nil {
		return nil, errors.New(errors.ErrCodeInternal,
			"transaction %q is still open", d.open.name)
	}
	t := &txn{doc: d, name: name}
	d.open = t
	return t, nil
}

func (t *txn) Name() string {
	return t.name
}

// Commit makes the staged elements and groups visible in the document.
func (t *txn) Commit() error {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	if t.done {
		return errors.New(errors.ErrCodeInternal, "transaction %q already closed", t.name)
	}
	t.done = true
	t.doc.open = nil
	t.doc.elements = append(t.doc.elements, t.staged...)
	t.doc.groups = append(t.doc.groups, t.stagedGroups...)
	observability.Document().OnTransactionCommit(context.Background(), t.name,
		len(t.staged)+len(t.stagedGroups))
	return nil
}

// Rollback discards everything staged in the transaction.
func (t *txn) Rollback() error {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	if t.done {
		return errors.New(errors.ErrCodeInternal, "transaction %q already closed", t.name)
	}
	t.done = true
	t.doc.open = nil
	t.staged = nil
	t.stagedGroups = nil
	observability.Document().OnTransactionRollback(context.Background(), t.name)
	return nil
}

// stage validates the transaction and appends el, assigning its handle.
func (d *Document) stage(tx host.Txn, el Element) (host.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.checkTxn(tx)
	if err != nil {
		return host.Handle{}, err
	}
	el.Handle = uuid.New()
	t.staged = append(t.staged, el)
	return el.Handle, nil
}

// checkTxn requires d.mu to be held.
func (d *Document) checkTxn(tx host.Txn) (*txn, error) {
	t, ok := tx.(*txn)
	if !ok || t.doc != d {
		return nil, errors.New(errors.ErrCodeInternal, "transaction belongs to another document")
	}
	if t.done || d.open != t {
		return nil, errors.New(errors.ErrCodeInternal, "transaction %q is not open", t.name)
	}
	return t, nil
}

// CreateTendon places a tendon element.
func (d *Document) CreateTendon(tx host.Txn, sym host.FamilySymbol, t *ptd.Tendon, params host.EndParams) (host.Handle, error) {
	if sym.Category != host.CategoryTendon {
		return host.Handle{}, &host.CreationError{Op: "tendon",
			Cause: fmt.Errorf("family %q is not a tendon family", sym.Name)}
	}
	p := params
	return d.stage(tx, Element{
		Category:  host.CategoryTendon,
		Family:    sym.Name,
		Tendon:    t.Clone(),
		EndParams: &p,
	})
}

// CreateLeader places a leader line.
func (d *Document) CreateLeader(tx host.Txn, sym host.FamilySymbol, l group.Leader) (host.Handle, error) {
	if sym.Category != host.CategoryLeader {
		return host.Handle{}, &host.CreationError{Op: "leader",
			Cause: fmt.Errorf("family %q is not a leader family", sym.Name)}
	}
	return d.stage(tx, Element{
		Category: host.CategoryLeader,
		Family:   sym.Name,
		Leader:   &l,
	})
}

// CreateDrapeMark places a drape height annotation.
func (d *Document) CreateDrapeMark(tx host.Txn, sym host.FamilySymbol, m tag.DrapeMark) (host.Handle, error) {
	if sym.Category != host.CategoryDrape {
		return host.Handle{}, &host.CreationError{Op: "drape mark",
			Cause: fmt.Errorf("family %q is not a drape family", sym.Name)}
	}
	return d.stage(tx, Element{
		Category: host.CategoryDrape,
		Family:   sym.Name,
		Drape:    &m,
	})
}

// CreateTag places a strand tag attached to target.
func (d *Document) CreateTag(tx host.Txn, sym host.FamilySymbol, at orb.Point, target host.Handle) (host.Handle, error) {
	if sym.Category != host.CategoryTag {
		return host.Handle{}, &host.CreationError{Op: "tag",
			Cause: fmt.Errorf("family %q is not a tag family", sym.Name)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.checkTxn(tx)
	if err != nil {
		return host.Handle{}, err
	}
	if !t.stagedHandle(target) && !d.committedHandle(target) {
		return host.Handle{}, &host.CreationError{Op: "tag",
			Cause: fmt.Errorf("tag target %s does not exist", target)}
	}
	el := Element{
		Handle:    uuid.New(),
		Category:  host.CategoryTag,
		Family:    sym.Name,
		TagAt:     at,
		TagTarget: target,
	}
	t.staged = append(t.staged, el)
	return el.Handle, nil
}

// CreateDetailGroup bundles committed elements under a name. Grouping an
// element created in the same transaction is rejected, matching the host
// consistency rule that forces the two-phase import.
func (d *Document) CreateDetailGroup(tx host.Txn, name string, members []host.Handle) (host.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.checkTxn(tx)
	if err != nil {
		return host.Handle{}, err
	}
	if name == "" {
		return host.Handle{}, &host.CreationError{Op: "detail group",
			Cause: fmt.Errorf("group name is empty")}
	}
	if len(members) == 0 {
		return host.Handle{}, &host.CreationError{Op: "detail group",
			Cause: fmt.Errorf("group has no members")}
	}
	if len(members) > host.MaxGroupSize {
		return host.Handle{}, &host.CreationError{Op: "detail group",
			Cause: fmt.Errorf("group has %d members, limit %d", len(members), host.MaxGroupSize)}
	}
	for _, h := range members {
		if t.stagedHandle(h) {
			return host.Handle{}, &host.CreationError{Op: "detail group",
				Cause: fmt.Errorf("member %s was created in this transaction", h)}
		}
		if !d.committedHandle(h) {
			return host.Handle{}, &host.CreationError{Op: "detail group",
				Cause: fmt.Errorf("member %s does not exist", h)}
		}
	}
	g := DetailGroup{
		Handle:  uuid.New(),
		Name:    name,
		Members: append([]host.Handle(nil), members...),
	}
	t.stagedGroups = append(t.stagedGroups, g)
	return g.Handle, nil
}

func (t *txn) stagedHandle(h host.Handle) bool {
	for _, el := range t.staged {
		if el.Handle == h {
			return true
		}
	}
	return false
}

// committedHandle requires d.mu to be held.
func (d *Document) committedHandle(h host.Handle) bool {
	for _, el := range d.elements {
		if el.Handle == h {
			return true
		}
	}
	return false
}

// Elements returns the committed elements in creation order.
func (d *Document) Elements() []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Element(nil), d.elements...)
}

// DetailGroups returns the committed detail groups.
func (d *Document) DetailGroups() []DetailGroup {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DetailGroup(nil), d.groups...)
}

var _ host.Document = (*Document)(nil)
