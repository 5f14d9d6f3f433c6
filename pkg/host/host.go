// Package host defines the document surface the import pipeline writes to:
// transactions, family resolution, and element creation. The pipeline only
// ever talks to these interfaces; pkg/host/memdoc provides the in-memory
// implementation used by the CLI and tests.
package host

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/errors"
	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/group"
	"github.com/threedaro/ptdetail/pkg/ptd"
	"github.com/threedaro/ptdetail/pkg/tag"
)

// MaxGroupSize caps how many elements a detail group may contain. Larger
// imports still succeed, they just skip the group step.
const MaxGroupSize = 10000

// Handle identifies a created element within a document.
type Handle = uuid.UUID

// Category classifies the placeable element kinds.
type Category int

const (
	CategoryTendon Category = iota
	CategoryLeader
	CategoryDrape
	CategoryTag
)

func (c Category) String() string {
	switch c {
	case CategoryTendon:
		return "tendon"
	case CategoryLeader:
		return "leader"
	case CategoryDrape:
		return "drape"
	case CategoryTag:
		return "tag"
	}
	return "unknown"
}

// FamilySymbol is a loaded, placeable family type.
type FamilySymbol struct {
	Name     string
	Category Category
}

// FamilyNotFoundError reports a family that is neither loaded in the
// document nor available for auto-loading.
type FamilyNotFoundError struct {
	Family string
}

func (e *FamilyNotFoundError) Error() string {
	return fmt.Sprintf("family %q is not loaded and could not be found", e.Family)
}

// Code implements errors.Coder.
func (e *FamilyNotFoundError) Code() errors.Code {
	return errors.ErrCodeFamily
}

// CreationError reports a failed element creation inside a transaction.
type CreationError struct {
	Op    string
	Cause error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create %s: %v", e.Op, e.Cause)
}

func (e *CreationError) Unwrap() error {
	return e.Cause
}

// Code implements errors.Coder.
func (e *CreationError) Code() errors.Code {
	return errors.ErrCodeCreation
}

// Txn is one open document transaction. All creation flows through a Txn;
// nothing is visible in the document until Commit.
type Txn interface {
	Name() string
	Commit() error
	Rollback() error
}

// Transactor opens transactions on a document. Only one transaction may be
// open at a time.
type Transactor interface {
	Begin(name string) (Txn, error)
}

// EndParams carries the per-tendon parameters written onto a placed tendon
// element.
type EndParams struct {
	StartType      ptd.EndType
	EndType        ptd.EndType
	StartPanOffset float64
	EndPanOffset   float64
	StrandCount    int
	TendonID       int
	Grouped        bool // member of a multi-tendon group, not its representative
}

// ElementCreator places drawing elements.
type ElementCreator interface {
	CreateTendon(txn Txn, sym FamilySymbol, t *ptd.Tendon, params EndParams) (Handle, error)
	CreateLeader(txn Txn, sym FamilySymbol, l group.Leader) (Handle, error)
	CreateDrapeMark(txn Txn, sym FamilySymbol, m tag.DrapeMark) (Handle, error)
}

// TagCreator places annotation tags attached to an existing element.
type TagCreator interface {
	CreateTag(txn Txn, sym FamilySymbol, at orb.Point, target Handle) (Handle, error)
}

// GroupCreator bundles committed elements into a named detail group. The
// elements must already be committed; grouping elements created in the same
// transaction is a document consistency error.
type GroupCreator interface {
	CreateDetailGroup(txn Txn, name string, members []Handle) (Handle, error)
}

// FamilyResolver finds a placeable symbol for a family name, auto-loading
// the family when the document supports it.
type FamilyResolver interface {
	Resolve(name string, cat Category) (FamilySymbol, error)
}

// Document is the full surface the import pipeline needs from a host
// document.
type Document interface {
	Key() string
	Boundary() *geom.Boundary

	Transactor
	FamilyResolver
	ElementCreator
	TagCreator
	GroupCreator
}
