// Package observability provides hooks for instrumenting the import
// pipeline without adding hard dependencies on a metrics backend.
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which keeps the core
// packages free of observability frameworks and avoids import cycles.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetImportHooks(&myImportHooks{})
//	    // ... run application
//	}
//
// The pipeline runner emits events as it executes:
//
//	observability.Import().OnStageStart(ctx, "align", tendonCount)
//	// ... fit the batch ...
//	observability.Import().OnStageComplete(ctx, "align", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// ImportHooks receives events from the import pipeline. Stage names are the
// pipeline's own: parse, align, snap, group, create, detail-group.
type ImportHooks interface {
	OnStageStart(ctx context.Context, stage string, itemCount int)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnManualAlignment records that automatic alignment gave way to a
	// manual pick, with the residual the automatic fit achieved.
	OnManualAlignment(ctx context.Context, residual float64)

	// OnElementsCreated records a committed creation transaction.
	OnElementsCreated(ctx context.Context, category string, count int)
}

// DocumentHooks receives events from host document transactions.
type DocumentHooks interface {
	OnTransactionCommit(ctx context.Context, name string, elementCount int)
	OnTransactionRollback(ctx context.Context, name string)
}

// NoopImportHooks is the default ImportHooks implementation.
type NoopImportHooks struct{}

func (NoopImportHooks) OnStageStart(context.Context, string, int) {}

func (NoopImportHooks) OnStageComplete(context.Context, string, time.Duration, error) {}

func (NoopImportHooks) OnManualAlignment(context.Context, float64) {}

func (NoopImportHooks) OnElementsCreated(context.Context, string, int) {}

// NoopDocumentHooks is the default DocumentHooks implementation.
type NoopDocumentHooks struct{}

func (NoopDocumentHooks) OnTransactionCommit(context.Context, string, int) {}

func (NoopDocumentHooks) OnTransactionRollback(context.Context, string) {}

var (
	_ ImportHooks   = NoopImportHooks{}
	_ DocumentHooks = NoopDocumentHooks{}
)

var (
	mu            sync.RWMutex
	importHooks   ImportHooks   = NoopImportHooks{}
	documentHooks DocumentHooks = NoopDocumentHooks{}
)

// SetImportHooks registers custom import hooks. Call at startup, before the
// pipeline runs.
func SetImportHooks(h ImportHooks) {
	mu.Lock()
	defer mu.Unlock()
	importHooks = h
}

// Import returns the registered import hooks.
func Import() ImportHooks {
	mu.RLock()
	defer mu.RUnlock()
	return importHooks
}

// SetDocumentHooks registers custom document hooks.
func SetDocumentHooks(h DocumentHooks) {
	mu.Lock()
	defer mu.Unlock()
	documentHooks = h
}

// Document returns the registered document hooks.
func Document() DocumentHooks {
	mu.RLock()
	defer mu.RUnlock()
	return documentHooks
}

// Reset restores the no-op hooks, mainly for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	importHooks = NoopImportHooks{}
	documentHooks = NoopDocumentHooks{}
}
