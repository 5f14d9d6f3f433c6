package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	i := NoopImportHooks{}
	i.OnStageStart(ctx, "parse", 12)
	i.OnStageComplete(ctx, "parse", time.Second, nil)
	i.OnManualAlignment(ctx, 312.5)
	i.OnElementsCreated(ctx, "tendon", 12)

	d := NoopDocumentHooks{}
	d.OnTransactionCommit(ctx, "Create PT Tendons", 20)
	d.OnTransactionRollback(ctx, "Create PT Tendons")
}

type testImportHooks struct {
	NoopImportHooks
	stages []string
}

func (h *testImportHooks) OnStageStart(_ context.Context, stage string, _ int) {
	h.stages = append(h.stages, stage)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Import().(NoopImportHooks); !ok {
		t.Error("Import() should return NoopImportHooks by default")
	}
	if _, ok := Document().(NoopDocumentHooks); !ok {
		t.Error("Document() should return NoopDocumentHooks by default")
	}

	custom := &testImportHooks{}
	SetImportHooks(custom)
	if Import() != ImportHooks(custom) {
		t.Error("SetImportHooks should set custom hooks")
	}
	Import().OnStageStart(context.Background(), "align", 3)
	if len(custom.stages) != 1 || custom.stages[0] != "align" {
		t.Errorf("custom hooks did not receive events: %v", custom.stages)
	}
}
