package conversations

import (
	"errors"
	"testing"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-voice/internal/utils"
)

func TestAnnotationListsSetFields(t *testing.T) {
	context := SessionContext{
		CurrentView:    utils.Ptr("rates"),
		CurrentStep:    utils.Ptr(3),
		LastUserAction: utils.Ptr("opened calculator"),
	}

	expected := "[Context: current view: rates; current step: 3; last action: opened calculator]"
	if got := context.Annotation(); got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}
}

func TestAnnotationIsEmptyWithoutFields(t *testing.T) {
	if got := (SessionContext{}).Annotation(); got != "" {
		t.Fatalf("expected empty annotation, got %q", got)
	}
}

func TestSnapshotIsIsolatedFromLaterUpdates(t *testing.T) {
	holder := &ContextHolder{}
	view := "overview"
	holder.Set(SessionContext{CurrentView: &view})

	snapshot := holder.Snapshot()
	view = "changed"
	holder.Update(func(c *SessionContext) {
		*c.CurrentView = "documents"
		c.CurrentStep = utils.Ptr(2)
	})

	if *snapshot.CurrentView != "overview" {
		t.Fatalf("expected snapshot to keep its view, got %q", *snapshot.CurrentView)
	}
	if snapshot.CurrentStep != nil {
		t.Fatalf("expected snapshot to miss the later step update")
	}
	if got := *holder.Snapshot().CurrentView; got != "documents" {
		t.Fatalf("expected updated view, got %q", got)
	}
}

func TestSnapshotKeepsHintsWhenDeepCopyFails(t *testing.T) {
	original := copyWithOption
	copyWithOption = func(to, from interface{}, opt copier.Option) error {
		return errors.New("copy failed")
	}
	t.Cleanup(func() { copyWithOption = original })

	holder := &ContextHolder{}
	view := "rates"
	holder.Set(SessionContext{CurrentView: &view, CurrentStep: utils.Ptr(2)})

	snapshot := holder.Snapshot()
	view = "changed"

	if snapshot.CurrentView == nil || *snapshot.CurrentView != "rates" {
		t.Fatalf("expected view %q, got %v", "rates", snapshot.CurrentView)
	}
	if snapshot.CurrentStep == nil || *snapshot.CurrentStep != 2 {
		t.Fatalf("expected step 2, got %v", snapshot.CurrentStep)
	}
	if snapshot.LastUserAction != nil {
		t.Fatalf("expected no last action, got %q", *snapshot.LastUserAction)
	}
}
