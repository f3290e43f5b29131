// Package conversations holds the ambient state a conversation carries next
// to its turns.
package conversations

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-voice/core/llms"
)

// SessionContext carries hints about what the user is currently doing. Every
// field is optional.
type SessionContext struct {
	CurrentView    *string
	CurrentStep    *int
	LastUserAction *string
}

func (c SessionContext) IsZero() bool {
	return c.CurrentView == nil && c.CurrentStep == nil && c.LastUserAction == nil
}

// Annotation renders the context as a note for an outgoing reply request. It
// is empty when no field is set.
func (c SessionContext) Annotation() string {
	if c.IsZero() {
		return ""
	}

	parts := []string{}
	if c.CurrentView != nil && *c.CurrentView != "" {
		parts = append(parts, fmt.Sprintf("current view: %s", *c.CurrentView))
	}
	if c.CurrentStep != nil {
		parts = append(parts, fmt.Sprintf("current step: %d", *c.CurrentStep))
	}
	if c.LastUserAction != nil && *c.LastUserAction != "" {
		parts = append(parts, fmt.Sprintf("last action: %s", *c.LastUserAction))
	}
	if len(parts) == 0 {
		return ""
	}
	return "[Context: " + strings.Join(parts, "; ") + "]"
}

// ContextHolder guards a SessionContext that is mutated by UI events while
// turns read snapshots of it.
type ContextHolder struct {
	mu      sync.RWMutex
	context SessionContext
}

// Set replaces the whole context.
func (h *ContextHolder) Set(context SessionContext) {
	snapshot := deepCopy(context)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.context = snapshot
}

// Update mutates the context in place.
func (h *ContextHolder) Update(update func(*SessionContext)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	update(&h.context)
}

// Snapshot returns a deep copy that later updates cannot reach.
func (h *ContextHolder) Snapshot() SessionContext {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return deepCopy(h.context)
}

var copyWithOption = copier.CopyWithOption

func deepCopy(context SessionContext) SessionContext {
	snapshot := SessionContext{}
	if err := copyWithOption(&snapshot, &context, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to deep copy session context, cloning fields", "error", err)
		return cloneFields(context)
	}
	return snapshot
}

func cloneFields(context SessionContext) SessionContext {
	return SessionContext{
		CurrentView:    clonePtr(context.CurrentView),
		CurrentStep:    clonePtr(context.CurrentStep),
		LastUserAction: clonePtr(context.LastUserAction),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HistoryView exposes the stored turns of a conversation.
type HistoryView interface {
	// History returns the appended turns, oldest first.
	History() []llms.Turn
}
