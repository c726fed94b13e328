package pipeline

import (
	"sync"
	"time"

	"github.com/ppiankov/gradelens/internal/filter"
	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/score"
)

// Session holds one user's dataset and current filter. The base dataset is
// never modified; views are rebuilt whenever the filter changes. Sessions
// share no mutable state, so two sessions over the same base are isolated.
type Session struct {
	ID        string
	CreatedAt time.Time

	rule   flagging.Rule
	scorer *score.Scorer

	mu     sync.RWMutex
	base   model.Dataset
	filter model.FilterSpec
	view   model.Dataset
}

// NewSession creates a session over a flagged base dataset with no filter.
func NewSession(id string, base model.Dataset, rule flagging.Rule, scorer *score.Scorer) *Session {
	if !base.Flagged {
		base = rule.Apply(base)
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		rule:      rule,
		scorer:    scorer,
		base:      base,
		view:      base,
	}
}

// Base returns the unfiltered dataset. Callers must not modify it.
func (s *Session) Base() model.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// Filter returns the active filter
func (s *Session) Filter() model.FilterSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// View returns the filtered dataset. Callers must not modify it.
func (s *Session) View() model.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetFilter validates spec and replaces the active filter. On error the
// previous filter stays in place.
func (s *Session) SetFilter(spec model.FilterSpec) (model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := filter.Apply(s.base, spec)
	if err != nil {
		return model.Dataset{}, err
	}
	s.filter = spec
	s.view = view
	return view, nil
}

// ClearFilter restores the unfiltered view
func (s *Session) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = model.FilterSpec{}
	s.view = s.base
}

// Snapshot computes metrics of the current view. An empty order keeps the
// scorer's configured order.
func (s *Session) Snapshot(order model.QuestionOrder) model.Snapshot {
	view := s.View()
	return s.scorer.WithOrder(order).Calculate(view)
}

// ReviewQueue lists flagged records of the current view
func (s *Session) ReviewQueue() []flagging.ReviewItem {
	return s.rule.ReviewQueue(s.View())
}

// Result bundles the current view for rendering
func (s *Session) Result(title string, order model.QuestionOrder) *AnalysisResult {
	s.mu.RLock()
	base, view, spec := s.base, s.view, s.filter
	s.mu.RUnlock()

	return &AnalysisResult{
		Source:   s.ID,
		Title:    title,
		Filter:   spec,
		Base:     base,
		View:     view,
		Snapshot: s.scorer.WithOrder(order).Calculate(view),
		Queue:    s.rule.ReviewQueue(view),
	}
}
