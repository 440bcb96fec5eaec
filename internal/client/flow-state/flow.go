package flowstate

import (
	"context"

	"craftconnect/internal/common/logger"
)

// Flow loads state from a Store, applies one event and writes the result back.
type Flow struct {
	store  Store
	logger logger.Logger
}

func NewFlow(store Store, log logger.Logger) *Flow {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Flow{store: store, logger: log.With(map[string]interface{}{"component": "flow"})}
}

func (f *Flow) Current(ctx context.Context) (State, error) {
	return f.store.Load(ctx)
}

// Apply persists the new state only when the transition succeeds.
func (f *Flow) Apply(ctx context.Context, event Event) (State, error) {
	if _, ok := event.(Reset); ok {
		return State{}, f.Reset(ctx)
	}

	current, err := f.store.Load(ctx)
	if err != nil {
		return State{}, err
	}

	next, err := Reduce(current, event)
	if err != nil {
		f.logger.Debug("transition rejected", map[string]interface{}{
			"event": event.eventName(),
			"stage": current.Stage().String(),
			"error": err.Error(),
		})
		return current, err
	}

	if err := f.store.Save(ctx, next); err != nil {
		return current, err
	}

	f.logger.Debug("transition applied", map[string]interface{}{
		"event": event.eventName(),
		"from":  current.Stage().String(),
		"to":    next.Stage().String(),
	})
	return next, nil
}

// Reset clears every persisted key.
func (f *Flow) Reset(ctx context.Context) error {
	return f.store.Clear(ctx)
}

// Resolve gates step against the persisted state.
func (f *Flow) Resolve(ctx context.Context, step Step) (Step, error) {
	state, err := f.store.Load(ctx)
	if err != nil {
		return StepRecord, err
	}
	return Resolve(state, step), nil
}
