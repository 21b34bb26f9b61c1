package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// Plugin defines the interface for dispatcher extensions.
type Plugin interface {
	// Name returns the plugin identifier.
	Name() string
	// Init initializes the plugin. Called by New.
	Init(ctx context.Context) error
	// Close cleans up plugin resources. Called by Dispatcher.Close.
	Close(ctx context.Context) error
}

// DispatchHook observes finished dispatches, e.g. for auditing or counters.
// Hooks cannot change an outcome; a returned error is logged.
type DispatchHook interface {
	Plugin
	// AfterDispatch is called with the request and its outcome,
	// including rejected (empty message) dispatches.
	AfterDispatch(ctx context.Context, userIDs []int, message string, outcome Outcome) error
}

// pluginRegistry holds registered plugins.
type pluginRegistry struct {
	all    []Plugin
	hooks  []DispatchHook
	logger *slog.Logger
}

// newPluginRegistry creates a new plugin registry.
func newPluginRegistry(logger *slog.Logger) *pluginRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &pluginRegistry{logger: logger}
}

// register adds a plugin to the registry.
func (r *pluginRegistry) register(p Plugin) {
	r.all = append(r.all, p)

	if h, ok := p.(DispatchHook); ok {
		r.hooks = append(r.hooks, h)
	}
}

// initAll initializes all plugins.
// On failure, already-initialized plugins are closed in reverse order.
func (r *pluginRegistry) initAll(ctx context.Context) error {
	for i, p := range r.all {
		if err := p.Init(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if closeErr := r.all[j].Close(ctx); closeErr != nil {
					r.logger.Error("failed to close plugin during init rollback",
						"plugin", r.all[j].Name(), "error", closeErr)
				}
			}
			return &PluginError{Plugin: p.Name(), Op: "init", Err: err}
		}
	}
	return nil
}

// closeAll closes all plugins in reverse order.
func (r *pluginRegistry) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(r.all) - 1; i >= 0; i-- {
		if err := r.all[i].Close(ctx); err != nil {
			errs = append(errs, &PluginError{Plugin: r.all[i].Name(), Op: "close", Err: err})
		}
	}
	return errors.Join(errs...)
}

// afterDispatch runs every hook on its own copy of the request and outcome.
// Failures and panics are logged, never returned.
func (r *pluginRegistry) afterDispatch(ctx context.Context, userIDs []int, message string, outcome Outcome) {
	for _, h := range r.hooks {
		r.runHook(ctx, h, slices.Clone(userIDs), message, outcome.clone())
	}
}

func (r *pluginRegistry) runHook(ctx context.Context, h DispatchHook, userIDs []int, message string, outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic in dispatch hook", "plugin", h.Name(), "panic", p)
		}
	}()
	if err := h.AfterDispatch(ctx, userIDs, message, outcome); err != nil {
		r.logger.Warn("dispatch hook failed",
			"error", &PluginError{Plugin: h.Name(), Op: "AfterDispatch", Err: err})
	}
}
