// Package command turns speech transcripts into named actions. The
// classifier is a fixed-priority pattern table, not a grammar: trigger
// phrases may overlap, and the priority order below is the contract that
// keeps dispatch deterministic.
package command

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/repositories"
)

// Known action names.
const (
	ActionNavigate       = "navigate"
	ActionCreateContent  = "create-content"
	ActionHelp           = "help"
	ActionSettings       = "settings"
	ActionCalibrateAudio = "calibrate-audio"
	ActionSearch         = "search"
)

// roomKeywords maps spoken room names to room IDs, checked in order so
// "dashboard" and "lobby" both land in the lobby.
var roomKeywords = []struct {
	keyword string
	roomID  string
}{
	{"dashboard", "lobby"},
	{"lobby", "lobby"},
	{"blog", "blog-room"},
	{"pages", "pages-wing"},
	{"draft", "draft-corner"},
	{"archive", "archive-basement"},
}

// Params carries an action's parameters.
type Params map[string]string

// Handler is invoked when its action is dispatched.
type Handler func(params Params)

// DispatchResult reports what a transcript resolved to.
type DispatchResult struct {
	Matched bool   `json:"matched"`
	Action  string `json:"action,omitempty"`
	Params  Params `json:"params,omitempty"`
}

// Dispatcher maps transcripts to registered handlers. It is stateless
// apart from the handler table; classification itself is pure.
type Dispatcher struct {
	mu          sync.RWMutex
	handlers    map[string]Handler
	interpreter repositories.CommandInterpreter
	logger      *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithInterpreter installs an AI interpreter consulted before the local
// pattern table. Its result is used only when it names a known action.
func WithInterpreter(interpreter repositories.CommandInterpreter) Option {
	return func(d *Dispatcher) {
		d.interpreter = interpreter
	}
}

// NewDispatcher creates a dispatcher with an empty handler table.
func NewDispatcher(logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterHandler binds a handler to an action name. Re-registering an
// action replaces the previous handler.
func (d *Dispatcher) RegisterHandler(action string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[action] = handler
}

// RegisteredActions returns the action names that currently have handlers.
func (d *Dispatcher) RegisteredActions() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	actions := make([]string, 0, len(d.handlers))
	for action := range d.handlers {
		actions = append(actions, action)
	}
	return actions
}

// Dispatch classifies a transcript and invokes the matching handler, if
// one is registered. Unrecognized transcripts return Matched=false; the
// caller surfaces the "unrecognized command" signal.
func (d *Dispatcher) Dispatch(ctx context.Context, transcript string) DispatchResult {
	normalized := strings.ToLower(strings.TrimSpace(transcript))
	if normalized == "" {
		return DispatchResult{}
	}

	result := d.interpret(ctx, normalized)
	if !result.Matched {
		result = Classify(normalized)
	}

	if result.Matched {
		d.mu.RLock()
		handler, ok := d.handlers[result.Action]
		d.mu.RUnlock()
		if ok {
			handler(result.Params)
		} else {
			d.logger.Debug("No handler registered for action",
				zap.String("action", result.Action))
		}
	}

	return result
}

// interpret asks the AI interpreter, when installed, for its reading of
// the transcript. Anything outside the known action vocabulary is
// discarded so dispatch stays deterministic.
func (d *Dispatcher) interpret(ctx context.Context, transcript string) DispatchResult {
	if d.interpreter == nil {
		return DispatchResult{}
	}

	interpretation, err := d.interpreter.Interpret(ctx, transcript)
	if err != nil {
		d.logger.Warn("Command interpreter failed, falling back to patterns",
			zap.Error(err))
		return DispatchResult{}
	}
	if interpretation == nil || !knownAction(interpretation.Action) {
		return DispatchResult{}
	}

	params := make(Params, len(interpretation.Parameters))
	for k, v := range interpretation.Parameters {
		params[k] = v
	}
	return DispatchResult{Matched: true, Action: interpretation.Action, Params: params}
}

func knownAction(action string) bool {
	switch action {
	case ActionNavigate, ActionCreateContent, ActionHelp, ActionSettings, ActionCalibrateAudio, ActionSearch:
		return true
	}
	return false
}

// Classify maps a normalized transcript to zero or one action. Rules are
// evaluated first-match-wins in this order: navigation, creation, system,
// search.
func Classify(transcript string) DispatchResult {
	if strings.Contains(transcript, "navigate to") || strings.Contains(transcript, "go to") {
		for _, rk := range roomKeywords {
			if strings.Contains(transcript, rk.keyword) {
				return DispatchResult{
					Matched: true,
					Action:  ActionNavigate,
					Params:  Params{"target": rk.roomID},
				}
			}
		}
	}

	if strings.Contains(transcript, "create new") {
		if strings.Contains(transcript, "blog post") {
			return DispatchResult{Matched: true, Action: ActionCreateContent, Params: Params{"type": "blog"}}
		}
		if strings.Contains(transcript, "page") {
			return DispatchResult{Matched: true, Action: ActionCreateContent, Params: Params{"type": "page"}}
		}
	}

	switch {
	case strings.Contains(transcript, "help"):
		return DispatchResult{Matched: true, Action: ActionHelp}
	case strings.Contains(transcript, "settings"):
		return DispatchResult{Matched: true, Action: ActionSettings}
	case strings.Contains(transcript, "calibrate"):
		return DispatchResult{Matched: true, Action: ActionCalibrateAudio}
	}

	if strings.Contains(transcript, "show me") || strings.Contains(transcript, "find") {
		query := transcript
		for _, trigger := range []string{"show me", "search for", "find"} {
			query = strings.ReplaceAll(query, trigger, "")
		}
		return DispatchResult{
			Matched: true,
			Action:  ActionSearch,
			Params:  Params{"query": strings.TrimSpace(query)},
		}
	}

	return DispatchResult{}
}
