package command

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/voiceflowhq/collab/domain/repositories"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       DispatchResult
	}{
		{
			name:       "navigate to blog room",
			transcript: "navigate to blog room",
			want:       DispatchResult{Matched: true, Action: ActionNavigate, Params: Params{"target": "blog-room"}},
		},
		{
			name:       "go to dashboard",
			transcript: "go to the dashboard",
			want:       DispatchResult{Matched: true, Action: ActionNavigate, Params: Params{"target": "lobby"}},
		},
		{
			name:       "go to lobby",
			transcript: "go to lobby",
			want:       DispatchResult{Matched: true, Action: ActionNavigate, Params: Params{"target": "lobby"}},
		},
		{
			name:       "navigate to archive",
			transcript: "navigate to the archive please",
			want:       DispatchResult{Matched: true, Action: ActionNavigate, Params: Params{"target": "archive-basement"}},
		},
		{
			name:       "create new blog post",
			transcript: "create new blog post",
			want:       DispatchResult{Matched: true, Action: ActionCreateContent, Params: Params{"type": "blog"}},
		},
		{
			name:       "create new page",
			transcript: "create new page",
			want:       DispatchResult{Matched: true, Action: ActionCreateContent, Params: Params{"type": "page"}},
		},
		{
			name:       "help",
			transcript: "help",
			want:       DispatchResult{Matched: true, Action: ActionHelp},
		},
		{
			name:       "settings substring",
			transcript: "open settings now",
			want:       DispatchResult{Matched: true, Action: ActionSettings},
		},
		{
			name:       "calibrate",
			transcript: "calibrate my headphones",
			want:       DispatchResult{Matched: true, Action: ActionCalibrateAudio},
		},
		{
			name:       "show me search",
			transcript: "show me recent posts",
			want:       DispatchResult{Matched: true, Action: ActionSearch, Params: Params{"query": "recent posts"}},
		},
		{
			name:       "find search",
			transcript: "find spatial audio notes",
			want:       DispatchResult{Matched: true, Action: ActionSearch, Params: Params{"query": "spatial audio notes"}},
		},
		{
			name:       "no match",
			transcript: "what a lovely day",
			want:       DispatchResult{},
		},
		{
			name:       "navigation without room keyword falls through",
			transcript: "go to sleep",
			want:       DispatchResult{},
		},
		{
			// "navigate to" outranks the search trigger inside the same transcript.
			name:       "navigation beats search",
			transcript: "navigate to blog and find drafts",
			want:       DispatchResult{Matched: true, Action: ActionNavigate, Params: Params{"target": "blog-room"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.transcript)
			if got.Matched != tt.want.Matched || got.Action != tt.want.Action {
				t.Fatalf("Classify(%q) = %+v, want %+v", tt.transcript, got, tt.want)
			}
			for k, v := range tt.want.Params {
				if got.Params[k] != v {
					t.Errorf("Classify(%q) params[%s] = %q, want %q", tt.transcript, k, got.Params[k], v)
				}
			}
		})
	}
}

func TestDispatchInvokesHandler(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	var gotParams Params
	d.RegisterHandler(ActionNavigate, func(params Params) {
		gotParams = params
	})

	result := d.Dispatch(context.Background(), "Navigate To Blog Room")

	if !result.Matched {
		t.Fatal("Expected a match")
	}
	if gotParams == nil {
		t.Fatal("Handler was not invoked")
	}
	if gotParams["target"] != "blog-room" {
		t.Errorf("Handler params target = %q, want blog-room", gotParams["target"])
	}
}

func TestRegisterHandlerReplaces(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	var called string
	d.RegisterHandler(ActionHelp, func(Params) { called = "first" })
	d.RegisterHandler(ActionHelp, func(Params) { called = "second" })

	d.Dispatch(context.Background(), "help")

	if called != "second" {
		t.Errorf("Expected replacement handler, got %q", called)
	}

	actions := d.RegisteredActions()
	if len(actions) != 1 || actions[0] != ActionHelp {
		t.Errorf("RegisteredActions = %v, want [help]", actions)
	}
}

func TestDispatchUnmatched(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	result := d.Dispatch(context.Background(), "   ")
	if result.Matched {
		t.Error("Blank transcript should not match")
	}

	result = d.Dispatch(context.Background(), "sing a song")
	if result.Matched {
		t.Error("Unknown transcript should not match")
	}
}

type stubInterpreter struct {
	interpretation *repositories.CommandInterpretation
	err            error
}

func (s *stubInterpreter) Interpret(ctx context.Context, transcript string) (*repositories.CommandInterpretation, error) {
	return s.interpretation, s.err
}

func TestDispatchWithInterpreter(t *testing.T) {
	interp := &stubInterpreter{
		interpretation: &repositories.CommandInterpretation{
			Action:     ActionSearch,
			Parameters: map[string]string{"query": "drafts"},
		},
	}
	d := NewDispatcher(zap.NewNop(), WithInterpreter(interp))

	result := d.Dispatch(context.Background(), "could you pull up my drafts")
	if !result.Matched || result.Action != ActionSearch {
		t.Fatalf("Expected interpreter match, got %+v", result)
	}
	if result.Params["query"] != "drafts" {
		t.Errorf("Params query = %q, want drafts", result.Params["query"])
	}
}

func TestDispatchInterpreterUnknownActionFallsBack(t *testing.T) {
	interp := &stubInterpreter{
		interpretation: &repositories.CommandInterpretation{Action: "self-destruct"},
	}
	d := NewDispatcher(zap.NewNop(), WithInterpreter(interp))

	result := d.Dispatch(context.Background(), "navigate to blog")
	if !result.Matched || result.Action != ActionNavigate {
		t.Fatalf("Expected pattern fallback, got %+v", result)
	}
}

func TestDispatchInterpreterErrorFallsBack(t *testing.T) {
	interp := &stubInterpreter{err: errors.New("quota exceeded")}
	d := NewDispatcher(zap.NewNop(), WithInterpreter(interp))

	result := d.Dispatch(context.Background(), "create new page")
	if !result.Matched || result.Action != ActionCreateContent {
		t.Fatalf("Expected pattern fallback on error, got %+v", result)
	}
}
