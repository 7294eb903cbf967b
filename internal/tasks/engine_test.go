package tasks

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/starford/taskcollector/internal/apperr"
)

func newTestEngine(t *testing.T, s Settings) *Engine {
	t.Helper()
	e, err := NewEngine(s,
		WithClock(func() time.Time { return now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngine_InvalidSettings(t *testing.T) {
	_, err := NewEngine(Settings{RemoveExpression: "["})
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestEngine_UpdateSwapsPatterns(t *testing.T) {
	e := newTestEngine(t, Settings{})
	if got := e.CompleteLine("- [ ] a", "x"); got != "- [x] a" {
		t.Fatalf("before update: %q", got)
	}
	if err := e.Update(Settings{AppendDateFormat: "YYYY-MM-DD"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := e.CompleteLine("- [ ] a", "x"); got != "- [x] a 2024-03-05" {
		t.Errorf("after update: %q", got)
	}
}

func TestEngine_InvalidUpdateKeepsPreviousSet(t *testing.T) {
	e := newTestEngine(t, Settings{RemoveExpression: "#todo"})
	before := e.Patterns()

	err := e.Update(Settings{RemoveExpression: "(bad"})
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if e.Patterns() != before {
		t.Error("pattern set replaced after failed update")
	}
	if got := e.CompleteLine("- [ ] a #todo", "x"); got != "- [x] a " {
		t.Errorf("CompleteLine = %q", got)
	}
}

func TestEngine_ConcurrentReadsDuringUpdate(t *testing.T) {
	e := newTestEngine(t, Settings{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := e.CompleteLine("- [ ] a", "x")
				if got != "- [x] a" && got != "- [x] a 2024" {
					t.Errorf("observed partial state: %q", got)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		s := Settings{}
		if i%2 == 0 {
			s.AppendDateFormat = "YYYY"
		}
		if err := e.Update(s); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	wg.Wait()
}

func TestParseOperation(t *testing.T) {
	for _, name := range []string{"complete-all", "reset-all", "move-completed", "mark"} {
		op, err := ParseOperation(name)
		if err != nil || string(op) != name {
			t.Errorf("ParseOperation(%q) = %q, %v", name, op, err)
		}
	}
	if _, err := ParseOperation("explode"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestEngine_Apply(t *testing.T) {
	e := newTestEngine(t, Settings{SupportCanceledTasks: true})
	doc := "- [ ] a\n- [x] b\n## Log"

	res, err := e.Apply(doc, Request{Op: OpCompleteAll})
	if err != nil {
		t.Fatal(err)
	}
	if res.Document != "- [x] a\n- [x] b\n## Log" || !res.Changed || res.Selection != nil {
		t.Errorf("complete-all = %+v", res)
	}

	res, err = e.Apply(doc, Request{Op: OpResetAll})
	if err != nil {
		t.Fatal(err)
	}
	if res.Document != "- [ ] a\n- [ ] b\n## Log" {
		t.Errorf("reset-all = %q", res.Document)
	}

	res, err = e.Apply(doc, Request{Op: OpMoveCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if res.Document != "- [ ] a\n## Log\n- [x] b" {
		t.Errorf("move-completed = %q", res.Document)
	}

	res, err = e.Apply(doc, Request{Op: OpMark, Mark: "-", Selection: Cursor(0)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Document != "- [-] a\n- [x] b\n## Log" || res.Selection == nil {
		t.Errorf("mark = %+v", res)
	}
}

func TestEngine_ApplyUnchanged(t *testing.T) {
	e := newTestEngine(t, Settings{})
	res, err := e.Apply("- [ ] open\n## Log", Request{Op: OpMoveCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Error("document without completed tasks reported as changed")
	}
}

func TestEngine_ApplyErrors(t *testing.T) {
	e := newTestEngine(t, Settings{})
	if _, err := e.Apply("- [ ] a", Request{Op: OpMark, Mark: "?"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("unrecognized mark err = %v", err)
	}
	if _, err := e.Apply("- [ ] a", Request{Op: "nope"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("unknown op err = %v", err)
	}
}

func TestEngine_CompleteAllMarks(t *testing.T) {
	e := newTestEngine(t, Settings{IncompleteTaskValues: ">", AppendDateFormat: "YYYY-MM-DD"})
	doc := "- [ ] buy milk\n- [>] later"
	for _, mark := range []string{MarkRemoveCheckbox, "ab", ">", " ", "?", "-"} {
		if _, err := e.Apply(doc, Request{Op: OpCompleteAll, Mark: mark}); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("mark %q err = %v", mark, err)
		}
	}

	res, err := e.Apply(doc, Request{Op: OpCompleteAll, Mark: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if want := "- [X] buy milk 2024-03-05\n- [X] later 2024-03-05"; res.Document != want {
		t.Errorf("doc = %q, want %q", res.Document, want)
	}

	canceled := newTestEngine(t, Settings{SupportCanceledTasks: true})
	res, err = canceled.Apply("- [ ] a", Request{Op: OpCompleteAll, Mark: "-"})
	if err != nil || res.Document != "- [-] a" {
		t.Errorf("canceled = %q, %v", res.Document, err)
	}
}

func TestParseLines(t *testing.T) {
	cases := []struct {
		in   string
		want Selection
	}{
		{"3", Cursor(3)},
		{" 0 ", Cursor(0)},
		{"2-5", Selection{Start: Position{Line: 2}, End: Position{Line: 5}}},
		{"5 - 2", Selection{Start: Position{Line: 5}, End: Position{Line: 2}}},
	}
	for _, tc := range cases {
		got, err := ParseLines(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseLines(%q) = %+v, %v", tc.in, got, err)
		}
	}
	for _, bad := range []string{"", "a", "-1", "1-", "1-x", "1-2-3"} {
		if _, err := ParseLines(bad); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("ParseLines(%q) err = %v", bad, err)
		}
	}
}
