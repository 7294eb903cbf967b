package tasks

import (
	"strings"
	"testing"
)

func TestTransition(t *testing.T) {
	p := mustCompile(t, Settings{SupportCanceledTasks: true})
	body := moveState{}
	bodyOpen := moveState{block: blockOpen}
	logState := moveState{section: inLogSection, logSeen: true}
	bodyAfterLog := moveState{logSeen: true}

	cases := []struct {
		name   string
		from   moveState
		line   string
		to     moveState
		action moveAction
	}{
		{"plain body line", body, "text", body, keepLine},
		{"completed task opens block", body, "- [x] done", bodyOpen, extractTask},
		{"canceled task opens block", body, "- [-] dropped", bodyOpen, extractTask},
		{"incomplete task stays", body, "- [ ] open", body, keepLine},
		{"indented line without block stays", body, "  note", body, keepLine},
		{"two-space continuation", bodyOpen, "  - note: 2%", bodyOpen, extractContinuation},
		{"tab continuation", bodyOpen, "\tmore", bodyOpen, extractContinuation},
		{"one-space indent closes block", bodyOpen, " shallow", body, keepLine},
		{"nested open task closes block", bodyOpen, "  - [ ] sub", body, keepLine},
		{"nested completed task continues block", bodyOpen, "  - [x] sub", bodyOpen, extractTask},
		{"blank line closes block", bodyOpen, "", body, keepLine},
		{"indented rule closes block", bodyOpen, "  ---", body, keepLine},
		{"heading enters log", bodyOpen, "## Log", logState, anchorLine},
		{"padded heading enters log", body, "  ## Log  ", logState, anchorLine},
		{"log content is kept", logState, "- [x] archived", logState, logLine},
		{"log ends at heading", logState, "## Next", bodyAfterLog, keepLine},
		{"log ends at rule", logState, "---", bodyAfterLog, keepLine},
		{"second heading is body", bodyAfterLog, "## Log", bodyAfterLog, keepLine},
		{"completed after log is extracted", bodyAfterLog, "- [x] late", moveState{logSeen: true, block: blockOpen}, extractTask},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			to, action := p.transition(tc.from, tc.line)
			if to != tc.to || action != tc.action {
				t.Errorf("transition(%+v, %q) = (%+v, %v), want (%+v, %v)", tc.from, tc.line, to, action, tc.to, tc.action)
			}
		})
	}
}

func TestMoveCompleted(t *testing.T) {
	cases := []struct {
		name string
		s    Settings
		in   []string
		want []string
	}{
		{
			name: "task block moves as a unit",
			in: []string{
				"# Todo",
				"- [x] buy milk",
				"  - note: 2%",
				"unrelated",
				"- [ ] open",
				"",
				"## Log",
				"- [x] old",
			},
			want: []string{
				"# Todo",
				"unrelated",
				"- [ ] open",
				"",
				"## Log",
				"- [x] buy milk",
				"  - note: 2%",
				"- [x] old",
			},
		},
		{
			name: "creates heading with blank separator",
			in:   []string{"- [x] done", "- [ ] open"},
			want: []string{"- [ ] open", "", "## Log", "- [x] done"},
		},
		{
			name: "no extra separator after trailing blank",
			in:   []string{"- [x] done", ""},
			want: []string{"", "## Log", "- [x] done"},
		},
		{
			name: "content after log section stays below",
			in: []string{
				"## Log",
				"- [x] old",
				"## Later",
				"- [x] new",
				"text",
			},
			want: []string{
				"## Log",
				"- [x] new",
				"- [x] old",
				"## Later",
				"text",
			},
		},
		{
			name: "order is preserved across the body",
			in:   []string{"- [x] one", "keep", "- [X] two", "  detail", "- [x] three", "## Log"},
			want: []string{"keep", "## Log", "- [x] one", "- [X] two", "  detail", "- [x] three"},
		},
		{
			name: "remove checkbox in log",
			s:    Settings{CompletedAreaRemoveCheckbox: true},
			in:   []string{"- [x] done ^ref", "  more", "## Log"},
			want: []string{"## Log", "- done ^ref", "  more"},
		},
		{
			name: "custom heading",
			s:    Settings{CompletedAreaHeader: "### Archive"},
			in:   []string{"- [x] a", "### Archive", "- [x] b"},
			want: []string{"### Archive", "- [x] a", "- [x] b"},
		},
		{
			name: "canceled tasks ignored without support",
			in:   []string{"- [-] item", "- [x] done"},
			want: []string{"- [-] item", "", "## Log", "- [x] done"},
		},
		{
			name: "canceled tasks move with support",
			s:    Settings{SupportCanceledTasks: true},
			in:   []string{"- [-] item", "## Log"},
			want: []string{"## Log", "- [-] item"},
		},
		{
			name: "nothing to move",
			in:   []string{"# Notes", "- [ ] open", "## Log", "- [x] old"},
			want: []string{"# Notes", "- [ ] open", "## Log", "- [x] old"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := mustCompile(t, tc.s)
			got := p.MoveCompleted(strings.Join(tc.in, "\n"))
			want := strings.Join(tc.want, "\n")
			if got != want {
				t.Errorf("MoveCompleted:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestMoveCompleted_Idempotent(t *testing.T) {
	docs := []string{
		"",
		"- [x] only",
		"# Plan\n- [x] a\n  - a detail\n\t- a tab detail\n- [ ] b\n- [x] c\n\n## Log\n- [x] z\n\n## Next\n- [x] d",
		"- [x] a\n  ---\n- [x] b\n## Log",
		"## Log\n## Log\n- [x] twice",
		"text\n## Log\ntext\n---\n- [x] after rule\n",
	}
	settings := []Settings{
		{},
		{SupportCanceledTasks: true, CompletedAreaRemoveCheckbox: true},
		{CompletedAreaHeader: "Done:"},
	}
	for _, s := range settings {
		p := mustCompile(t, s)
		for _, doc := range docs {
			once := p.MoveCompleted(doc)
			twice := p.MoveCompleted(once)
			if once != twice {
				t.Errorf("%+v: not idempotent for %q:\nonce:\n%s\ntwice:\n%s", s, doc, once, twice)
			}
		}
	}
}

func TestMoveCompleted_NoCompletedLeftInBody(t *testing.T) {
	p := mustCompile(t, Settings{})
	doc := "- [x] a\n# H\n- [x] b\n## Log\n- [ ] logged open\n---\n- [x] c"
	out := p.MoveCompleted(doc)
	for _, task := range p.Scan(out) {
		if task.Class == Complete && !task.InLog {
			t.Errorf("completed task left in body at line %d: %q", task.Line, task.Text)
		}
	}
}
