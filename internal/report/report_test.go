package report

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"buildtriage/internal/catalog"
	"buildtriage/internal/ci"
	"buildtriage/internal/selector"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(`oom:
  literals: [OutOfMemoryError]
  bug:
    url: https://bugs.example.com/101
disk-full:
  literals: ["No space left on device"]
`))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func decision(number int, result ci.Result, included bool) selector.Decision {
	return selector.Decision{
		Build: ci.Build{
			Job:         "example_job",
			Number:      number,
			Result:      result,
			Timestamp:   time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC),
			URL:         "http://ci/job/example_job/" + strconv.Itoa(number) + "/",
			DisplayName: "#" + strconv.Itoa(number),
		},
		Included: included,
	}
}

func TestAssembleSkipsExcludedAndAlignsBugURLs(t *testing.T) {
	cat := testCatalog(t)
	decisions := []selector.Decision{
		decision(5, ci.ResultSuccess, false),
		decision(4, ci.ResultFailure, true),
		decision(3, ci.ResultFailure, true),
	}
	classifications := map[ci.BuildKey][]string{
		{Job: "example_job", Number: 4}: {"disk-full", "oom"},
	}

	rows := Assemble(decisions, classifications, cat)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Number != 4 || rows[1].Number != 3 {
		t.Fatalf("rows must keep visit order, got %d then %d", rows[0].Number, rows[1].Number)
	}

	// disk-full has no bug, oom does; the slots must line up.
	if diff := cmp.Diff([]string{"disk-full", "oom"}, rows[0].Causes); diff != "" {
		t.Fatalf("causes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "https://bugs.example.com/101"}, rows[0].BugURLs); diff != "" {
		t.Fatalf("bug URLs mismatch (-want +got):\n%s", diff)
	}

	if len(rows[1].Causes) != 0 {
		t.Fatalf("unclassified build must have no causes, got %v", rows[1].Causes)
	}
}

func TestSummarizeOrdersByCountThenName(t *testing.T) {
	cat := testCatalog(t)
	rows := []Row{
		{Status: ci.ResultFailure, Causes: []string{"oom"}},
		{Status: ci.ResultFailure, Causes: []string{"disk-full", "oom"}},
		{Status: ci.ResultFailure, Causes: []string{"disk-full"}},
		{Status: ci.ResultFailure},
		{Status: ci.ResultUnstable},
	}

	sum := Summarize(rows, cat)
	if sum.Rows != 5 {
		t.Fatalf("rows = %d, want 5", sum.Rows)
	}
	if sum.Unclassified != 2 {
		t.Fatalf("unclassified = %d, want 2", sum.Unclassified)
	}
	want := []CauseCount{
		{Name: "disk-full", Count: 2},
		{Name: "oom", Count: 2, BugURL: "https://bugs.example.com/101"},
	}
	if diff := cmp.Diff(want, sum.Causes); diff != "" {
		t.Fatalf("causes mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderContainsColumnsAndCells(t *testing.T) {
	rows := []Row{
		{
			Job:         "example_job",
			Number:      49,
			Status:      ci.ResultFailure,
			Causes:      []string{"oom", "disk-full"},
			BugURLs:     []string{"https://bugs.example.com/101", ""},
			BuildURL:    "http://ci/job/example_job/49/",
			DisplayName: "#49",
		},
	}

	out := Render(rows, ModeASCII)
	for _, want := range []string{"JOB NAME", "BUG URL(S)", "BUILD INFO", "example_job", "FAILURE", "oom", "disk-full", "#49"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Fatalf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	rows := []Row{{Job: "j", Number: 1, Status: ci.ResultFailure}}
	out := Render(rows, ModeMarkdown)
	if !strings.HasPrefix(strings.TrimSpace(out), "|") {
		t.Fatalf("markdown table should start with a pipe:\n%s", out)
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("markdown"); !ok || m != ModeMarkdown {
		t.Fatalf("markdown should parse")
	}
	if _, ok := ParseMode("csv"); ok {
		t.Fatalf("csv is not a supported mode")
	}
}
