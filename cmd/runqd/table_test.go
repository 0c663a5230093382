package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"ID", "Task", "State"}, [][]string{{"1", "Ping"}}, []columnAlignment{alignRight})
	if !strings.Contains(out, "Ping") {
		t.Fatalf("expected row content, got:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	width := len([]rune(lines[0]))
	for _, line := range lines {
		if len([]rune(line)) != width {
			t.Fatalf("ragged table output:\n%s", out)
		}
	}
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestTableSpecFooterAndTitle(t *testing.T) {
	out := tableSpec{
		Title:   "Queue",
		Headers: []string{"Type", "Total"},
		Rows:    [][]string{{"1", "2"}, {"2", "5"}},
		Footer:  []string{"All", "7"},
		Aligns:  []columnAlignment{alignLeft, alignRight},
	}.render()
	requireContains(t, out, "Queue")
	requireContains(t, strings.ToUpper(out), "ALL")
	requireContains(t, out, "7")
}
