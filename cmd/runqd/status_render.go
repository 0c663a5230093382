package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"runqd/internal/api"
	"runqd/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// A Caser is stateful and must not be shared.
func titleCase(value string) string {
	return cases.Title(language.English).String(value)
}

// renderStatus lays out the daemon, runner and queue sections of `runqd status`.
func renderStatus(status *ipc.StatusResponse, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	if status.Running {
		lines = append(lines, renderStatusLine("runqd", statusOK, "Running", colorize))
	} else {
		message := "Not running"
		if status.PID > 0 {
			message = fmt.Sprintf("Not running (process %d still alive)", status.PID)
		}
		lines = append(lines, renderStatusLine("runqd", statusError, message, colorize))
	}
	if status.PID > 0 {
		lines = append(lines, renderStatusLine("PID", statusInfo, strconv.Itoa(status.PID), colorize))
	}
	if status.State != "" {
		lines = append(lines, renderStatusLine("Scheduler", statusInfo, titleCase(status.State), colorize))
	}
	if status.Isolation != "" {
		lines = append(lines, renderStatusLine("Isolation", statusInfo, status.Isolation, colorize))
	}
	if status.Running {
		lines = append(lines, renderStatusLine("Passes", statusInfo, strconv.FormatInt(status.Passes, 10), colorize))
	}
	if status.APIAddress != "" {
		lines = append(lines, renderStatusLine("HTTP API", statusInfo, status.APIAddress, colorize))
	}
	lines = append(lines, renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize))
	if status.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}

	if len(status.Runners) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Runners", colorize)...)
		lines = append(lines, strings.TrimRight(tableSpec{
			Headers: []string{"Task", "Type", "State", "PID", "Job", "Repeat", "Singleton"},
			Rows:    buildRunnerRows(status.Runners),
			Aligns:  []columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
		}.render(), "\n"))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Queue", colorize)...)
	if status.QueueError != "" {
		lines = append(lines, renderStatusLine("Database", statusError, status.QueueError, colorize))
		return lines
	}
	if status.Queue.Total == 0 {
		return append(lines, "Queue is empty")
	}
	lines = append(lines, strings.TrimRight(tableSpec{
		Headers: []string{"Type", "Total", "Due", "Deferred"},
		Rows:    buildQueueStatsRows(status.Queue),
		Footer: []string{
			"All",
			strconv.Itoa(status.Queue.Total),
			strconv.Itoa(status.Queue.Due),
			strconv.Itoa(status.Queue.Deferred),
		},
		Aligns: []columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	}.render(), "\n"))
	return lines
}

func buildRunnerRows(runners []api.Runner) [][]string {
	rows := make([][]string, 0, len(runners))
	for _, r := range runners {
		pid, job := "-", "-"
		if r.State == api.RunnerRunning {
			pid = strconv.Itoa(r.PID)
			job = strconv.FormatInt(r.JobID, 10)
		}
		rows = append(rows, []string{
			r.Task,
			strconv.Itoa(r.JobType),
			titleCase(r.State),
			pid,
			job,
			dashIfEmpty(r.Repeat),
			yesNo(r.Singleton),
		})
	}
	return rows
}

func buildQueueStatsRows(stats api.QueueStats) [][]string {
	rows := make([][]string, 0, len(stats.ByType))
	for _, ts := range stats.ByType {
		rows = append(rows, []string{
			strconv.Itoa(ts.TaskType),
			strconv.Itoa(ts.Total),
			strconv.Itoa(ts.Due),
			strconv.Itoa(ts.Deferred),
		})
	}
	return rows
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
