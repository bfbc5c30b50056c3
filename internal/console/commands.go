package console

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Entry is one row of the console list output.
type Entry struct {
	Index   int
	Name    string
	Running bool
	Width   int
	Height  int
	DPI     int
}

// launchForms are the accepted spellings of the launch command across
// console dialects, tried in order until one succeeds.
var launchForms = [][]string{
	{"launch", "--index"},
	{"launch", "-index"},
	{"launchex", "--index"},
}

// Launch starts an instance, falling back through the known launch dialects
// when the first form fails. The last failed Result is returned when every
// form fails.
func Launch(ctx context.Context, s Surface, index int, timeout time.Duration) Result {
	var last Result
	for _, form := range launchForms {
		args := append(append([]string(nil), form...), strconv.Itoa(index))
		last = s.Exec(ctx, timeout, args...)
		if last.Success {
			return last
		}
		if ctx.Err() != nil {
			return last
		}
	}
	return last
}

// Quit gracefully stops a single instance.
func Quit(ctx context.Context, s Surface, index int, timeout time.Duration) Result {
	return s.Exec(ctx, timeout, "quit", "--index", strconv.Itoa(index))
}

// QuitAll is the global kill primitive; it terminates every instance the
// console knows about.
func QuitAll(ctx context.Context, s Surface, timeout time.Duration) Result {
	return s.Exec(ctx, timeout, "quit-all")
}

// Modify changes instance resources. Nil fields are left untouched; each
// requested change is issued as its own modify invocation so a failure in
// one does not mask the others.
func Modify(ctx context.Context, s Surface, index int, cpu, memoryMB *int, resolution string, timeout time.Duration) []Result {
	var out []Result
	idx := strconv.Itoa(index)
	if cpu != nil {
		out = append(out, s.Exec(ctx, timeout, "modify", "--index", idx, "--cpu", strconv.Itoa(*cpu)))
	}
	if memoryMB != nil {
		out = append(out, s.Exec(ctx, timeout, "modify", "--index", idx, "--memory", strconv.Itoa(*memoryMB)))
	}
	if resolution != "" {
		if w, h, ok := splitResolution(resolution); ok {
			out = append(out, s.Exec(ctx, timeout, "modify", "--index", idx, "--resolution", w, h))
		} else {
			out = append(out, Result{Success: false, Stderr: "invalid resolution: " + resolution, ExitCode: -1})
		}
	}
	return out
}

// List queries the console for all instances and parses the CSV rows.
func List(ctx context.Context, s Surface, timeout time.Duration) ([]Entry, Result) {
	res := s.Exec(ctx, timeout, "list2")
	if !res.Success {
		return nil, res
	}
	return ParseList(res.Stdout), res
}

// ParseList decodes the console list2 output. Rows are comma-separated:
// index,name,topHwnd,bindHwnd,running,pid,vboxPid[,width,height,dpi].
// Malformed rows are skipped.
func ParseList(out string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 5 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		e := Entry{
			Index:   index,
			Name:    strings.TrimSpace(parts[1]),
			Running: strings.TrimSpace(parts[4]) == "1",
		}
		if len(parts) >= 10 {
			e.Width = atoiOrZero(parts[7])
			e.Height = atoiOrZero(parts[8])
			e.DPI = atoiOrZero(parts[9])
		}
		entries = append(entries, e)
	}
	return entries
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func splitResolution(res string) (w, h string, ok bool) {
	parts := strings.SplitN(res, "x", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return "", "", false
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return "", "", false
	}
	return parts[0], parts[1], true
}
