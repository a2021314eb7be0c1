// Package logview prints the JSON log files written by internal/log in a
// compact, colored form and can follow them as they grow.
package logview

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Entry is one decoded log line.
type Entry map[string]interface{}

// Options control a Viewer.
type Options struct {
	Dir      string
	Filter   string
	UseColor bool
	// PollInterval is how often Follow checks the files for new lines.
	PollInterval time.Duration
}

// Viewer reads every *.log file in a directory.
type Viewer struct {
	opts      Options
	out       io.Writer
	renderer  *lipgloss.Renderer
	positions map[string]int64
}

func NewViewer(out io.Writer, opts Options) (*Viewer, error) {
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open log directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", opts.Dir)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	opts.Filter = strings.ToLower(opts.Filter)
	return &Viewer{
		opts:      opts,
		out:       out,
		renderer:  lipgloss.NewRenderer(out),
		positions: make(map[string]int64),
	}, nil
}

// Format renders an entry as a header line followed by indented fields
// in key order.
func (v *Viewer) Format(e Entry) string {
	ts, _ := e["time"].(string)
	level, _ := e["level"].(string)
	msg, _ := e["msg"].(string)
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		ts = t.Format("06-01-02 15:04:05.000")
	}

	var levelColor lipgloss.Color
	switch strings.ToUpper(level) {
	case "DEBUG":
		levelColor = "#3b82f6"
	case "INFO":
		levelColor = "#10b981"
	case "WARN":
		levelColor = "#f4d03f"
	case "ERROR":
		levelColor = "#e74c3c"
	default:
		levelColor = "#ffffff"
	}

	var b strings.Builder
	b.WriteString(v.paint("#8b5cf6", ts))
	b.WriteByte(' ')
	b.WriteString(v.paint(levelColor, fmt.Sprintf("%-5s", strings.ToUpper(level))))
	b.WriteByte(' ')
	b.WriteString(msg)

	keys := make([]string, 0, len(e))
	for k := range e {
		if k != "time" && k != "level" && k != "msg" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n    %s %v", v.paint("#06b6d4", k+":"), e[k])
	}
	return b.String()
}

func (v *Viewer) paint(color lipgloss.Color, s string) string {
	if !v.opts.UseColor {
		return s
	}
	return v.renderer.NewStyle().Foreground(color).Render(s)
}

// Scan prints the lines added to the log files since the previous call and
// returns how many entries were printed.
func (v *Viewer) Scan() (int, error) {
	files, err := filepath.Glob(filepath.Join(v.opts.Dir, "*.log"))
	if err != nil {
		return 0, fmt.Errorf("failed to list log files: %w", err)
	}
	sort.Strings(files)

	printed := 0
	for _, path := range files {
		n, err := v.scanFile(path)
		printed += n
		if err != nil {
			return printed, err
		}
	}
	return printed, nil
}

func (v *Viewer) scanFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", filepath.Base(path), err)
	}
	if stat.Size() < v.positions[path] {
		// truncated
		v.positions[path] = 0
	}
	if _, err := file.Seek(v.positions[path], io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek in %s: %w", filepath.Base(path), err)
	}

	printed := 0
	reader := bufio.NewReader(file)
	pos := v.positions[path]
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// partial line stays unread until it is complete
			break
		}
		if err != nil {
			return printed, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		pos += int64(len(line))

		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		formatted := v.Format(entry)
		if v.opts.Filter != "" && !strings.Contains(strings.ToLower(formatted), v.opts.Filter) {
			continue
		}
		fmt.Fprintln(v.out, formatted)
		printed++
	}
	v.positions[path] = pos
	return printed, nil
}

// Follow prints existing entries, then polls for new ones until ctx is done.
func (v *Viewer) Follow(ctx context.Context) error {
	ticker := time.NewTicker(v.opts.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := v.Scan(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
