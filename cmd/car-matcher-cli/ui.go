package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// UI provides user-friendly output utilities.
type UI struct {
	out      io.Writer
	progress *mpb.Progress
	noColor  bool
	jsonMode bool
}

// NewUI creates a new UI instance writing to out.
func NewUI(out io.Writer, jsonMode, noColor bool) *UI {
	return &UI{
		out:      out,
		noColor:  noColor,
		jsonMode: jsonMode,
	}
}

// Close waits for progress bars to finish rendering.
func (ui *UI) Close() {
	if ui.progress == nil {
		return
	}
	// When piped, bars never render and Wait may hang.
	if IsTerminal() {
		ui.progress.Wait()
	} else {
		ui.progress.Shutdown()
	}
	ui.progress = nil
}

func (ui *UI) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if ui.noColor {
		c.DisableColor()
	}
	return c
}

func (ui *UI) line(symbol string, attr color.Attribute, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(attr).Fprintf(ui.out, "%s %s\n", symbol, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.line("✓", color.FgGreen, format, args...)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.line("⚠", color.FgYellow, format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.line("ℹ", color.FgCyan, format, args...)
}

// Step prints a step message.
func (ui *UI) Step(format string, args ...interface{}) {
	ui.line("→", color.FgBlue, format, args...)
}

// JSON writes v as indented JSON. It is the only output in --json mode.
func (ui *UI) JSON(v interface{}) error {
	enc := json.NewEncoder(ui.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ProgressBar creates a new progress bar, or nil in JSON mode.
func (ui *UI) ProgressBar(name string, total int64) *mpb.Bar {
	if ui.jsonMode {
		return nil
	}
	if ui.progress == nil {
		ui.progress = mpb.New(mpb.WithOutput(ui.out), mpb.WithWidth(64))
	}

	return ui.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.OnComplete(
				decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12}),
				" done",
			),
		),
	)
}

// Spinner starts a spinner on stderr and returns its stop func. It is a no-op
// in JSON mode or when output is not a terminal.
func (ui *UI) Spinner(message string) func() {
	if ui.jsonMode || !IsTerminal() {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	if !ui.noColor {
		_ = s.Color("cyan")
	}
	s.Start()
	return s.Stop
}

// Table prints a formatted table. Widths are measured in display cells so
// Turkish characters line up.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if w := runewidth.StringWidth(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	border := ui.paint(color.FgCyan, color.Bold)
	vertical, horizontal := "│", "─"
	if ui.noColor {
		vertical, horizontal = "|", "-"
	}

	rule := func(left, mid, right string) {
		if ui.noColor {
			left, mid, right = "+", "+", "+"
		}
		border.Fprint(ui.out, left)
		for i, width := range widths {
			fmt.Fprint(ui.out, strings.Repeat(horizontal, width+2))
			if i < len(widths)-1 {
				border.Fprint(ui.out, mid)
			}
		}
		border.Fprint(ui.out, right+"\n")
	}

	row := func(cells []string) {
		border.Fprint(ui.out, vertical)
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(ui.out, " %s ", runewidth.FillRight(cell, widths[i]))
			border.Fprint(ui.out, vertical)
		}
		fmt.Fprintln(ui.out)
	}

	rule("┌", "┬", "┐")
	row(headers)
	rule("├", "┼", "┤")
	for _, r := range rows {
		row(r)
	}
	rule("└", "┴", "┘")
}

// Section prints a section header.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintln(ui.out)
	ui.paint(color.FgMagenta, color.Bold).Fprintf(ui.out, "━━━ %s ━━━\n", strings.ToUpper(title))
	fmt.Fprintln(ui.out)
}

// KeyValue prints a key-value pair.
func (ui *UI) KeyValue(key string, value interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgYellow).Fprintf(ui.out, "  %s: ", key)
	fmt.Fprintf(ui.out, "%v\n", value)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// FormatPrice formats a TRY price with thousands separators, e.g. 1.250.000 TL.
func FormatPrice(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + " TL"
	if neg {
		out = "-" + out
	}
	return out
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
