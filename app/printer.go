package app

import (
	"fmt"
	"io"
	"os"

	"github.com/logrusorgru/aurora"
	"golang.org/x/term"
)

// printer writes operator-facing text, colored only on a terminal.
type printer struct {
	w  io.Writer
	au aurora.Aurora
}

func newPrinter(w io.Writer) *printer {
	colors := false
	if f, ok := w.(*os.File); ok {
		colors = term.IsTerminal(int(f.Fd()))
	}
	return &printer{w: w, au: aurora.NewAurora(colors)}
}

func (p *printer) Println(a ...interface{}) {
	fmt.Fprintln(p.w, a...)
}

func (p *printer) Printf(format string, a ...interface{}) {
	fmt.Fprintf(p.w, format, a...)
}

func (p *printer) Okf(format string, a ...interface{}) {
	fmt.Fprintln(p.w, p.au.Green(fmt.Sprintf(format, a...)))
}

func (p *printer) Warnf(format string, a ...interface{}) {
	fmt.Fprintln(p.w, p.au.Yellow(fmt.Sprintf(format, a...)))
}

func (p *printer) Errf(format string, a ...interface{}) {
	fmt.Fprintln(p.w, p.au.Red(fmt.Sprintf(format, a...)))
}

func (p *printer) Field(label string, value interface{}) {
	fmt.Fprintf(p.w, "  %-10s %v\n", label+":", p.au.Cyan(value))
}

func (p *printer) state(running bool) aurora.Value {
	if running {
		return p.au.Green("running")
	}
	return p.au.Red("stopped")
}
