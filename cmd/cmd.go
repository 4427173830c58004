package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/igor04091968/ss-manager/app"
	"github.com/igor04091968/ss-manager/config"

	"github.com/logrusorgru/aurora"
	"golang.org/x/term"
)

func usage(fs *flag.FlagSet, w io.Writer) func() {
	return func() {
		fmt.Fprintf(w, "Usage: %s [flags] [action]\n\n", config.GetName())
		fmt.Fprintf(w, "Actions:\n  %s\n\n", strings.Join(app.ActionNames(), "|"))
		fmt.Fprintln(w, "Without an action the interactive menu is shown.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		fs.SetOutput(w)
		fs.PrintDefaults()
	}
}

// Run parses args and executes one action. It returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(config.GetName(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	settingsPath := fs.String("settings", config.GetSettingsPath(), "path of the settings yaml file")
	showVersion := fs.Bool("version", false, "print the version and exit")
	fs.Usage = usage(fs, stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *showVersion {
		fmt.Fprintln(stdout, config.GetName(), config.GetVersion())
		return 0
	}

	action := app.ActionMenu
	switch fs.NArg() {
	case 0:
	case 1:
		var err error
		if action, err = app.ParseAction(fs.Arg(0)); err != nil {
			fail(stderr, err)
			fs.Usage()
			return 1
		}
	default:
		fail(stderr, fmt.Errorf("expected one action, got %d", fs.NArg()))
		return 1
	}

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fail(stderr, err)
		return 1
	}

	a := app.NewApp(settings)
	if err := a.Init(); err != nil {
		fail(stderr, err)
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx, action); err != nil {
		fail(stderr, err)
		return 1
	}
	return 0
}

func fail(w io.Writer, err error) {
	colors := false
	if f, ok := w.(*os.File); ok {
		colors = term.IsTerminal(int(f.Fd()))
	}
	fmt.Fprintln(w, aurora.NewAurora(colors).Red("Error: "+err.Error()))
}
