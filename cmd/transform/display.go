package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/JakeChampion/metro-transform/internal/logger"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = pterm.FgLightBlue
)

// Everything here goes to stderr so stdout only ever carries generated code.

func printErrorMessage(tag string, err error) {
	fmt.Fprintln(os.Stderr, ErrorStyleBG.Sprint(tag)+ErrorColorFG.Sprint(" "+err.Error()))
}

func printWarningMessage(tag, msg string) {
	fmt.Fprintln(os.Stderr, WarnStyleBG.Sprint(tag)+WarnColorFG.Sprint(" "+msg))
}

func printSuccess(msg string) {
	fmt.Fprintln(os.Stderr, SuccessColorFG.Sprint("  ✓ ")+msg)
}

func printInfo(msg string) {
	fmt.Fprintln(os.Stderr, InfoColorFG.Sprint(msg))
}

// printMsgs shows the diagnostics of one file, each under a banner.
func printMsgs(msgs []logger.Msg) {
	for _, msg := range msgs {
		switch msg.Kind {
		case logger.Error:
			fmt.Fprint(os.Stderr, ErrorStyleBG.Sprint(" error ")+" ")
		case logger.Warning:
			fmt.Fprint(os.Stderr, WarnStyleBG.Sprint(" warning ")+" ")
		}
		fmt.Fprintln(os.Stderr, msg.String())
	}
}

func fatalf(format string, args ...any) {
	printErrorMessage(" error ", fmt.Errorf(format, args...))
	os.Exit(1)
}
