package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	red    = "\033[31m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var version = "dev"

// printBanner displays the Gatecheck logo
func printBanner(w io.Writer) {
	const width = 50
	border := strings.Repeat("═", width)

	logo := []string{
		"    ____       _            _               _    ",
		"   / ___| __ _| |_ ___  ___| |__   ___  ___| | __",
		"  | |  _ / _` | __/ _ \\/ __| '_ \\ / _ \\/ __| |/ /",
		"  | |_| | (_| | ||  __/ (__| | | |  __/ (__|   < ",
		"   \\____|\\__,_|\\__\\___|\\___|_| |_|\\___|\\___|_|\\_\\",
	}

	fmt.Fprintf(w, "\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		for len(line) < width {
			line += " "
		}
		fmt.Fprintf(w, "  %s║%s%s%s║%s\n", cyan, yellow, line, cyan, reset)
	}
	fmt.Fprintf(w, "  %s╚%s╝%s\n\n", cyan, border, reset)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s%v%s\n", red, err, reset)
		os.Exit(1)
	}
}
