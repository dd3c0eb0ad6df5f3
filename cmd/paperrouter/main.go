package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/OtherLeadingBrand/PaperRouter/internal/source/loc"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
