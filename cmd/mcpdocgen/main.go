package main

import (
	"fmt"
	"os"

	"github.com/casehub/casehub/internal/tools"
)

func main() {
	defs := tools.NewRegistry(nil, nil, nil).All()
	if err := tools.RenderMarkdown(os.Stdout, defs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
