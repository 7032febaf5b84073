package main

import (
	"os"

	"github.com/gearshop/gearshop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
