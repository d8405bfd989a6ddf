package main

import (
	"os"

	"github.com/cflux-app/actiond/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
