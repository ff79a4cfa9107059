package main

import (
	"os"

	"github.com/raolivei/swimTO-sub000/cmd/swimto/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
