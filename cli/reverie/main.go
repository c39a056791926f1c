package main

import (
	"os"

	reveriecmder "github.com/reveriehq/reverie/cmd/reverie"
)

func main() {
	cmd := reveriecmder.NewReverieCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
