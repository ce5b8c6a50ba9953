package main

import (
	"os"

	"github.com/psiclin/psiclin/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
