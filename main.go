package main

import (
	"os"

	"auto-backup/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
