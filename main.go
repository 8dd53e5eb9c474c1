package main

import "github.com/tripscope/tripscope-cli/internal/cli"

func main() {
	cli.Execute()
}
