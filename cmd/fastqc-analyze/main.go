package main

import "github.com/dreschagin/fastqc-analyzer/internal/interfaces/cli"

var version = "dev"

func main() {
	cli.Run(version)
}
