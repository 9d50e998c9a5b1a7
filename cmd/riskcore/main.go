package main

import (
	"github.com/lxalgo/riskcore/internal/cli"
)

func main() {
	cli.Execute()
}
