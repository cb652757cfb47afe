package main

import (
	"os"

	"github.com/hashicorp-forge/casstore/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
