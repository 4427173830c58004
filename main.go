package main

import (
	"os"

	"github.com/igor04091968/ss-manager/cmd"
)

func main() {
	os.Exit(cmd.Run(os.Args[1:], os.Stdout, os.Stderr))
}
