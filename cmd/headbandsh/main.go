package main

import (
	"github.com/openeeg/headband.go/pkg/cli/sh"
	"github.com/openeeg/headband.go/pkg/env"

	_ "github.com/openeeg/headband.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
