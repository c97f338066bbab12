// Package all registers all shell commands.
package all

import (
	_ "github.com/openeeg/headband.go/pkg/cli/cmds/soc"
	_ "github.com/openeeg/headband.go/pkg/cli/cmds/transport"
)
