package soc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openeeg/headband.go/pkg/memguard"
	"github.com/openeeg/headband.go/pkg/sim"
)

func TestRegions(t *testing.T) {
	spu := sim.NewSPU(memguard.RAMBase, memguard.RAMSize, memguard.Granularity)
	require.Empty(t, Regions(spu, memguard.RAMBase, false))
	require.Len(t, Regions(spu, memguard.RAMBase, true), 64)

	require.NoError(t, memguard.New(spu).GrantSharedAccess(memguard.SharedWindow))
	granted := Regions(spu, memguard.RAMBase, false)
	require.Len(t, granted, 32)
	require.Equal(t, Region{Index: 32, Start: memguard.SharedStart, Perm: "rw-"}, granted[0])
	require.Equal(t, memguard.SharedEnd-memguard.Granularity, granted[31].Start)
}

func TestReleaseHelpPointsToReset(t *testing.T) {
	require.Contains(t, ReleaseCmd.Help, "reset")
	require.NotContains(t, ReleaseCmd.Help, "signals ready again")
}
