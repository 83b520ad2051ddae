package assert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/scenario"
)

func uint64p(v uint64) *uint64 { return &v }

func TestUint64ExactMatch(t *testing.T) {
	require.True(t, Uint64("balance", 89_489, 89_489, 0).OK)
	require.False(t, Uint64("balance", 89_489, 89_490, 0).OK)
	require.False(t, Uint64("balance", 89_489, 89_488, 0).OK)
}

func TestUint64Tolerance(t *testing.T) {
	require.True(t, Uint64("balance", 89_489, 89_389, 100).OK)
	require.True(t, Uint64("balance", 89_489, 89_589, 100).OK)
	require.False(t, Uint64("balance", 89_489, 89_388, 100).OK)
	require.False(t, Uint64("balance", 89_489, 89_590, 100).OK)
}

func TestChannelChecksOnlyPresentFields(t *testing.T) {
	observed := client.ChannelState{
		TotalDeposit: 100_000,
		Balance:      89_489,
		Status:       scenario.ChannelOpened,
	}

	res := Channel(&scenario.AssertChannel{State: scenario.ChannelOpened}, observed)
	require.True(t, res.OK())
	require.Len(t, res.Fields, 1)

	res = Channel(&scenario.AssertChannel{
		TotalDeposit: uint64p(100_000),
		Balance:      uint64p(89_489),
		State:        scenario.ChannelOpened,
	}, observed)
	require.True(t, res.OK())
	require.Len(t, res.Fields, 3)
}

func TestChannelMismatchReportsBothValues(t *testing.T) {
	observed := client.ChannelState{Balance: 90_000, Status: scenario.ChannelOpened}
	res := Channel(&scenario.AssertChannel{Balance: uint64p(89_489)}, observed)
	require.False(t, res.OK())

	mismatches := res.Mismatches()
	require.Len(t, mismatches, 1)
	require.Equal(t, "balance", mismatches[0].Name)
	require.Equal(t, "89489", mismatches[0].Expected)
	require.Equal(t, "90000", mismatches[0].Observed)
}

func TestRouteRejectsPermutation(t *testing.T) {
	want := []scenario.NodeRef{0, 1, 2, 3}
	require.True(t, Route("route", want, []scenario.NodeRef{0, 1, 2, 3}).OK)
	require.False(t, Route("route", want, []scenario.NodeRef{0, 2, 1, 3}).OK)
	require.False(t, Route("route", want, []scenario.NodeRef{0, 1, 2}).OK)
	require.False(t, Route("route", want, []scenario.NodeRef{0, 1, 2, 3, 3}).OK)
}

func TestPFSHistory(t *testing.T) {
	expected := &scenario.AssertPFSHistory{
		Source:         0,
		RequestCount:   1,
		Target:         3,
		ExpectedRoutes: [][]scenario.NodeRef{{0, 1, 2, 3}},
	}

	res := PFSHistory(expected, []client.RouteRecord{
		{Target: 3, Route: []scenario.NodeRef{0, 1, 2, 3}},
	})
	require.True(t, res.OK())

	// Wrong route.
	res = PFSHistory(expected, []client.RouteRecord{
		{Target: 3, Route: []scenario.NodeRef{0, 2, 1, 3}},
	})
	require.False(t, res.OK())

	// Extra request recorded.
	res = PFSHistory(expected, []client.RouteRecord{
		{Target: 3, Route: []scenario.NodeRef{0, 1, 2, 3}},
		{Target: 2, Route: []scenario.NodeRef{0, 1, 2}},
	})
	require.False(t, res.OK())

	// No requests at all.
	res = PFSHistory(expected, nil)
	require.False(t, res.OK())
}

func TestResultIdempotent(t *testing.T) {
	observed := client.ChannelState{Balance: 90_000}
	expected := &scenario.AssertChannel{Balance: uint64p(89_489), Tolerance: 100}

	first := Channel(expected, observed)
	for i := 0; i < 5; i++ {
		again := Channel(expected, observed)
		require.Equal(t, first, again)
		require.Equal(t, first.OK(), again.OK())
	}
}
