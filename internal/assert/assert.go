// Package assert compares expected scenario state against observed
// network state. All comparisons are pure: they never mutate the
// observed snapshot and always yield the same result for the same
// inputs.
package assert

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/scenario"
)

// FieldResult is the outcome of one field comparison.
type FieldResult struct {
	Name     string
	Expected string
	Observed string
	OK       bool
}

func (f FieldResult) String() string {
	if f.OK {
		return fmt.Sprintf("%s: ok (%s)", f.Name, f.Observed)
	}
	return fmt.Sprintf("%s: expected %s, observed %s", f.Name, f.Expected, f.Observed)
}

// Result collects the field comparisons of one assertion. Fields that
// were absent from the expectation are not present here at all, which
// keeps "not checked" distinct from "checked and mismatched".
type Result struct {
	Fields []FieldResult
}

// OK reports whether every checked field matched.
func (r Result) OK() bool {
	return lo.EveryBy(r.Fields, func(f FieldResult) bool { return f.OK })
}

// Mismatches returns only the failed field comparisons.
func (r Result) Mismatches() []FieldResult {
	return lo.Filter(r.Fields, func(f FieldResult, _ int) bool { return !f.OK })
}

func (r Result) String() string {
	if len(r.Fields) == 0 {
		return "nothing checked"
	}
	parts := lo.Map(r.Fields, func(f FieldResult, _ int) string { return f.String() })
	return strings.Join(parts, "; ")
}

// Uint64 compares a numeric field. A tolerance of zero means exact
// match; otherwise a deviation of up to tolerance in either direction
// is accepted.
func Uint64(name string, expected, observed, tolerance uint64) FieldResult {
	var diff uint64
	if observed > expected {
		diff = observed - expected
	} else {
		diff = expected - observed
	}
	res := FieldResult{
		Name:     name,
		Observed: fmt.Sprintf("%d", observed),
		OK:       diff <= tolerance,
	}
	if tolerance > 0 {
		res.Expected = fmt.Sprintf("%d (±%d)", expected, tolerance)
	} else {
		res.Expected = fmt.Sprintf("%d", expected)
	}
	return res
}

// Status compares a channel lifecycle state.
func Status(name string, expected, observed scenario.ChannelStatus) FieldResult {
	return FieldResult{
		Name:     name,
		Expected: string(expected),
		Observed: string(observed),
		OK:       expected == observed,
	}
}

// Route compares a route hop-by-hop. The comparison is both order- and
// length-sensitive: a permutation or a prefix of the expected route is
// a mismatch.
func Route(name string, expected, observed []scenario.NodeRef) FieldResult {
	ok := len(expected) == len(observed)
	if ok {
		for i := range expected {
			if expected[i] != observed[i] {
				ok = false
				break
			}
		}
	}
	return FieldResult{
		Name:     name,
		Expected: formatRoute(expected),
		Observed: formatRoute(observed),
		OK:       ok,
	}
}

// Channel evaluates a channel assertion against an observed channel
// state. Only the fields present in the expectation are checked.
func Channel(expected *scenario.AssertChannel, observed client.ChannelState) Result {
	var res Result
	if expected.TotalDeposit != nil {
		res.Fields = append(res.Fields, Uint64("total_deposit", *expected.TotalDeposit, observed.TotalDeposit, expected.Tolerance))
	}
	if expected.Balance != nil {
		res.Fields = append(res.Fields, Uint64("balance", *expected.Balance, observed.Balance, expected.Tolerance))
	}
	if expected.State != "" {
		res.Fields = append(res.Fields, Status("state", expected.State, observed.Status))
	}
	return res
}

// PFSHistory evaluates a routing-history assertion against the
// recorded requests of the source node. The request count must match
// exactly, and each request to the target must have returned the
// positionally corresponding expected route.
func PFSHistory(expected *scenario.AssertPFSHistory, observed []client.RouteRecord) Result {
	var res Result
	res.Fields = append(res.Fields, Uint64("request_count", uint64(expected.RequestCount), uint64(len(observed)), 0))

	toTarget := lo.Filter(observed, func(r client.RouteRecord, _ int) bool {
		return r.Target == expected.Target
	})
	res.Fields = append(res.Fields,
		Uint64(fmt.Sprintf("requests_to_node_%d", expected.Target),
			uint64(len(expected.ExpectedRoutes)), uint64(len(toTarget)), 0))

	for i, want := range expected.ExpectedRoutes {
		name := fmt.Sprintf("route_%d", i)
		if i >= len(toTarget) {
			res.Fields = append(res.Fields, FieldResult{
				Name:     name,
				Expected: formatRoute(want),
				Observed: "absent",
			})
			continue
		}
		res.Fields = append(res.Fields, Route(name, want, toTarget[i].Route))
	}
	return res
}

func formatRoute(route []scenario.NodeRef) string {
	parts := lo.Map(route, func(n scenario.NodeRef, _ int) string { return fmt.Sprintf("%d", n) })
	return "[" + strings.Join(parts, ",") + "]"
}
