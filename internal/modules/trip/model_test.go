// README: Pure state-machine tests (no database).
package trip

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPending, StatusAssigned, true},
		{StatusAssigned, StatusActive, true},
		{StatusActive, StatusEndingUser, true},
		{StatusActive, StatusEndingDriver, true},
		{StatusEndingUser, StatusEnded, true},
		{StatusEndingDriver, StatusEnded, true},
		// invalid: skipping states
		{StatusPending, StatusActive, false},
		{StatusPending, StatusEnded, false},
		{StatusAssigned, StatusEndingUser, false},
		{StatusActive, StatusEnded, false},
		// invalid: backward transitions
		{StatusAssigned, StatusPending, false},
		{StatusActive, StatusAssigned, false},
		{StatusEnded, StatusActive, false},
		{StatusEndingUser, StatusActive, false},
		// invalid: terminal state has no outgoing transitions
		{StatusEnded, StatusEnded, false},
		{StatusEnded, StatusPending, false},
		// partial-end states never cross over
		{StatusEndingUser, StatusEndingDriver, false},
		{StatusEndingDriver, StatusEndingUser, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestNextOnEnd(t *testing.T) {
	cases := []struct {
		current   Status
		side      Side
		want      Status
		effective bool
	}{
		{StatusActive, SideUser, StatusEndingUser, true},
		{StatusActive, SideDriver, StatusEndingDriver, true},
		{StatusEndingUser, SideDriver, StatusEnded, true},
		{StatusEndingDriver, SideUser, StatusEnded, true},
		// repeat signal from the same side is a no-op
		{StatusEndingUser, SideUser, "", false},
		{StatusEndingDriver, SideDriver, "", false},
		// ended is absorbing
		{StatusEnded, SideUser, "", false},
		{StatusEnded, SideDriver, "", false},
	}
	for _, tc := range cases {
		got, effective := NextOnEnd(tc.current, tc.side)
		if effective != tc.effective || got != tc.want {
			t.Errorf("NextOnEnd(%s, %s) = (%s, %v), want (%s, %v)",
				tc.current, tc.side, got, effective, tc.want, tc.effective)
		}
	}
}

func TestEveryEndOrderTerminates(t *testing.T) {
	orders := [][]Side{
		{SideUser, SideDriver},
		{SideDriver, SideUser},
	}
	for _, order := range orders {
		status := StatusActive
		for _, side := range order {
			next, effective := NextOnEnd(status, side)
			if !effective {
				t.Fatalf("signal %s from %s should be effective", side, status)
			}
			if !CanTransition(status, next) {
				t.Fatalf("transition %s -> %s not allowed", status, next)
			}
			status = next
		}
		if status != StatusEnded {
			t.Fatalf("end order %v finished in %s, want %s", order, status, StatusEnded)
		}
	}
}
