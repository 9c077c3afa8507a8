package pool

import "testing"

func TestCanBindFromOtherES(t *testing.T) {
	cases := map[AccessMode]bool{
		PRW:   false,
		PR_PW: false,
		PR_SW: false,
		SR_PW: true,
		SR_SW: true,
	}
	for mode, want := range cases {
		if got := CanBindFromOtherES(mode); got != want {
			t.Errorf("CanBindFromOtherES(%s) = %v, want %v", mode, got, want)
		}
	}
}

func TestCanBindCrossAccess(t *testing.T) {
	type vec struct {
		es, secondary AccessMode
		want          bool
	}
	vecs := []vec{
		{PRW, PRW, true},
		{PRW, PR_PW, true},
		{PRW, PR_SW, true},
		{PRW, SR_PW, false},
		{PRW, SR_SW, false},
		{PR_PW, SR_PW, false},
		{PR_SW, SR_SW, false},
		{SR_PW, PRW, true},
		{SR_PW, SR_SW, true},
		{SR_SW, SR_SW, true},
	}
	for _, v := range vecs {
		if got := CanBindCrossAccess(v.es, v.secondary); got != v.want {
			t.Errorf("CanBindCrossAccess(%s, %s) = %v, want %v", v.es, v.secondary, got, v.want)
		}
	}
}

func TestCanPushFromOtherES(t *testing.T) {
	type vec struct {
		access                    AccessMode
		withinWant, recursiveWant bool
	}
	vecs := []vec{
		{PRW, false, false},
		{PR_PW, true, false},
		{PR_SW, true, true},
		{SR_PW, true, false},
		{SR_SW, true, true},
	}
	for _, v := range vecs {
		within, recursive := CanPushFromOtherES(v.access)
		if within != v.withinWant || recursive != v.recursiveWant {
			t.Errorf("CanPushFromOtherES(%s) = (%v, %v), want (%v, %v)",
				v.access, within, recursive, v.withinWant, v.recursiveWant)
		}
	}
}
