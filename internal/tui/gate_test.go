package tui

import "testing"

func TestRoute(t *testing.T) {
	cases := []struct {
		name          string
		authenticated bool
		current       view
		want          view
	}{
		{"unauthenticated stays on login", false, viewLogin, viewLogin},
		{"reset on list returns to login", false, viewList, viewLogin},
		{"reset on detail returns to login", false, viewDetail, viewLogin},
		{"login lands on list", true, viewLogin, viewList},
		{"authenticated keeps list", true, viewList, viewList},
		{"authenticated keeps detail", true, viewDetail, viewDetail},
	}
	for _, tc := range cases {
		if got := route(tc.authenticated, tc.current); got != tc.want {
			t.Errorf("%s: route(%v, %d) = %d, want %d", tc.name, tc.authenticated, tc.current, got, tc.want)
		}
	}
}
