package inference

import (
	"reflect"
	"testing"
)

func TestBuildStopTokens(t *testing.T) {
	cases := []struct {
		name   string
		eos    int
		forced int
		extra  []int
		want   []int
	}{
		{name: "eos-only", eos: 2, want: []int{2}},
		{name: "eos-disabled", eos: 0, want: []int{}},
		{name: "forced-eos-added", eos: 2, forced: 9, want: []int{2, 9}},
		{name: "forced-eos-duplicate", eos: 2, forced: 2, want: []int{2}},
		{name: "extra-deduplicated", eos: 2, extra: []int{5, 2, 5, -1}, want: []int{2, 5}},
		{name: "negative-ignored", eos: -1, forced: -4, extra: []int{7}, want: []int{7}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildStopTokens(tc.eos, tc.forced, tc.extra...)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("BuildStopTokens() = %v, want %v", got, tc.want)
			}
		})
	}
}
