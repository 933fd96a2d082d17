package screener

import "testing"

func TestClassifySecurity(t *testing.T) {
	cases := []struct {
		symbol string
		want   SecurityClass
	}{
		{"BRLS", ClassCommon},
		{"PLBY", ClassCommon},
		{"HUMA", ClassCommon},
		{"LIMN", ClassCommon},
		{"GOEVW", ClassWarrant},
		{"ABC.WS", ClassWarrant},
		{"ABC-WT", ClassWarrant},
		{"XYZ.U", ClassUnit},
		{"XYZ-U", ClassUnit},
		{"BAC.PR", ClassPreferred},
		{"TRTN-R", ClassRights},
		{"abc.ws", ClassWarrant},
		{"", ClassCommon},
		{"U", ClassCommon}, // bare one-letter ticker is not a suffix
	}

	for _, tc := range cases {
		if got := ClassifySecurity(tc.symbol); got != tc.want {
			t.Errorf("ClassifySecurity(%q) = %q, want %q", tc.symbol, got, tc.want)
		}
	}
}
