package utils

import "testing"

func TestRemoveInlineCitations(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "no citations", in: "The rent is $1200.", want: "The rent is $1200."},
		{name: "before punctuation", in: "The rent is $1200 [1].", want: "The rent is $1200."},
		{name: "between words", in: "renewal[2]option applies", want: "renewal option applies"},
		{name: "multiple markers", in: "Rent [1] and term [2] are fixed.", want: "Rent and term are fixed."},
		{name: "adjacent to comma", in: "monthly [3], plus utilities", want: "monthly, plus utilities"},
		{name: "multi digit", in: "see clause [12] here", want: "see clause here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RemoveInlineCitations(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
