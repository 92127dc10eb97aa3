package models

import (
	"reflect"
	"testing"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "invoice", []string{"invoice"}},
		{"ordered", "alpha,bravo,charlie", []string{"alpha", "bravo", "charlie"}},
		{"skips blanks", "alpha,, bravo ,", []string{"alpha", "bravo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitTags(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitTags(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestJoinTags_roundTrip(t *testing.T) {
	tags := []string{"budget", "quarter", "revenue"}
	if got := SplitTags(JoinTags(tags)); !reflect.DeepEqual(got, tags) {
		t.Errorf("round trip = %v, want %v", got, tags)
	}
}

func TestDocument_IsPlaceholder(t *testing.T) {
	if !(&Document{SummaryKind: SummaryPlaceholder}).IsPlaceholder() {
		t.Error("placeholder kind should report placeholder")
	}
	if (&Document{SummaryKind: SummaryFallback}).IsPlaceholder() {
		t.Error("fallback kind is not a placeholder")
	}
}
