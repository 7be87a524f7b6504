package models

import "testing"

func TestSeverityRank(t *testing.T) {
	tests := []struct {
		severity Severity
		want     int
	}{
		{SeverityNone, 0},
		{SeverityLow, 1},
		{SeverityModerate, 2},
		{SeverityHigh, 3},
		{Severity("bogus"), -1},
		{Severity(""), -1},
	}

	for _, tt := range tests {
		if got := tt.severity.Rank(); got != tt.want {
			t.Errorf("Rank(%q) = %d, want %d", tt.severity, got, tt.want)
		}
	}
}

func TestSeverityAtLeast(t *testing.T) {
	tests := []struct {
		severity  Severity
		threshold Severity
		want      bool
	}{
		{SeverityHigh, SeverityModerate, true},
		{SeverityModerate, SeverityModerate, true},
		{SeverityLow, SeverityModerate, false},
		{SeverityNone, SeverityLow, false},
		{Severity("bogus"), SeverityNone, false},
	}

	for _, tt := range tests {
		if got := tt.severity.AtLeast(tt.threshold); got != tt.want {
			t.Errorf("%q.AtLeast(%q) = %v, want %v", tt.severity, tt.threshold, got, tt.want)
		}
	}
}

func TestMaxSeverity(t *testing.T) {
	if got := MaxSeverity(SeverityLow, SeverityHigh); got != SeverityHigh {
		t.Errorf("MaxSeverity(low, high) = %q, want high", got)
	}
	if got := MaxSeverity(SeverityModerate, SeverityNone); got != SeverityModerate {
		t.Errorf("MaxSeverity(moderate, none) = %q, want moderate", got)
	}
	if got := MaxSeverity(SeverityNone, SeverityNone); got != SeverityNone {
		t.Errorf("MaxSeverity(none, none) = %q, want none", got)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"low", SeverityLow},
		{"moderate", SeverityModerate},
		{"high", SeverityHigh},
		{"none", SeverityNone},
		{"critical", SeverityNone},
		{"", SeverityNone},
	}

	for _, tt := range tests {
		if got := ParseSeverity(tt.in); got != tt.want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
