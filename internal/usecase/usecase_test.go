package usecase

import "testing"

func TestParse(t *testing.T) {
	cases := map[string]UseCase{
		"Transaction History":          TransactionHistory,
		"  kyc & details update ":      KYCUpdate,
		`"Banking Norms"`:              BankingNorms,
		"Fraud Complaint - Scenario":   FraudComplaint,
		"unknown":                      Unknown,
		"Unclear":                      Unclear,
		"General Query":                Unclear,
		"weather forecast":             Unclear,
		"":                             Unclear,
		"Investment (non-sharemarket)": Investment,
	}
	for in, want := range cases {
		if got := Parse(in); got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsPublic(t *testing.T) {
	for _, u := range []UseCase{TransactionHistory, FraudComplaint, Unknown, Unclear} {
		if u.IsPublic() {
			t.Errorf("%q must not be public", u)
		}
	}
	count := 0
	for _, u := range All {
		if u.IsPublic() {
			count++
		}
	}
	if count != 7 {
		t.Errorf("public use cases = %d, want 7", count)
	}
}
