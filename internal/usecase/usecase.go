// Package usecase defines the closed set of banking use cases a query can be
// classified into.
package usecase

import "strings"

type UseCase string

const (
	Investment         UseCase = "Investment (non-sharemarket)"
	Documentation      UseCase = "Documentation & Process Query"
	TransactionHistory UseCase = "Transaction History"
	DownloadStatement  UseCase = "Download Statement & Document"
	LoanPrepurchase    UseCase = "Loan Prepurchase Query"
	FraudComplaint     UseCase = "Fraud Complaint"
	MutualFunds        UseCase = "Mutual Funds & Tax Benefits"
	BankingNorms       UseCase = "Banking Norms"
	KYCUpdate          UseCase = "KYC & Details Update"

	// Unknown means no predefined context applies.
	Unknown UseCase = "unknown"
	// Unclear is returned by the classifier when the query is ambiguous.
	Unclear UseCase = "unclear"
)

// All lists the classifiable use cases in prompt order.
var All = []UseCase{
	Investment,
	Documentation,
	TransactionHistory,
	DownloadStatement,
	LoanPrepurchase,
	FraudComplaint,
	MutualFunds,
	BankingNorms,
	KYCUpdate,
}

var public = map[UseCase]bool{
	Documentation:     true,
	KYCUpdate:         true,
	DownloadStatement: true,
	Investment:        true,
	BankingNorms:      true,
	LoanPrepurchase:   true,
	MutualFunds:       true,
}

// IsPublic reports whether answers for u carry no user-specific data and may
// be shared across users through the response cache.
func (u UseCase) IsPublic() bool {
	return public[u]
}

// IsSentinel reports whether u is one of the ambiguity sentinels.
func (u UseCase) IsSentinel() bool {
	return u == Unknown || u == Unclear
}

func (u UseCase) String() string {
	return string(u)
}

// Parse maps a free-text label onto a UseCase. Matching is case-insensitive
// and tolerates the legacy "Fraud Complaint - Scenario" label. Anything that
// is not recognised maps to Unclear.
func Parse(s string) UseCase {
	norm := strings.ToLower(strings.TrimSpace(strings.Trim(s, `"'.`)))
	if norm == "" {
		return Unclear
	}
	switch norm {
	case "unknown":
		return Unknown
	case "unclear", "general query":
		return Unclear
	case "fraud complaint - scenario":
		return FraudComplaint
	}
	for _, u := range All {
		if strings.ToLower(string(u)) == norm {
			return u
		}
	}
	return Unclear
}
