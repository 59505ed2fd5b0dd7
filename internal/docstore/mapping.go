package docstore

import "github.com/kalambet/bankassist/internal/usecase"

// DefaultMapping lists the documents and folders, relative to the docs
// root, that back each use case. Folders contribute every supported file
// they contain.
func DefaultMapping() map[usecase.UseCase][]string {
	return map[usecase.UseCase][]string{
		usecase.Investment: {
			"Invest(non sharemarket)/HDFC FD.docx",
		},
		usecase.Documentation: {
			"Document and Process Query/HomeLoanDocandProcess.docx",
			"Document and Process Query/Credit Card.pdf",
			"Document and Process Query/Credit_Card_Info.pdf",
		},
		usecase.LoanPrepurchase: {
			"Loan Purchase query/HomeLoanDocandProcess.docx",
		},
		usecase.BankingNorms: {
			"BankingNorms/Hdfc",
			"BankingNorms/Rbi",
		},
		usecase.FraudComplaint: {
			"FraudSafety/FraudComplaint.docx",
			"FraudSafety/FraudSafety.docx",
		},
		usecase.KYCUpdate: {
			"KYCand Details update/KNOW YOUR CUSTOMER (KYC) NORMS.pdf",
			"KYCand Details update/KYCupdatelinks.docx",
		},
		usecase.DownloadStatement: {
			"Download doc&statements/Download Statement and Documents.docx",
		},
		usecase.MutualFunds: {
			"MutualFund&TaxBenifit",
		},
	}
}
