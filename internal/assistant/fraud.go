package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/bankassist/internal/session"
	"github.com/kalambet/bankassist/internal/usecase"
)

// MsgNoFraudHistory is returned verbatim when no transaction turn exists.
const MsgNoFraudHistory = "⚠️ No recent transactions found to raise a fraud complaint. Please check your transaction history first."

// MutualFundsContext is the canned context for the mutual fund use case.
const MutualFundsContext = "You have invested in ELSS and Tax Saver Mutual Funds. These are eligible for deductions under Section 80C. " +
	"We can help you calculate benefits or suggest tax-saving funds."

// TicketID is {user}-{DD-MM-YYYY}-{non-empty context lines, two digits}.
func TicketID(userID string, day time.Time, txnContext string) string {
	n := 0
	for _, line := range strings.Split(strings.TrimSpace(txnContext), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return fmt.Sprintf("%s-%s-%02d", userID, day.Format("02-01-2006"), n)
}

// fraudContext builds the complaint confirmation from the most recent
// transaction history turn. It reports false when there is none.
func fraudContext(sess *session.Session, now time.Time) (string, bool) {
	turn, ok := sess.LastTurnFor(usecase.TransactionHistory)
	if !ok || strings.TrimSpace(turn.Context) == "" {
		return "", false
	}
	id := TicketID(sess.UserID, now, turn.Context)
	return fmt.Sprintf("Based on your recent transaction history:\n\n%s\n\n✅ A fraud complaint has been raised.\n🆚 Ticket ID: %s", turn.Context, id), true
}
