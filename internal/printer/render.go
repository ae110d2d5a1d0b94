package printer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nmcorpuz/pawnshop-core/internal/model"
)

const dateLayout = "2006-01-02"

// RenderTicket produces the plain-text pawn ticket document. Fixed-width
// layout for 80-column receipt printers.
func RenderTicket(ticket *model.PawnTicket, txn *model.Transaction) []byte {
	var b bytes.Buffer

	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("================================================")
	line("                 PAWN TICKET")
	line("================================================")
	line("Ticket No.      : %s", ticket.TicketNumber)
	line("Transaction     : %s (%s)", txn.TransactionNumber, txn.Type)
	line("Tracking No.    : %s", txn.TrackingNumber)
	if txn.PreviousTransactionNumber != nil {
		line("Previous Txn    : %s", *txn.PreviousTransactionNumber)
	}
	line("------------------------------------------------")
	line("Principal       : %16s", txn.Principal.StringFixed(2))
	line("Interest        : %16s", txn.InterestAmount.StringFixed(2))
	line("Penalty         : %16s", txn.PenaltyAmount.StringFixed(2))
	line("Service Charge  : %16s", txn.ServiceCharge.StringFixed(2))
	if !txn.NetPayment.IsZero() {
		line("Net Payment     : %16s", txn.NetPayment.StringFixed(2))
	}
	line("Total           : %16s", txn.TotalAmount.StringFixed(2))
	line("------------------------------------------------")
	line("Granted         : %s", txn.GrantedDate.Format(dateLayout))
	line("Maturity        : %s", txn.MaturityDate.Format(dateLayout))
	line("Grace Period    : %s", txn.GracePeriodDate.Format(dateLayout))
	line("Expiry          : %s", txn.ExpiryDate.Format(dateLayout))
	line("================================================")
	if ticket.PrintCount > 0 {
		line("REPRINT #%d", ticket.PrintCount+1)
	}

	return b.Bytes()
}

// FileSpooler drops rendered tickets into a spool directory watched by the
// print daemon.
type FileSpooler struct {
	dir string
}

func NewFileSpooler(dir string) (*FileSpooler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &FileSpooler{dir: dir}, nil
}

func (s *FileSpooler) Spool(_ context.Context, ticketNumber string, doc []byte) error {
	path := filepath.Join(s.dir, ticketNumber+".txt")
	return os.WriteFile(path, doc, 0o644)
}
