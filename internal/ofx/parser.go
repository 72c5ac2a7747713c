// Package ofx reads bank statements in OFX/QFX format and extracts the
// credits that count as income together with the statement's ledger balance.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Statement is one bank statement found in an OFX file.
type Statement struct {
	AsOf          date.Date
	LedgerBalance decimal.Decimal
	AccountNumber string
	Credits       []Credit
	HasBalance    bool
}

// Credit is a positive transaction on a bank statement.
type Credit struct {
	Posted      date.Date
	Amount      decimal.Decimal
	FITID       string
	Description string
}

// IncomeEntry converts the credit into income for an account. The id is
// derived from the account and the bank's transaction id so importing the
// same file twice updates rather than duplicates.
func (c Credit) IncomeEntry(accountID string) model.IncomeEntry {
	return model.IncomeEntry{
		ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte("ofx:"+accountID+"/"+c.FITID)).String(),
		AccountID:    accountID,
		Amount:       c.Amount,
		ReceivedDate: c.Posted,
		Description:  c.Description,
	}
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of bare tags.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file and returns its bank statements.
// Credit card statements are skipped: credits there are payments, not income.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []Statement
	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		statement, err := p.processBankStatement(stmt)
		if err != nil {
			slog.Warn("Failed to process bank statement",
				"account", stmt.BankAcctFrom.AcctID,
				"error", err)
			continue
		}
		statements = append(statements, statement)
	}

	if len(resp.CreditCard) > 0 {
		slog.Debug("Skipping credit card statements", "count", len(resp.CreditCard))
	}

	slog.Info("Parsed OFX file", "bank_statements", len(statements))
	return statements, nil
}

func (p *Parser) processBankStatement(stmt *ofxgo.StatementResponse) (Statement, error) {
	statement := Statement{
		AccountNumber: string(stmt.BankAcctFrom.AcctID),
	}

	if !stmt.DtAsOf.IsZero() {
		balance, err := amountToDecimal(stmt.BalAmt)
		if err != nil {
			return Statement{}, fmt.Errorf("ledger balance: %w", err)
		}
		statement.LedgerBalance = balance
		statement.AsOf = date.FromTime(stmt.DtAsOf.Time)
		statement.HasBalance = true
	}

	if stmt.BankTranList == nil {
		return statement, nil
	}

	for _, ofxTx := range stmt.BankTranList.Transactions {
		amount, err := amountToDecimal(ofxTx.TrnAmt)
		if err != nil {
			return Statement{}, fmt.Errorf("transaction %s: %w", ofxTx.FiTID, err)
		}
		// OFX uses negative amounts for debits.
		if !amount.IsPositive() {
			continue
		}
		statement.Credits = append(statement.Credits, Credit{
			FITID:       string(ofxTx.FiTID),
			Posted:      date.FromTime(ofxTx.DtPosted.Time),
			Amount:      amount,
			Description: p.extractDescription(ofxTx),
		})
	}

	return statement, nil
}

func amountToDecimal(amount ofxgo.Amount) (decimal.Decimal, error) {
	return decimal.NewFromString(amount.FloatString(2))
}

// extractDescription tries to get a clean payer name from OFX data.
func (p *Parser) extractDescription(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"ACH CREDIT ",
		"ACH DEPOSIT ",
		"DIRECT DEPOSIT ",
		"DIR DEP ",
		"MOBILE DEPOSIT ",
		"DEPOSIT ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	generic := []string{
		"CREDIT",
		"DEPOSIT",
		"DIRECT DEPOSIT",
		"TRANSFER",
	}

	upperName := strings.ToUpper(strings.TrimSpace(name))
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}

// SelectStatement picks the statement for accountNumber, or the only
// statement when accountNumber is empty.
func SelectStatement(statements []Statement, accountNumber string) (*Statement, error) {
	if accountNumber == "" {
		switch len(statements) {
		case 0:
			return nil, fmt.Errorf("no bank statements in file")
		case 1:
			return &statements[0], nil
		default:
			numbers := make([]string, 0, len(statements))
			for _, s := range statements {
				numbers = append(numbers, s.AccountNumber)
			}
			return nil, fmt.Errorf("file holds %d statements (%s), choose one", len(statements), strings.Join(numbers, ", "))
		}
	}

	for i := range statements {
		if statements[i].AccountNumber == accountNumber {
			return &statements[i], nil
		}
	}
	return nil, fmt.Errorf("no statement for account number %s", accountNumber)
}
