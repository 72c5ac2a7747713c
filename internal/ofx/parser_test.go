package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DIRECTDEP
<DTPOSTED>20240112120000[0:GMT]
<TRNAMT>2500.00
<FITID>2024011201
<NAME>DIRECT DEPOSIT ACME CORP
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240112120000[0:GMT]
<TRNAMT>75.25
<FITID>2024011202
<NAME>CREDIT
<MEMO>Venmo cashout
</STMTTRN>
<STMTTRN>
<TRNTYPE>INT
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>1.07
<FITID>2024013101
<NAME>INTEREST PAYMENT
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>4321.09
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>200.00
<FITID>CC2024011001
<NAME>PAYMENT THANK YOU
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name           string
		ofxData        string
		wantStatements int
		wantCredits    int
		expectedError  bool
	}{
		{
			name:           "valid bank statement",
			ofxData:        sampleBankOFX,
			wantStatements: 1,
			wantCredits:    3,
		},
		{
			name:           "credit card statements are skipped",
			ofxData:        sampleCreditCardOFX,
			wantStatements: 0,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			statements, err := parser.ParseFile(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, statements, tt.wantStatements)
			if tt.wantStatements > 0 {
				assert.Len(t, statements[0].Credits, tt.wantCredits)
			}
		})
	}
}

func TestParseBankCredits(t *testing.T) {
	parser := NewParser()
	statements, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, "1234567890", stmt.AccountNumber)
	assert.True(t, stmt.HasBalance)
	assert.Equal(t, date.New(2024, 1, 31), stmt.AsOf)
	assert.True(t, decimal.RequireFromString("4321.09").Equal(stmt.LedgerBalance))

	require.Len(t, stmt.Credits, 3)

	payroll := stmt.Credits[0]
	assert.Equal(t, "2024011201", payroll.FITID)
	assert.Equal(t, "ACME CORP", payroll.Description)
	assert.Equal(t, date.New(2024, 1, 12), payroll.Posted)
	assert.True(t, decimal.NewFromInt(2500).Equal(payroll.Amount))

	venmo := stmt.Credits[1]
	assert.Equal(t, "Venmo cashout", venmo.Description)
	assert.True(t, decimal.RequireFromString("75.25").Equal(venmo.Amount))

	interest := stmt.Credits[2]
	assert.Equal(t, "INTEREST PAYMENT", interest.Description)
	assert.True(t, decimal.RequireFromString("1.07").Equal(interest.Amount))
}

func TestCreditIncomeEntry_StableID(t *testing.T) {
	credit := Credit{
		FITID:       "2024011201",
		Posted:      date.New(2024, 1, 12),
		Amount:      decimal.NewFromInt(2500),
		Description: "ACME CORP",
	}

	first := credit.IncomeEntry("acct-1")
	second := credit.IncomeEntry("acct-1")
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.ID, credit.IncomeEntry("acct-2").ID)

	assert.Equal(t, "acct-1", first.AccountID)
	assert.Equal(t, credit.Posted, first.ReceivedDate)
	assert.True(t, credit.Amount.Equal(first.Amount))
	assert.Equal(t, "ACME CORP", first.Description)
}

func TestExtractDescription(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		memo     string
		expected string
	}{
		{name: "remove direct deposit prefix", input: "DIRECT DEPOSIT ACME CORP", expected: "ACME CORP"},
		{name: "remove ACH prefix", input: "ACH CREDIT GUSTO PAYROLL", expected: "GUSTO PAYROLL"},
		{name: "keep clean name", input: "STRIPE TRANSFER", expected: "STRIPE TRANSFER"},
		{name: "trim whitespace", input: "  ACME  ", expected: "ACME"},
		{name: "generic name uses memo", input: "DEPOSIT", memo: "Check 1001", expected: "Check 1001"},
		{name: "leading date", input: "01/12 REFUND", expected: "REFUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
				Memo: ofxgo.String(tt.memo),
			}
			assert.Equal(t, tt.expected, parser.extractDescription(tx))
		})
	}
}

func TestSelectStatement(t *testing.T) {
	one := []Statement{{AccountNumber: "111"}}
	two := []Statement{{AccountNumber: "111"}, {AccountNumber: "222"}}

	got, err := SelectStatement(one, "")
	require.NoError(t, err)
	assert.Equal(t, "111", got.AccountNumber)

	_, err = SelectStatement(two, "")
	assert.Error(t, err)

	got, err = SelectStatement(two, "222")
	require.NoError(t, err)
	assert.Equal(t, "222", got.AccountNumber)

	_, err = SelectStatement(two, "333")
	assert.Error(t, err)

	_, err = SelectStatement(nil, "")
	assert.Error(t, err)
}
