package legacy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"expensetracker/internal/core"

	"github.com/shopspring/decimal"
)

// Flat-file record layouts. Optional fields are pointers so that a missing
// key can be told apart from an empty value. The id, hash and timestamp
// fields are only written by the JSON store; older files lack them.
type (
	CredentialRecord struct {
		UserID       *string `json:"userid,omitempty"`
		Password     *string `json:"password,omitempty"`
		PasswordHash string  `json:"password_hash,omitempty"`
		UpdatedAt    string  `json:"updated_at,omitempty"`
	}

	ExpenseRecord struct {
		ID          int64       `json:"id,omitempty"`
		Date        string      `json:"date"`
		Category    *string     `json:"category,omitempty"`
		Subcategory *string     `json:"subcategory,omitempty"`
		Description *string     `json:"description,omitempty"`
		Amount      json.Number `json:"amount,omitempty"`
		CreatedAt   string      `json:"created_at,omitempty"`
	}

	CreditRecord struct {
		ID          int64       `json:"id,omitempty"`
		Date        string      `json:"date"`
		Description *string     `json:"description,omitempty"`
		Amount      json.Number `json:"amount,omitempty"`
		CreatedAt   string      `json:"created_at,omitempty"`
	}
)

// Identity returns the userid and cleartext password with the built-in
// defaults filled in for missing keys.
func (r CredentialRecord) Identity() (string, string) {
	userid, password := core.DefaultUserID, core.DefaultPassword
	if r.UserID != nil {
		userid = *r.UserID
	}
	if r.Password != nil {
		password = *r.Password
	}
	return userid, password
}

// Expense converts the record, substituting defaults for missing fields.
func (r ExpenseRecord) Expense() (core.Expense, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := parseNumber(r.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:          r.ID,
		Date:        date,
		Category:    core.DefaultCategory,
		Description: deref(r.Description),
		Amount:      amount,
		CreatedAt:   parseTimestamp(r.CreatedAt),
	}
	if r.Category != nil {
		e.Category = *r.Category
	}
	e.Subcategory = e.Category
	if r.Subcategory != nil {
		e.Subcategory = *r.Subcategory
	}
	return e, nil
}

// Credit converts the record, substituting defaults for missing fields.
func (r CreditRecord) Credit() (core.Credit, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Credit{}, err
	}
	amount, err := parseNumber(r.Amount)
	if err != nil {
		return core.Credit{}, err
	}
	return core.Credit{
		ID:          r.ID,
		Date:        date,
		Description: deref(r.Description),
		Amount:      amount,
		CreatedAt:   parseTimestamp(r.CreatedAt),
	}, nil
}

func ExpenseRecordOf(e core.Expense) ExpenseRecord {
	return ExpenseRecord{
		ID:          e.ID,
		Date:        e.Date.String(),
		Category:    &e.Category,
		Subcategory: &e.Subcategory,
		Description: &e.Description,
		Amount:      json.Number(e.Amount.String()),
		CreatedAt:   formatTimestamp(e.CreatedAt),
	}
}

func CreditRecordOf(c core.Credit) CreditRecord {
	return CreditRecord{
		ID:          c.ID,
		Date:        c.Date.String(),
		Description: &c.Description,
		Amount:      json.Number(c.Amount.String()),
		CreatedAt:   formatTimestamp(c.CreatedAt),
	}
}

// ReadCredential decodes a credentials file. A missing file yields an error
// matching fs.ErrNotExist.
func ReadCredential(path string) (CredentialRecord, error) {
	var rec CredentialRecord
	if err := readJSON(path, &rec); err != nil {
		return CredentialRecord{}, err
	}
	return rec, nil
}

// ReadExpenses decodes and converts an expenses file. Any record that
// cannot be converted fails the whole file.
func ReadExpenses(path string) ([]core.Expense, error) {
	var recs []ExpenseRecord
	if err := readJSON(path, &recs); err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(recs))
	for i, rec := range recs {
		e, err := rec.Expense()
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// ReadCredits decodes and converts a credits file.
func ReadCredits(path string) ([]core.Credit, error) {
	var recs []CreditRecord
	if err := readJSON(path, &recs); err != nil {
		return nil, err
	}
	out := make([]core.Credit, 0, len(recs))
	for i, rec := range recs {
		c, err := rec.Credit()
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func parseNumber(n json.Number) (decimal.Decimal, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return d, nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
