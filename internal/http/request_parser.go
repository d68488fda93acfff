package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 64 << 10

// validationError is an input problem reported to the client as 422.
type validationError struct {
	Field string
	Err   error
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *validationError) Unwrap() error { return e.Err }

func invalid(field string, err error) *validationError {
	return &validationError{Field: field, Err: err}
}

// amountInput accepts an amount as a JSON string ("12,34") or number (12.34).
type amountInput string

func (a *amountInput) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*a = amountInput(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = amountInput(n.String())
	return nil
}

type credentialRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
}

type expenseRequest struct {
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	Description string      `json:"description"`
	Amount      amountInput `json:"amount"`
}

type creditRequest struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      amountInput `json:"amount"`
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode request body: unexpected data after JSON object")
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseDateOrToday returns today's date in UTC for an empty input.
func parseDateOrToday(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.DateOf(time.Now().UTC()), nil
	}
	return core.ParseDate(s)
}

// parseExpense applies the input rules for a new expense. With
// subcategories disabled the subcategory is forced to the category.
func parseExpense(req expenseRequest, subcategories bool) (core.Expense, *validationError) {
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		return core.Expense{}, invalid("date", err)
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.Expense{}, invalid("amount", err)
	}

	e := core.Expense{
		Date:        date,
		Category:    sanitizeInput(req.Category),
		Subcategory: sanitizeInput(req.Subcategory),
		Description: sanitizeInput(req.Description),
		Amount:      amount,
	}

	if subcategories {
		if e.Subcategory == "" {
			return core.Expense{}, invalid("subcategory", core.ErrUnknownSubcategory)
		}
	} else {
		e.Subcategory = ""
	}
	if err := core.ValidatePair(e.Category, e.Subcategory); err != nil {
		field := "category"
		if errors.Is(err, core.ErrUnknownSubcategory) {
			field = "subcategory"
		}
		return core.Expense{}, invalid(field, err)
	}
	e = e.NormalizeSubcategory()

	if err := e.Validate(); err != nil {
		return core.Expense{}, invalid(validationField(err), err)
	}
	return e, nil
}

// validationField names the input a record Validate error is about.
func validationField(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, core.ErrInvalidDate):
		return "date"
	default:
		return "description"
	}
}

// parseExpenseMatch reads the visible fields of an existing expense. The
// strings are compared exactly, so they are not sanitized.
func parseExpenseMatch(req expenseRequest) (core.ExpenseMatch, *validationError) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.ExpenseMatch{}, invalid("date", err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(string(req.Amount)), ",", "."))
	if err != nil || amount.IsNegative() {
		return core.ExpenseMatch{}, invalid("amount", core.ErrInvalidAmount)
	}
	m := core.ExpenseMatch{
		Date:        date,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Description: req.Description,
		Amount:      amount,
	}
	if m.Subcategory == "" {
		m.Subcategory = m.Category
	}
	return m, nil
}

func parseCredit(req creditRequest) (core.Credit, *validationError) {
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		return core.Credit{}, invalid("date", err)
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.Credit{}, invalid("amount", err)
	}
	c := core.Credit{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
	}
	if err := c.Validate(); err != nil {
		return core.Credit{}, invalid(validationField(err), err)
	}
	return c, nil
}

// parseMonthQuery reads the optional ?month=YYYY-MM filter.
func parseMonthQuery(r *http.Request) (core.MonthKey, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return "", nil
	}
	return core.ParseMonthKey(v)
}

func parseMonthPath(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(r.PathValue("month"))
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}
