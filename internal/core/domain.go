package core

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultUserID   = "admin"
	DefaultPassword = "password"

	// DefaultCategory is used for legacy records that predate categories.
	DefaultCategory = "Uncategorized"

	dateLayout = "2006-01-02"
)

type (
	Date struct {
		time.Time
	}

	// MonthKey is a "YYYY-MM" grouping key.
	MonthKey string

	Credential struct {
		UserID       string
		PasswordHash string
		UpdatedAt    time.Time
		// Default is set when nothing is stored and the built-in identity applies.
		Default bool
	}

	Expense struct {
		ID          int64
		Date        Date
		Category    string
		Subcategory string
		Description string
		Amount      decimal.Decimal
		CreatedAt   time.Time
	}

	Credit struct {
		ID          int64
		Date        Date
		Description string
		Amount      decimal.Decimal
		CreatedAt   time.Time
	}

	// ExpenseMatch identifies an expense by its visible fields, for callers
	// that never saw the record id.
	ExpenseMatch struct {
		Date        Date
		Category    string
		Subcategory string
		Description string
		Amount      decimal.Decimal
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownSubcategory = errors.New("unknown subcategory")
)

// MatchTolerance is the absolute amount difference below which two amounts
// are considered equal by ExpenseMatch.
var MatchTolerance = decimal.New(1, -2)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts "2006-01-02", RFC3339 and "2006-01-02 15:04:05".
// The time of day is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the "YYYY-MM" key of the date.
func (d Date) Month() MonthKey {
	return MonthOf(d)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "" || value == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthOf returns the month key a date falls in.
func MonthOf(d Date) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", d.Year(), int(d.Time.Month())))
}

// ParseMonthKey validates a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(DateOf(t)), nil
}

// CurrentMonth returns the month key for now in UTC.
func CurrentMonth() MonthKey {
	return MonthOf(DateOf(time.Now().UTC()))
}

func (m MonthKey) String() string {
	return string(m)
}

// HashPassword returns the bcrypt hash stored in place of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// DefaultCredential is the identity in effect while no credential is stored.
func DefaultCredential() Credential {
	return Credential{UserID: DefaultUserID, Default: true}
}

// Matches reports whether userid and password identify this credential.
// The userid must match exactly.
func (c Credential) Matches(userid, password string) bool {
	if userid != c.UserID {
		return false
	}
	if c.Default && c.PasswordHash == "" {
		return subtle.ConstantTimeCompare([]byte(password), []byte(DefaultPassword)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}

// NormalizeSubcategory fills in the category for records without a subcategory.
func (e Expense) NormalizeSubcategory() Expense {
	if strings.TrimSpace(e.Subcategory) == "" {
		e.Subcategory = e.Category
	}
	return e
}

// Validate applies the input rules for new expenses.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Validate applies the input rules for new credits.
func (c Credit) Validate() error {
	if err := c.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(c.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(c.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Matches reports whether e has the same visible fields, with amounts
// equal when they differ by strictly less than MatchTolerance.
func (m ExpenseMatch) Matches(e Expense) bool {
	if !m.Date.Equal(e.Date.Time) ||
		m.Category != e.Category ||
		m.Subcategory != e.Subcategory ||
		m.Description != e.Description {
		return false
	}
	return m.Amount.Sub(e.Amount).Abs().LessThan(MatchTolerance)
}
