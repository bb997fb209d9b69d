// Package form turns untrusted request bodies into typed values and collects
// per-field validation messages.
package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/money"
)

const (
	msgRequired = "This field is required."
	msgInteger  = "Enter a whole number."
	msgNumber   = "Enter a number."

	// maxDecimalLength bounds the raw text of a decimal field.
	maxDecimalLength = 32
)

// Errors maps field names to validation messages.
type Errors map[string][]string

// Add records a message for field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Empty reports whether no messages were recorded.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Error implements error so Errors can travel through error returns.
func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msgs := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, " ")))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Form holds raw field values and the errors found while reading them.
type Form struct {
	values map[string]string
	Errors Errors
}

// Parse reads a JSON, urlencoded or multipart body.
func Parse(c *fiber.Ctx) (*Form, error) {
	values := make(map[string]string)
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		if err := readJSON(c.Body(), values); err != nil {
			return nil, err
		}
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		mf, err := c.MultipartForm()
		if err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		for key, vals := range mf.Value {
			if len(vals) > 0 {
				values[key] = vals[0]
			}
		}
	default:
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			values[string(k)] = string(v)
		})
	}
	return FromValues(values), nil
}

// FromValues builds a Form from already-decoded values.
func FromValues(values map[string]string) *Form {
	f := &Form{values: make(map[string]string, len(values)), Errors: Errors{}}
	for k, v := range values {
		f.values[k] = v
	}
	return f
}

func readJSON(body []byte, values map[string]string) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode json body: %w", err)
	}
	for key, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			values[key] = val
		case json.Number:
			values[key] = val.String()
		default:
			values[key] = fmt.Sprint(val)
		}
	}
	return nil
}

// Raw returns the trimmed value for field and whether it was present.
func (f *Form) Raw(field string) (string, bool) {
	v, ok := f.values[field]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// String returns a required string field.
func (f *Form) String(field string) string {
	v, ok := f.Raw(field)
	if !ok {
		f.Errors.Add(field, msgRequired)
	}
	return v
}

// Int64 returns a required integer field.
func (f *Form) Int64(field string) int64 {
	v, ok := f.Raw(field)
	if !ok {
		f.Errors.Add(field, msgRequired)
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		f.Errors.Add(field, msgInteger)
		return 0
	}
	return n
}

// Decimal returns a required decimal field that fits the ledger precision.
func (f *Form) Decimal(field string) decimal.Decimal {
	v, ok := f.Raw(field)
	if !ok {
		f.Errors.Add(field, msgRequired)
		return decimal.Zero
	}
	if len(v) > maxDecimalLength {
		f.Errors.Add(field, msgNumber)
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		f.Errors.Add(field, msgNumber)
		return decimal.Zero
	}
	if err := money.Check(d); err != nil {
		f.Errors.Add(field, precisionMessage(err))
		return decimal.Zero
	}
	return money.Normalize(d)
}

// Currency returns a required currency field.
func (f *Form) Currency(field string) money.Currency {
	v, ok := f.Raw(field)
	if !ok {
		f.Errors.Add(field, msgRequired)
		return ""
	}
	c, err := money.ParseCurrency(v)
	if err != nil {
		f.Errors.Add(field, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v))
		return ""
	}
	return c
}

func precisionMessage(err error) string {
	switch {
	case errors.Is(err, money.ErrTooManyDecimals):
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", money.Scale)
	case errors.Is(err, money.ErrTooManyDigits):
		return fmt.Sprintf("Ensure that there are no more than %d digits in total.", money.MaxDigits)
	default:
		return err.Error()
	}
}
