package http

// This file holds the request parsing helpers shared by the handlers:
// month selection from query strings and a body parser that accepts either
// JSON or form encoding, since HTMX posts forms and API clients post JSON.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budgetbook/internal/core"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month from query values, falling back to
// today's month for missing or non-numeric values.
func ParseMonthParams(query url.Values, today core.Date) MonthParams {
	params := MonthParams{Year: today.Year(), Month: today.Month()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}
	return params
}

func (p MonthParams) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return core.ErrInvalidMonth
	}
	if p.Year < 1 || p.Year > 9999 {
		return fmt.Errorf("year %d: %w", p.Year, core.ErrInvalidDate)
	}
	return nil
}

// ParseDateField parses a YYYY-MM-DD field; blank means today.
func ParseDateField(v string, today core.Date) (core.Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return today, nil
	}
	return core.ParseDate(v)
}

// ParseMoneyField parses a positive decimal amount such as "12.50".
func ParseMoneyField(v string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(v))
	if err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	m := core.Money{Cents: cents}
	if err := m.Validate(); err != nil {
		return core.Money{}, err
	}
	return m, nil
}

// RequestBodyParser reads the body once and exposes it as flat fields.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body as JSON when it looks like JSON, as a form
// otherwise. Malformed input wraps errBadRequest.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	switch {
	case trimmed == "":
		p.formData = url.Values{}
	case trimmed[0] == '{':
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w: %v", errBadRequest, err)
		}
	default:
		if p.formData, p.err = url.ParseQuery(trimmed); p.err != nil {
			p.err = fmt.Errorf("decode form body: %w: %v", errBadRequest, p.err)
		}
	}
	return p.err
}

// DecodeJSON unmarshals the raw body into v.
func (p *RequestBodyParser) DecodeJSON(v any) error {
	if p.err != nil {
		return p.err
	}
	if err := json.Unmarshal(p.body, v); err != nil {
		return fmt.Errorf("decode json body: %w: %v", errBadRequest, err)
	}
	return nil
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	_, ok := p.formData[key]
	return ok
}

// GetInt returns def when the field is missing and an error when it is not
// an integer.
func (p *RequestBodyParser) GetInt(key string, def int) (int, error) {
	v := p.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, errBadRequest)
	}
	return n, nil
}

// GetBool accepts JSON booleans and the form values "on", "true" and "1".
func (p *RequestBodyParser) GetBool(key string, def bool) bool {
	if !p.Has(key) {
		return def
	}
	switch strings.ToLower(p.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
