/*
Package factory provides JSON to Go leave policy conversion.

PURPOSE:
  Converts a JSON leave policy document into a leave.AnnualPolicy. HR can
  change the yearly allowance without a code change; the calculator only
  ever sees the validated Go value.

JSON SCHEMA:
  {
    "casual_leave": 14,
    "sick_leave": 7
  }

  Values are days per full fiscal year. Fractions are allowed ("11.5").
  Numbers are decoded as decimals, never as float64.

SOURCES (first match wins):
  1. LEAVE_POLICY_FILE: path to a JSON document
  2. CASUAL_LEAVE / SICK_LEAVE: plain numbers
  3. DefaultPolicy()

USAGE:
  factory := NewPolicyFactory()
  policy, err := factory.ParsePolicy(`{"casual_leave": 14, "sick_leave": 7}`)

  // Or resolve from config values
  policy, err := factory.Resolve(cfg.Leave.PolicyFile, cfg.Leave.Casual, cfg.Leave.Sick)

SEE ALSO:
  - leave/types.go: AnnualPolicy
  - config/config.go: Where the sources come from
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/identity-engine/leave"
)

// ErrInvalidPolicy wraps every rejected policy document.
var ErrInvalidPolicy = errors.New("invalid leave policy")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of an annual leave policy.
type PolicyJSON struct {
	CasualLeave *decimal.Decimal `json:"casual_leave"`
	SickLeave   *decimal.Decimal `json:"sick_leave"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to leave.AnnualPolicy.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// DefaultPolicy is used when nothing is configured.
func DefaultPolicy() leave.AnnualPolicy {
	return leave.NewAnnualPolicy(14, 7)
}

// ParsePolicy parses a JSON string into an AnnualPolicy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (leave.AnnualPolicy, error) {
	var pj PolicyJSON
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pj); err != nil {
		return leave.AnnualPolicy{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return f.FromJSON(pj)
}

// LoadFile reads and parses a policy document from disk.
func (f *PolicyFactory) LoadFile(path string) (leave.AnnualPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return leave.AnnualPolicy{}, fmt.Errorf("read leave policy %s: %w", path, err)
	}
	return f.ParsePolicy(string(data))
}

// FromJSON validates a decoded document.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (leave.AnnualPolicy, error) {
	if pj.CasualLeave == nil {
		return leave.AnnualPolicy{}, fmt.Errorf("%w: casual_leave is required", ErrInvalidPolicy)
	}
	if pj.SickLeave == nil {
		return leave.AnnualPolicy{}, fmt.Errorf("%w: sick_leave is required", ErrInvalidPolicy)
	}
	return f.build(*pj.CasualLeave, *pj.SickLeave)
}

// ToJSON is the inverse of FromJSON.
func (f *PolicyFactory) ToJSON(p leave.AnnualPolicy) PolicyJSON {
	casual, sick := p.AnnualCasualLeave, p.AnnualSickLeave
	return PolicyJSON{CasualLeave: &casual, SickLeave: &sick}
}

// Resolve picks the policy from a file path, then from raw numbers, then
// the default. Empty strings mean "not set".
func (f *PolicyFactory) Resolve(file, casual, sick string) (leave.AnnualPolicy, error) {
	if file != "" {
		return f.LoadFile(file)
	}
	if casual == "" && sick == "" {
		return DefaultPolicy(), nil
	}

	def := DefaultPolicy()
	c, err := parseDays("CASUAL_LEAVE", casual, def.AnnualCasualLeave)
	if err != nil {
		return leave.AnnualPolicy{}, err
	}
	s, err := parseDays("SICK_LEAVE", sick, def.AnnualSickLeave)
	if err != nil {
		return leave.AnnualPolicy{}, err
	}
	return f.build(c, s)
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func (f *PolicyFactory) build(casual, sick decimal.Decimal) (leave.AnnualPolicy, error) {
	if casual.IsNegative() {
		return leave.AnnualPolicy{}, fmt.Errorf("%w: casual_leave must not be negative", ErrInvalidPolicy)
	}
	if sick.IsNegative() {
		return leave.AnnualPolicy{}, fmt.Errorf("%w: sick_leave must not be negative", ErrInvalidPolicy)
	}
	return leave.AnnualPolicy{AnnualCasualLeave: casual, AnnualSickLeave: sick}, nil
}

func parseDays(name, raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidPolicy, name, raw)
	}
	return d, nil
}
