// internal/models/core.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"era-intake/internal/common/validation"
)

// Section names of the core record, in wizard order.
const (
	SectionApplicant   = "applicant"
	SectionHousing     = "housing"
	SectionHousehold   = "household"
	SectionEligibility = "eligibility"
)

var Sections = []string{SectionApplicant, SectionHousing, SectionHousehold, SectionEligibility}

// Core is the fixed-shape applicant intake. A nil section has not been saved yet.
type Core struct {
	Applicant   *Applicant   `json:"applicant,omitempty"`
	Housing     *Housing     `json:"housing,omitempty"`
	Household   *Household   `json:"household,omitempty"`
	Eligibility *Eligibility `json:"eligibility,omitempty"`
}

type Applicant struct {
	FirstName string `json:"firstName" validate:"notblank"`
	LastName  string `json:"lastName" validate:"notblank"`
	DOB       string `json:"dob" validate:"notblank"`
	Phone     string `json:"phone" validate:"min=7"`
	Email     string `json:"email" validate:"required,email"`
	Language  string `json:"language,omitempty"`
}

type Housing struct {
	Address1      string  `json:"address1" validate:"notblank"`
	Address2      string  `json:"address2,omitempty"`
	City          string  `json:"city" validate:"notblank"`
	State         string  `json:"state" validate:"len=2"`
	Zip           string  `json:"zip" validate:"min=5"`
	MonthlyRent   *Number `json:"monthlyRent" validate:"required,gte=0"`
	MonthsBehind  *Number `json:"monthsBehind" validate:"required,gte=0"`
	LandlordName  string  `json:"landlordName,omitempty"`
	LandlordPhone string  `json:"landlordPhone,omitempty"`
}

type Household struct {
	Size    Number            `json:"size" validate:"gte=1"`
	Members []HouseholdMember `json:"members,omitempty" validate:"omitempty,dive"`
}

type HouseholdMember struct {
	Relation   string `json:"relation"`
	AgeRange   string `json:"ageRange"`
	IncomeBand string `json:"incomeBand"`
}

// Eligibility carries the hardship attestation; it only passes when Hardship is true.
type Eligibility struct {
	Hardship       bool   `json:"hardship" validate:"eq=true"`
	TypedSignature string `json:"typedSignature" validate:"notblank"`
	SignedAtISO    string `json:"signedAtISO" validate:"notblank"`
}

// Number accepts both JSON numbers and numeric strings, as form inputs post them.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("not a number: %q", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// NewNumber returns a pointer to f, for optional-presence fields.
func NewNumber(f float64) *Number {
	n := Number(f)
	return &n
}

// Float returns the value, or zero when n was never set.
func (n *Number) Float() float64 {
	if n == nil {
		return 0
	}
	return float64(*n)
}

// TotalRentOwed is derived on demand and never persisted.
func (h *Housing) TotalRentOwed() float64 {
	if h == nil {
		return 0
	}
	return h.MonthlyRent.Float() * h.MonthsBehind.Float()
}

// TotalRentOwed returns zero until housing has been saved.
func (c *Core) TotalRentOwed() float64 {
	if c == nil {
		return 0
	}
	return c.Housing.TotalRentOwed()
}

// Section returns the named section value, or nil when absent or unknown.
func (c *Core) Section(name string) interface{} {
	if c == nil {
		return nil
	}
	switch name {
	case SectionApplicant:
		if c.Applicant != nil {
			return c.Applicant
		}
	case SectionHousing:
		if c.Housing != nil {
			return c.Housing
		}
	case SectionHousehold:
		if c.Household != nil {
			return c.Household
		}
	case SectionEligibility:
		if c.Eligibility != nil {
			return c.Eligibility
		}
	}
	return nil
}

// NewSection returns a zero value to decode the named section into.
func NewSection(name string) (interface{}, bool) {
	switch name {
	case SectionApplicant:
		return &Applicant{}, true
	case SectionHousing:
		return &Housing{}, true
	case SectionHousehold:
		return &Household{}, true
	case SectionEligibility:
		return &Eligibility{}, true
	}
	return nil, false
}

// ValidateSection checks one section on its own.
func ValidateSection(section interface{}) *validation.ValidationResult {
	return validation.ValidateStruct(section)
}

// IncompleteSections lists sections that are missing or invalid, in wizard order.
func (c *Core) IncompleteSections() []string {
	res := c.Validate()
	var out []string
	for _, name := range Sections {
		if len(res.GetErrorsForField(name)) > 0 {
			out = append(out, name)
		}
	}
	return out
}

// Complete reports whether all four sections are present and individually valid.
func (c *Core) Complete() bool {
	return len(c.IncompleteSections()) == 0
}

// Validate runs the combined record checks; missing sections are reported as required.
func (c *Core) Validate() *validation.ValidationResult {
	out := &validation.ValidationResult{Valid: true}
	for _, name := range Sections {
		s := c.Section(name)
		if s == nil {
			out.Valid = false
			out.Errors = append(out.Errors, validation.ValidationError{
				Field: name, Message: "is required", Code: "REQUIRED_FIELD_MISSING",
			})
			continue
		}
		res := ValidateSection(s)
		if res.Valid {
			continue
		}
		out.Valid = false
		for _, e := range res.Errors {
			e.Field = name + "." + e.Field
			out.Errors = append(out.Errors, e)
		}
	}
	return out
}
