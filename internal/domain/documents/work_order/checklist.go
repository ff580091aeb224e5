package work_order

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"taller/internal/core/apperror"
)

// Condition is the inspection result of one component at intake.
type Condition int

const (
	ConditionUnset Condition = iota
	ConditionOK
	ConditionDefective
	ConditionNotApplicable
)

var conditionNames = map[Condition]string{
	ConditionUnset:         "unset",
	ConditionOK:            "ok",
	ConditionDefective:     "defective",
	ConditionNotApplicable: "not_applicable",
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Condition(%d)", int(c))
}

// MarshalJSON writes true, false or null. Unset values are dropped by
// Checklist before they reach here.
func (c Condition) MarshalJSON() ([]byte, error) {
	switch c {
	case ConditionOK:
		return []byte("true"), nil
	case ConditionDefective:
		return []byte("false"), nil
	case ConditionNotApplicable:
		return []byte("null"), nil
	}
	return nil, fmt.Errorf("condition %s has no wire form", c)
}

// UnmarshalJSON accepts true, false, null and the condition names.
func (c *Condition) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*c = ConditionOK
		return nil
	case "false":
		*c = ConditionDefective
		return nil
	case "null":
		*c = ConditionNotApplicable
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("invalid checklist condition %s", data)
	}
	parsed, ok := ParseCondition(name)
	if !ok {
		return fmt.Errorf("invalid checklist condition %q", name)
	}
	*c = parsed
	return nil
}

func ParseCondition(s string) (Condition, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range conditionNames {
		if name == s {
			return c, true
		}
	}
	return ConditionUnset, false
}

// MaxFuelLevel is a full tank; levels are quarters.
const MaxFuelLevel = 4

// Checklist is the intake inspection. It is replaced wholesale on save.
type Checklist struct {
	Items        map[string]Condition
	FuelLevel    *int
	Observations string
}

// checklistWire keeps component keys flat next to fuel_level and
// observations, the shape stored in checklist_in.
type checklistWire map[string]json.RawMessage

const (
	keyFuelLevel    = "fuel_level"
	keyObservations = "observations"
)

func (c Checklist) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Items)+2)
	for k, v := range c.Items {
		if v == ConditionUnset {
			continue
		}
		out[k] = v
	}
	if c.FuelLevel != nil {
		out[keyFuelLevel] = *c.FuelLevel
	}
	if c.Observations != "" {
		out[keyObservations] = c.Observations
	}
	return json.Marshal(out)
}

func (c *Checklist) UnmarshalJSON(data []byte) error {
	var raw checklistWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := Checklist{Items: make(map[string]Condition, len(raw))}
	for k, v := range raw {
		switch k {
		case keyFuelLevel:
			if string(bytes.TrimSpace(v)) == "null" {
				continue
			}
			var lvl int
			if err := json.Unmarshal(v, &lvl); err != nil {
				return fmt.Errorf("fuel_level: %w", err)
			}
			parsed.FuelLevel = &lvl
		case keyObservations:
			if err := json.Unmarshal(v, &parsed.Observations); err != nil {
				return fmt.Errorf("observations: %w", err)
			}
		default:
			var cond Condition
			if err := cond.UnmarshalJSON(v); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			parsed.Items[k] = cond
		}
	}
	*c = parsed
	return nil
}

// Scan reads the jsonb column.
func (c *Checklist) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Checklist{}
		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("checklist: unsupported scan type %T", src)
}

func (c Checklist) Value() (driver.Value, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// IsEmpty reports a checklist nobody filled in yet ("not completed").
func (c Checklist) IsEmpty() bool {
	if c.FuelLevel != nil || strings.TrimSpace(c.Observations) != "" {
		return false
	}
	for _, v := range c.Items {
		if v != ConditionUnset {
			return false
		}
	}
	return true
}

// Defects lists components marked defective, sorted.
func (c Checklist) Defects() []string {
	var out []string
	for k, v := range c.Items {
		if v == ConditionDefective {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (c Checklist) Validate() error {
	if c.FuelLevel != nil && (*c.FuelLevel < 0 || *c.FuelLevel > MaxFuelLevel) {
		return apperror.NewValidation("fuel level must be between 0 and 4").
			WithDetail("field", keyFuelLevel).
			WithDetail("value", *c.FuelLevel)
	}
	for k, v := range c.Items {
		if strings.TrimSpace(k) == "" {
			return apperror.NewValidation("checklist component name is empty")
		}
		if _, ok := conditionNames[v]; !ok {
			return apperror.NewValidation("invalid checklist condition").
				WithDetail("field", k)
		}
	}
	return nil
}
