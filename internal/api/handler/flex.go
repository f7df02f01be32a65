package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// optFloat is an optional number that also accepts numeric strings, since
// rows parsed from CSV in the browser arrive as text. null and "" mean unset.
type optFloat struct {
	Value float64
	Set   bool
}

func (f *optFloat) UnmarshalJSON(b []byte) error {
	*f = optFloat{}
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := parseNumber(s)
		if err != nil {
			return err
		}
		f.Value, f.Set = v, true
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("expected a number, got %s", b)
	}
	f.Value, f.Set = v, true
	return nil
}

func (f optFloat) ptr() *float64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// optBool is an optional boolean that also accepts the usual string spellings.
type optBool struct {
	Value bool
	Set   bool
}

func (o *optBool) UnmarshalJSON(b []byte) error {
	*o = optBool{}
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		o.Value, o.Set = v, true
	case float64:
		if v != 0 && v != 1 {
			return fmt.Errorf("expected a boolean, got %s", b)
		}
		o.Value, o.Set = v == 1, true
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parsed, err := parseBool(v)
		if err != nil {
			return err
		}
		o.Value, o.Set = parsed, true
	default:
		return fmt.Errorf("expected a boolean, got %s", b)
	}
	return nil
}

func (o optBool) ptr() *bool {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

// parseNumber accepts plain decimal numbers, with a decimal comma as well.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", s)
}

// registerFlexTypes lets validator tags such as required and gte see through
// the optional wrappers. Values are handed over as pointers so that an
// explicit 0 or false still counts as present for required.
func registerFlexTypes(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if f, ok := field.Interface().(optFloat); ok && f.Set {
			return f.ptr()
		}
		return nil
	}, optFloat{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if o, ok := field.Interface().(optBool); ok && o.Set {
			return o.ptr()
		}
		return nil
	}, optBool{})
}
