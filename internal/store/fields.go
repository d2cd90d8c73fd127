package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	perrors "github.com/abgdnv/fscatalog/internal/errors"
	"github.com/go-playground/validator/v10"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindInteger
	kindBool
)

func (k fieldKind) String() string {
	switch k {
	case kindNumber:
		return "a number"
	case kindInteger:
		return "an integer"
	case kindBool:
		return "a boolean"
	default:
		return "text"
	}
}

type fieldSpec struct {
	name     string
	kind     fieldKind
	required bool
}

// productFields lists the caller-writable fields in document order.
var productFields = []fieldSpec{
	{name: "title", kind: kindText, required: true},
	{name: "description", kind: kindText, required: true},
	{name: "code", kind: kindText, required: true},
	{name: "price", kind: kindNumber, required: true},
	{name: "status", kind: kindBool},
	{name: "stock", kind: kindInteger, required: true},
	{name: "category", kind: kindText, required: true},
	{name: "thumbnails", kind: kindText},
}

// idField is readable through predicates but never writable.
var idField = fieldSpec{name: "id", kind: kindInteger}

// maxInteger is the largest integer a decoded JSON number holds exactly.
const maxInteger = 1 << 53

func lookupField(name string) (fieldSpec, bool) {
	if name == idField.name {
		return idField, true
	}
	for _, f := range productFields {
		if f.name == name {
			return f, true
		}
	}
	return fieldSpec{}, false
}

// newValidator returns a validator reporting json field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// buildProduct checks presence, then types, then ranges, and returns the product
// described by fields. Unknown fields are rejected; a supplied id is ignored and left zero.
func buildProduct(fields Fields, placeholder string, v *validator.Validate) (Product, error) {
	if err := checkKnown(fields); err != nil {
		return Product{}, err
	}
	var missing []string
	for _, f := range productFields {
		if f.required && isAbsent(fields[f.name]) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Product{}, perrors.MissingFields(missing)
	}

	p := Product{Status: true, Thumbnails: placeholder}
	for _, f := range productFields {
		raw := fields[f.name]
		if !f.required && isAbsent(raw) {
			continue
		}
		if err := assign(&p, f, raw); err != nil {
			return Product{}, err
		}
	}
	if err := checkRanges(p, v); err != nil {
		return Product{}, err
	}
	return p, nil
}

// mergeProduct applies fields over a copy of p. Unknown fields are rejected; the id is never overwritten.
func mergeProduct(p Product, fields Fields, v *validator.Validate) (Product, error) {
	if err := checkKnown(fields); err != nil {
		return Product{}, err
	}
	for name, raw := range fields {
		if name == idField.name {
			continue
		}
		f, _ := lookupField(name)
		if err := assign(&p, f, raw); err != nil {
			return Product{}, err
		}
	}
	if err := checkRanges(p, v); err != nil {
		return Product{}, err
	}
	return p, nil
}

// checkKnown rejects fields that are not product fields, naming them in sorted order.
func checkKnown(fields Fields) error {
	var unknown []string
	for name := range fields {
		if _, ok := lookupField(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	quoted := make([]string, len(unknown))
	for i, name := range unknown {
		quoted[i] = strconv.Quote(name)
	}
	return &perrors.ValidationError{
		Fields:  unknown,
		Message: "unknown product field " + strings.Join(quoted, ", "),
	}
}

func isAbsent(raw any) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	return ok && s == ""
}

func assign(p *Product, f fieldSpec, raw any) error {
	switch f.kind {
	case kindText:
		s, ok := raw.(string)
		if !ok {
			return perrors.InvalidType(f.name, f.kind.String())
		}
		switch f.name {
		case "title":
			p.Title = s
		case "description":
			p.Description = s
		case "code":
			p.Code = s
		case "category":
			p.Category = s
		case "thumbnails":
			p.Thumbnails = s
		}
	case kindNumber:
		n, ok := toNumber(raw)
		if !ok {
			return perrors.InvalidType(f.name, f.kind.String())
		}
		p.Price = n
	case kindInteger:
		n, ok := toNumber(raw)
		if !ok || n != math.Trunc(n) {
			return perrors.InvalidType(f.name, f.kind.String())
		}
		if n < -maxInteger {
			n = -maxInteger
		}
		if n > maxInteger {
			return &perrors.ValidationError{
				Fields:  []string{f.name},
				Message: fmt.Sprintf("%s must be less than or equal to %d", f.name, maxInteger),
			}
		}
		p.Stock = int(n)
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return perrors.InvalidType(f.name, f.kind.String())
		}
		p.Status = b
	}
	return nil
}

func toNumber(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func checkRanges(p Product, v *validator.Validate) error {
	err := v.Struct(p)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate product: %w", err)
	}
	fields := make([]string, 0, len(validationErrors))
	msgs := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			msgs = append(msgs, fieldErr.Field()+" must not be empty")
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than or equal to %s", fieldErr.Field(), fieldErr.Param()))
		default:
			msgs = append(msgs, fieldErr.Field()+" failed on rule: "+fieldErr.Tag())
		}
	}
	return &perrors.ValidationError{Fields: fields, Message: strings.Join(msgs, "; ")}
}

// compilePredicate checks every constraint names a known field and coerces its
// value to the field's type. String values are parsed for non-text fields so
// that query parameters can be used directly.
func compilePredicate(predicate Predicate) (map[string]any, error) {
	if len(predicate) == 0 {
		return nil, &perrors.ValidationError{Message: "predicate must hold at least one constraint"}
	}
	out := make(map[string]any, len(predicate))
	for name, raw := range predicate {
		f, ok := lookupField(name)
		if !ok {
			return nil, &perrors.ValidationError{
				Fields:  []string{name},
				Message: fmt.Sprintf("unknown product field %q", name),
			}
		}
		v, ok := coerce(f.kind, raw)
		if !ok {
			return nil, perrors.InvalidType(name, f.kind.String())
		}
		out[name] = v
	}
	return out, nil
}

func coerce(kind fieldKind, raw any) (any, bool) {
	s, isString := raw.(string)
	switch kind {
	case kindText:
		return s, isString
	case kindBool:
		if isString {
			b, err := strconv.ParseBool(s)
			return b, err == nil
		}
		b, ok := raw.(bool)
		return b, ok
	default:
		if isString {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, false
			}
			raw = f
		}
		n, ok := toNumber(raw)
		if ok && kind == kindInteger && n != math.Trunc(n) {
			return nil, false
		}
		return n, ok
	}
}

// matches reports whether p satisfies every compiled constraint.
func (p *Product) matches(constraints map[string]any) bool {
	for name, want := range constraints {
		if p.value(name) != want {
			return false
		}
	}
	return true
}

// value returns the field in the representation produced by coerce.
func (p *Product) value(name string) any {
	switch name {
	case "id":
		return float64(p.ID)
	case "title":
		return p.Title
	case "description":
		return p.Description
	case "code":
		return p.Code
	case "price":
		return p.Price
	case "status":
		return p.Status
	case "stock":
		return float64(p.Stock)
	case "category":
		return p.Category
	case "thumbnails":
		return p.Thumbnails
	}
	return nil
}
