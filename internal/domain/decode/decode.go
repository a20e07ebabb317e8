// Package decode turns raw Oura JSON items into validated records.
//
// A struct field is required unless it is a pointer or tagged omitempty.
// Required fields must be present and non-null, checked recursively through
// nested objects. No type coercion is done beyond what encoding/json allows.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/okian/ourabridge/internal/domain/model"
)

// Decode converts one raw item into the record type for kind.
func Decode(kind model.Kind, raw json.RawMessage) (model.Record, error) {
	switch kind {
	case model.KindRing:
		return as[model.RingConfiguration](kind, raw)
	case model.KindDailyReadiness:
		return as[model.DailyReadiness](kind, raw)
	case model.KindDailyResilience:
		return as[model.DailyResilience](kind, raw)
	case model.KindDailySleep:
		return as[model.DailySleep](kind, raw)
	case model.KindDailyStress:
		return as[model.DailyStress](kind, raw)
	case model.KindHeartRate:
		return as[model.HeartRate](kind, raw)
	case model.KindDailyCardiovascularAge:
		return as[model.DailyCardiovascularAge](kind, raw)
	case model.KindPersonalInfo:
		return as[model.PersonalInfo](kind, raw)
	case model.KindDailyActivity:
		return as[model.DailyActivity](kind, raw)
	default:
		return nil, &Error{Kind: kind, Reason: "unknown record kind"}
	}
}

// Into decodes raw into rec, validating required fields first.
func Into[T model.Record](raw json.RawMessage, rec *T) error {
	return into((*rec).Kind(), raw, rec)
}

func as[T model.Record](kind model.Kind, raw json.RawMessage) (model.Record, error) {
	var rec T
	if err := into(kind, raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func into(kind model.Kind, raw json.RawMessage, dst any) error {
	t := reflect.TypeOf(dst).Elem()
	if field, reason, ok := checkRequired(t, raw, ""); !ok {
		return &Error{Kind: kind, Field: field, Reason: reason}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &Error{
				Kind:   kind,
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}
		}
		return &Error{Kind: kind, Reason: err.Error()}
	}
	return nil
}

// checkRequired walks struct type t against raw and reports the first
// required field that is missing or null.
func checkRequired(t reflect.Type, raw json.RawMessage, prefix string) (string, string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return strings.TrimSuffix(prefix, "."), "expected object", false
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, optional := jsonName(f)
		if name == "-" {
			continue
		}
		path := prefix + name

		v, present := obj[name]
		isNull := present && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
		if optional {
			continue
		}
		if !present {
			return path, "missing", false
		}
		if isNull {
			return path, "null", false
		}
		if f.Type.Kind() == reflect.Struct {
			if field, reason, ok := checkRequired(f.Type, v, path+"."); !ok {
				return field, reason, false
			}
		}
	}
	return "", "", true
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	optional := f.Type.Kind() == reflect.Pointer
	if tag == "" {
		return f.Name, optional
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			optional = true
		}
	}
	if parts[0] == "" {
		return f.Name, optional
	}
	return parts[0], optional
}
