package config

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Every field of Default() must carry a usable value unless explicitly
// marked nullable. Catches fields added to the struct but forgotten in
// Default().
func TestNoZeroFields(t *testing.T) {
	for _, field := range zeroFields(reflect.ValueOf(*Default()), "Config", false) {
		assert.Fail(t, "zero-value field", field)
	}
}

func zeroFields(v reflect.Value, name string, nullable bool) (fields []string) {
	if v.Kind() == reflect.Struct {
		for i := range v.NumField() {
			field := v.Type().Field(i)
			isNullable := field.Tag.Get("test") == "nullable"
			fields = append(fields, zeroFields(v.Field(i), name+"."+field.Name, isNullable)...)
		}

		return fields
	}

	if v.IsZero() && !nullable {
		return []string{name}
	}

	return nil
}
