package api

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rollbook/internal/calendar"
)

var registerOnce sync.Once

// registerValidators adds the month and civildate tags to gin's validator and
// reports fields by their json/uri/form names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
			_, err := calendar.ParseMonth(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("civildate", func(fl validator.FieldLevel) bool {
			_, err := calendar.ParseDate(fl.Field().String())
			return err == nil
		})
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "uri", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
