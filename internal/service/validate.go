// Package service holds the portal's use cases.  Services sit between the
// HTTP handlers and the repositories: they validate input, apply the
// lifecycle rules, fan out realtime notifications and translate repository
// sentinels into apperr kinds.
package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct validates s and converts the first failure into an
// apperr.ValidationError.
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return apperr.Validation("", err.Error())
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation(fe.Field(), "is required")
	case "email":
		return apperr.Validation(fe.Field(), "must be a valid email address")
	case "url":
		return apperr.Validation(fe.Field(), "must be a valid URL")
	case "max":
		return apperr.Validation(fe.Field(), "is too long")
	case "min":
		return apperr.Validation(fe.Field(), "is too short")
	}
	return apperr.Validation(fe.Field(), "is invalid")
}
