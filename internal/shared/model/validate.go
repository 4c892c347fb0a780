package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate 并发安全，进程内共享
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息中使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

// checkVar 单字段校验，field 用于错误信息
func checkVar(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return toValidationError(err, field)
	}
	return nil
}

// checkStruct 按 validate tag 校验结构体
func checkStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return toValidationError(err, "")
	}
	return nil
}

func toValidationError(err error, field string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: field, Message: err.Error()}
	}
	fe := verrs[0]
	if field == "" {
		field = fe.Field()
	}
	return &ValidationError{Field: field, Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	unit := "characters"
	switch fe.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = "items"
	}
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return fmt.Sprintf("must have at least %s %s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("must have at most %s %s", fe.Param(), unit)
	case "email":
		return "value is not a valid email address"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// DecodeStrict 解码 JSON 请求体，拒绝未知字段
func DecodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}
