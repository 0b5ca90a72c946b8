package httpx

import (
	"io"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// DecodeValid reads a JSON body into v and checks its validate tags.
func DecodeValid(body io.Reader, v any) error {
	err := render.DecodeJSON(body, v)
	if err != nil {
		return err
	}
	return validate.Struct(v)
}
