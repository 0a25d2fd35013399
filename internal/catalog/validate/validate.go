// Package validate decodifica e valida corpos JSON contra o esquema de cada entidade.
//
// Campos fora do esquema e os campos de controle (id, createdAt, updatedAt) são
// descartados; falhas são devolvidas como *Error, no formato achatado
// {formErrors, fieldErrors}.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/radieske/palpitei-api/internal/catalog/model"
)

var (
	// ErrMalformedBody indica corpo que não é JSON válido
	ErrMalformedBody = errors.New("malformed json body")
	// ErrInvalidBody indica corpo de operação em lote que não é array nem {items: [...]}
	ErrInvalidBody = errors.New("body is not array-shaped")
)

// Error é a falha de validação achatada
type Error struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func (e *Error) Error() string {
	parts := append([]string(nil), e.FormErrors...)
	for field, msgs := range e.FieldErrors {
		parts = append(parts, field+": "+strings.Join(msgs, ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newError() *Error {
	return &Error{FormErrors: []string{}, FieldErrors: map[string][]string{}}
}

func (e *Error) addField(field, msg string) {
	if field == "" {
		e.FormErrors = append(e.FormErrors, msg)
		return
	}
	e.FieldErrors[field] = append(e.FieldErrors[field], msg)
}

var (
	full  = newValidator("validate")
	patch = newValidator("patch")
)

func newValidator(tag string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(tag)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Entity decodifica um registro; partial torna todos os campos opcionais
func Entity[T model.Entity[T]](body []byte, partial bool) (T, error) {
	var out T
	if err := expectObject(body); err != nil {
		return out, err
	}
	body, err := exactKeys(body, reflect.TypeOf(out))
	if err != nil {
		return out, ErrMalformedBody
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, decodeError(err)
	}
	out = strip(out)

	v := full
	if partial {
		v = patch
	}
	if err := v.Struct(out); err != nil {
		return out, flatten(err)
	}
	return out, nil
}

// Ingest decodifica o payload composto de /api/ingest
func Ingest(body []byte) (model.IngestPayload, error) {
	var p model.IngestPayload
	if err := expectObject(body); err != nil {
		return p, err
	}
	body, err := exactKeys(body, reflect.TypeOf(p))
	if err != nil {
		return p, ErrMalformedBody
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, decodeError(err)
	}
	p.Teams = stripAll(p.Teams)
	p.Championships = stripAll(p.Championships)
	p.Games = stripAll(p.Games)
	p.Markets = stripAll(p.Markets)

	if err := full.Struct(p); err != nil {
		return p, flatten(err)
	}
	return p, nil
}

// MarketBatch aceita um array de mercados ou {items: [...]}
// Cada item é validado isoladamente; o primeiro inválido aborta
func MarketBatch(body []byte) ([]model.Market, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrInvalidBody
	}
	if !json.Valid(body) {
		return nil, ErrMalformedBody
	}

	raw := body
	if body[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, ErrInvalidBody
		}
		raw = bytes.TrimSpace(wrapper["items"])
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, ErrInvalidBody
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, ErrInvalidBody
	}

	out := make([]model.Market, 0, len(items))
	for _, item := range items {
		m, err := Entity[model.Market](item, false)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// exactKeys descarta, em todos os níveis, chaves de objeto que não coincidem
// exatamente com uma tag json de t. encoding/json aceitaria "NAME" para "name".
func exactKeys(body []byte, t reflect.Type) ([]byte, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return body, nil
	}

	switch {
	case t.Kind() == reflect.Struct && body[0] == '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, err
		}
		fields := jsonFields(t)
		for k, v := range obj {
			ft, ok := fields[k]
			if !ok {
				delete(obj, k)
				continue
			}
			clean, err := exactKeys(v, ft)
			if err != nil {
				return nil, err
			}
			obj[k] = clean
		}
		return json.Marshal(obj)

	case t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 && body[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		for i, item := range items {
			clean, err := exactKeys(item, t.Elem())
			if err != nil {
				return nil, err
			}
			items[i] = clean
		}
		return json.Marshal(items)
	}
	return body, nil
}

// jsonFields mapeia nome json => tipo, incluindo campos de structs embutidas
func jsonFields(t reflect.Type) map[string]reflect.Type {
	out := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			for k, v := range jsonFields(f.Type) {
				out[k] = v
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		out[name] = f.Type
	}
	return out
}

// expectObject trata corpo ausente e tipos diferentes de objeto como falha de formulário
func expectObject(body []byte) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		e := newError()
		e.addField("", "Required")
		return e
	}
	if !json.Valid(body) {
		return ErrMalformedBody
	}
	if body[0] != '{' {
		e := newError()
		e.addField("", "Expected object, received "+jsonKind(body))
		return e
	}
	return nil
}

func jsonKind(b []byte) string {
	switch b[0] {
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	case '{':
		return "object"
	}
	return "number"
}

func decodeError(err error) error {
	var te *json.UnmarshalTypeError
	if !errors.As(err, &te) {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	e := newError()
	field := strings.SplitN(te.Field, ".", 2)[0]
	e.addField(field, typeMessage(te))
	return e
}

func typeMessage(te *json.UnmarshalTypeError) string {
	received := te.Value
	if strings.HasPrefix(received, "number") {
		received = "number"
	}
	t := te.Type
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var expected string
	switch t.Kind() {
	case reflect.String:
		expected = "string"
	case reflect.Bool:
		expected = "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if received == "number" {
			return "Expected integer, received float"
		}
		expected = "number"
	case reflect.Float32, reflect.Float64:
		expected = "number"
	case reflect.Slice, reflect.Array:
		expected = "array"
	default:
		expected = "object"
	}
	return fmt.Sprintf("Expected %s, received %s", expected, received)
}

func flatten(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	e := newError()
	for _, fe := range ve {
		e.addField(topLevelField(fe.Namespace()), message(fe))
	}
	return e
}

// topLevelField reduz "IngestPayload.teams[0].Meta.externalId" a "teams"
func topLevelField(ns string) string {
	segments := strings.Split(ns, ".")
	if len(segments) > 0 {
		segments = segments[1:]
	}
	for _, s := range segments {
		if s == "Meta" {
			continue
		}
		if i := strings.IndexByte(s, '['); i >= 0 {
			s = s[:i]
		}
		return s
	}
	return ""
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "url":
		return "Invalid url"
	case "datetime":
		return "Invalid datetime"
	case "oneof":
		opts := strings.Fields(fe.Param())
		for i, o := range opts {
			opts[i] = "'" + o + "'"
		}
		return "Invalid enum value. Expected " + strings.Join(opts, " | ")
	case "gt":
		return "Number must be greater than " + fe.Param()
	case "gte":
		return "Number must be greater than or equal to " + fe.Param()
	}
	return fmt.Sprintf("Invalid input (%s)", fe.Tag())
}

func strip[T model.Entity[T]](v T) T {
	return v.WithMeta(model.Meta{ExternalID: v.GetMeta().ExternalID})
}

func stripAll[T model.Entity[T]](items []T) []T {
	for i := range items {
		items[i] = strip(items[i])
	}
	return items
}
