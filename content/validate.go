package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/danielhkuo/rinkside/models"
)

var (
	validate  = validator.New()
	sanitizer = bluemonday.StrictPolicy()
)

const maxSanitizePasses = 4

// Keys the API returns but never accepts from a client.
var systemKeys = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"published_at": true,
	"archived_at":  true,
}

// ValidationError maps field names to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msg := keys[0] + " " + e.Fields[keys[0]]
	if len(keys) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(keys)-1)
	}
	return msg
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid builds a single-field validation error.
func Invalid(field, msg string) error {
	e := &ValidationError{}
	e.add(field, msg)
	return e
}

// ValidStatus reports whether s is a lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case models.StatusDraft, models.StatusPublished, models.StatusArchived:
		return true
	}
	return false
}

// Normalize checks input against the kind's fields and returns a record
// ready to store. With partial set, required fields may be absent but not
// blank. A "status" key is kept for lifecycle kinds.
func (k *Kind) Normalize(input map[string]any, partial bool) (Record, error) {
	verr := &ValidationError{}
	out := Record{}

	for key := range input {
		if systemKeys[key] {
			continue
		}
		if key == "status" && k.Lifecycle {
			continue
		}
		if _, ok := k.Field(key); !ok {
			verr.add(key, "is not a field of "+k.Name)
		}
	}

	if raw, ok := input["status"]; ok && k.Lifecycle {
		status, isString := raw.(string)
		if !isString || !ValidStatus(status) {
			verr.add("status", "must be one of draft, published, archived")
		} else {
			out["status"] = status
		}
	}

	for _, f := range k.Fields {
		raw, present := input[f.Name]
		if !present {
			if f.Required && !partial {
				verr.add(f.Name, "is required")
			}
			continue
		}

		v, err := coerce(f, raw)
		if err != nil {
			verr.add(f.Name, err.Error())
			continue
		}
		if v == nil {
			switch {
			case f.Required:
				verr.add(f.Name, "is required")
			case !f.Managed:
				out[f.Name] = nil
			}
			continue
		}

		if f.Rules != "" {
			if err := validate.Var(v, f.Rules); err != nil {
				verr.add(f.Name, ruleMessage(err))
				continue
			}
		}
		out[f.Name] = v
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// coerce converts a decoded JSON value to the field's Go type. A nil
// result means "no value": null, or a string that is blank once cleaned.
func coerce(f Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Type {
	case Text:
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case json.Number:
			s = v.String()
		default:
			return nil, errors.New("must be a string")
		}
		if f.Sanitize {
			s = Sanitize(s)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		return s, nil

	case Boolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, errors.New("must be true or false")
			}
			return b, nil
		}
		return nil, errors.New("must be true or false")

	case JSON:
		switch v := raw.(type) {
		case []any, map[string]any:
			return v, nil
		case string:
			// Generated output sometimes encodes arrays as strings.
			var decoded []any
			if err := json.Unmarshal([]byte(v), &decoded); err != nil {
				return nil, errors.New("must be a JSON array or object")
			}
			return decoded, nil
		}
		return nil, errors.New("must be a JSON array or object")
	}
	return nil, fmt.Errorf("has unsupported type %s", f.Type)
}

// Sanitize strips markup from free text and stores plain characters, not
// entities. Unescaping can expose markup that was entity-encoded in the
// input, so the two steps repeat until the text stops changing.
func Sanitize(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		out := html.UnescapeString(sanitizer.Sanitize(s))
		if out == s {
			return out
		}
		s = out
	}
	// Still changing: keep bluemonday's escaped form.
	return sanitizer.Sanitize(s)
}

func ruleMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
		}
		return "must satisfy " + fe.Tag()
	}
	return err.Error()
}
