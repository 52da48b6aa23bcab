package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrHeadersJSON is returned when headers are not a JSON object
var ErrHeadersJSON = errors.New("headers are not a valid JSON object")

var (
	validate = validator.New()

	placeholder = regexp.MustCompile(`\{\{[^{}]+\}\}`)
)

// Validate checks the template invariants: id, name and url present,
// method in the supported set and headers, when set, a JSON object or a
// string holding one. Method is normalized to upper case first.
func (t *RequestTemplate) Validate() error {
	t.Method = strings.ToUpper(strings.TrimSpace(t.Method))
	t.Name = strings.TrimSpace(t.Name)
	t.URL = strings.TrimSpace(t.URL)

	var msgs []string
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				msgs = append(msgs, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
			case "oneof":
				msgs = append(msgs, fmt.Sprintf("unsupported method %q", fe.Value()))
			default:
				msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
		}
	}

	if err := t.checkHeaders(); err != nil {
		if len(msgs) == 0 {
			return err
		}
		return fmt.Errorf("%s; %w", strings.Join(msgs, "; "), err)
	}
	if len(msgs) > 0 {
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// checkHeaders parses the headers with every placeholder standing in as
// a number, so both "{{token}}" inside strings and a bare {{n}} pass.
func (t *RequestTemplate) checkHeaders() error {
	text := strings.TrimSpace(t.HeadersText())
	if text == "" {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(placeholder.ReplaceAllString(text, "0")), &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrHeadersJSON, err)
	}
	if obj == nil {
		return ErrHeadersJSON
	}
	return nil
}
