package templating

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type jsonFrame struct {
	object bool
	count  int
}

// rewriteJSON re-encodes doc token by token, passing every string (object
// keys included) through repl. Key order and nesting are preserved and
// replacement values are always re-escaped, so they cannot break syntax.
func rewriteJSON(doc string, repl func(string) string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()

	var buf bytes.Buffer
	var stack []jsonFrame

	separator := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		switch {
		case top.object && top.count%2 == 1:
			buf.WriteByte(':')
		case top.count > 0:
			buf.WriteByte(',')
		}
		top.count++
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				separator()
				buf.WriteByte(byte(v))
				stack = append(stack, jsonFrame{object: v == '{'})
			case '}', ']':
				if len(stack) == 0 {
					return "", fmt.Errorf("unbalanced %q in JSON document", v)
				}
				stack = stack[:len(stack)-1]
				buf.WriteByte(byte(v))
			}
		case string:
			separator()
			if err := writeJSONString(&buf, repl(v)); err != nil {
				return "", err
			}
		case json.Number:
			separator()
			buf.WriteString(v.String())
		case bool:
			separator()
			if v {
				buf.WriteString("true")
			} else {
				buf.WriteString("false")
			}
		case nil:
			separator()
			buf.WriteString("null")
		}
	}

	return buf.String(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}
