package http

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// BodyToQuery turns a GET/HEAD body into query parameters. JSON objects
// become key=value pairs in document order, nested values are sent as
// compact JSON. Anything else is sent as a single text= parameter.
func BodyToQuery(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ""
	}

	if gjson.Valid(trimmed) {
		parsed := gjson.Parse(trimmed)
		if parsed.IsObject() || parsed.IsArray() {
			var parts []string
			index := 0
			parsed.ForEach(func(key, value gjson.Result) bool {
				name := key.String()
				if parsed.IsArray() {
					name = strconv.Itoa(index)
				}
				index++
				parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(paramValue(value)))
				return true
			})
			return strings.Join(parts, "&")
		}
	}

	return "text=" + url.QueryEscape(body)
}

// AppendQuery adds an encoded query to rawURL, before any fragment
func AppendQuery(rawURL, query string) string {
	if query == "" {
		return rawURL
	}

	fragment := ""
	if idx := strings.Index(rawURL, "#"); idx != -1 {
		rawURL, fragment = rawURL[:idx], rawURL[idx:]
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + query + fragment
}

func paramValue(v gjson.Result) string {
	switch {
	case v.IsObject(), v.IsArray():
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return v.Raw
		}
		return buf.String()
	case v.Type == gjson.Null:
		return "null"
	default:
		return v.String()
	}
}
