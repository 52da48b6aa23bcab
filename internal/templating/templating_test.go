package templating

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"reqsender/internal/model"
)

func tpl(url, headers, body, contentType string) model.RequestTemplate {
	t := model.RequestTemplate{ID: "t1", Name: "test", URL: url, Method: "post", ContentType: contentType}
	if headers != "" {
		t.Headers = json.RawMessage(headers)
	}
	if body != "" {
		t.Body = json.RawMessage(body)
	}
	return t
}

func TestExtractFieldsDedupesInOrder(t *testing.T) {
	got := ExtractText("{{a}} {{a}} {{b}}")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %v", got)
	}
}

func TestExtractFieldsAcrossParts(t *testing.T) {
	tmpl := tpl(
		"https://api.example.com/{{id}}?q={{ query }}",
		`{"Authorization":"Bearer {{token}}","X-Id":"{{id}}"}`,
		`{"text":"{{body}}","nested":{"k":"{{token}}"}}`,
		model.ContentTypeJSON,
	)
	got := ExtractFields(tmpl)
	want := []string{"id", "query", "token", "body"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractFieldsIgnoresBracesAndBlanks(t *testing.T) {
	got := ExtractText("{{}} {{  }} {{a{b}} {x}")
	if len(got) != 0 {
		t.Fatalf("expected no fields, got %v", got)
	}
	if HasFields(tpl("https://example.com", "", "", "")) {
		t.Fatal("plain template reported fields")
	}
}

func TestSubstituteURL(t *testing.T) {
	tmpl := tpl("https://api.example.com/{{id}}", "", "", "")
	tmpl.Method = "GET"
	req, err := Substitute(tmpl, map[string]string{"id": "42"})
	if err != nil {
		t.Fatal(err)
	}
	if req.URL != "https://api.example.com/42" {
		t.Fatalf("URL = %q", req.URL)
	}
	if req.Method != "GET" {
		t.Fatalf("Method = %q", req.Method)
	}
}

func TestSubstituteURLPercentEncodes(t *testing.T) {
	tmpl := tpl("https://example.com/search?q={{q}}", "", "", "")
	req, err := Substitute(tmpl, map[string]string{"q": "a b&c/d"})
	if err != nil {
		t.Fatal(err)
	}
	if req.URL != "https://example.com/search?q=a%20b%26c%2Fd" {
		t.Fatalf("URL = %q", req.URL)
	}

	req, err = Substitute(tmpl, map[string]string{"q": "it's (1+1)*2!~"})
	if err != nil {
		t.Fatal(err)
	}
	if req.URL != "https://example.com/search?q=it's%20(1%2B1)*2!~" {
		t.Fatalf("URL = %q", req.URL)
	}
}

func TestSubstituteTextBodyVerbatim(t *testing.T) {
	tmpl := tpl("https://example.com", "", `"{{name}} says hi"`, "text/plain")
	req, err := Substitute(tmpl, map[string]string{"name": "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if req.Body != "Bob says hi" || req.BodyIsJSON || req.Degraded {
		t.Fatalf("unexpected body result %+v", req)
	}
}

func TestSubstituteJSONBodyKeepsStructure(t *testing.T) {
	tmpl := tpl("https://example.com", "", `{"z":"{{msg}}","a":[1,"{{msg}}",true,null],"n":2.50}`, model.ContentTypeJSON)
	req, err := Substitute(tmpl, map[string]string{"msg": `he said "hi" {x} <b>`})
	if err != nil {
		t.Fatal(err)
	}
	if !req.BodyIsJSON || req.Degraded {
		t.Fatalf("expected JSON body, got %+v", req)
	}
	want := `{"z":"he said \"hi\" {x} <b>","a":[1,"he said \"hi\" {x} <b>",true,null],"n":2.50}`
	if req.Body != want {
		t.Fatalf("body = %s\nwant   %s", req.Body, want)
	}
}

func TestSubstituteJSONBodyUnquotedPlaceholder(t *testing.T) {
	tmpl := tpl("https://example.com", "", `"{\"count\": {{n}}}"`, model.ContentTypeJSON)
	req, err := Substitute(tmpl, map[string]string{"n": "3"})
	if err != nil {
		t.Fatal(err)
	}
	if !req.BodyIsJSON || req.Degraded || req.Body != `{"count": 3}` {
		t.Fatalf("unexpected result %+v", req)
	}
}

func TestSubstituteJSONBodyDegrades(t *testing.T) {
	tmpl := tpl("https://example.com", "", `"{\"count\": {{n}}}"`, model.ContentTypeJSON)
	req, err := Substitute(tmpl, map[string]string{"n": "not a number"})
	if err != nil {
		t.Fatalf("degradation must not fail: %v", err)
	}
	if !req.Degraded || req.BodyIsJSON {
		t.Fatalf("expected degraded text body, got %+v", req)
	}
	if req.Body != `{"count": not a number}` {
		t.Fatalf("body = %q", req.Body)
	}
}

func TestSubstituteHeaders(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		tmpl := tpl("https://example.com", `{"Authorization":"Bearer {{token}}","X-Retry":3}`, "", "")
		req, err := Substitute(tmpl, map[string]string{"token": "abc"})
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]string{"Authorization": "Bearer abc", "X-Retry": "3"}
		if !reflect.DeepEqual(req.Headers, want) {
			t.Fatalf("headers = %v", req.Headers)
		}
	})

	t.Run("serialized string with quotes in value", func(t *testing.T) {
		tmpl := tpl("https://example.com", `"{\"X-Note\":\"{{note}}\"}"`, "", "")
		req, err := Substitute(tmpl, map[string]string{"note": `a "quoted" value`})
		if err != nil {
			t.Fatal(err)
		}
		if req.Headers["X-Note"] != `a "quoted" value` {
			t.Fatalf("headers = %v", req.Headers)
		}
	})

	t.Run("broken after substitution", func(t *testing.T) {
		tmpl := tpl("https://example.com", `"{\"X-Count\": {{n}}}"`, "", "")
		_, err := Substitute(tmpl, map[string]string{"n": "oops"})
		if !errors.Is(err, ErrHeadersJSON) {
			t.Fatalf("expected ErrHeadersJSON, got %v", err)
		}
	})
}

func TestSubstituteExhaustsPlaceholders(t *testing.T) {
	tmpl := tpl(
		"https://api.example.com/{{id}}/{{section}}",
		`{"X-User":"{{user}}"}`,
		`{"message":"{{user}} in {{section}}","meta":{"{{key}}":"v"}}`,
		model.ContentTypeJSON,
	)
	values := map[string]string{}
	for _, f := range ExtractFields(tmpl) {
		values[f] = "v-" + f
	}
	req, err := Substitute(tmpl, values)
	if err != nil {
		t.Fatal(err)
	}
	headers, _ := json.Marshal(req.Headers)
	if left := ExtractText(req.URL, string(headers), req.Body); len(left) != 0 {
		t.Fatalf("placeholders left after substitution: %v", left)
	}
}

func TestSubstituteLeavesUnknownFields(t *testing.T) {
	tmpl := tpl("https://example.com/{{a}}/{{b}}", "", "", "")
	req, err := Substitute(tmpl, map[string]string{"a": "1"})
	if err != nil {
		t.Fatal(err)
	}
	if req.URL != "https://example.com/1/{{b}}" {
		t.Fatalf("URL = %q", req.URL)
	}
	if got := MissingFields(tmpl, map[string]string{"a": "1"}); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("MissingFields = %v", got)
	}
}

func TestSubstituteSelection(t *testing.T) {
	t.Run("target field only", func(t *testing.T) {
		tmpl := tpl("https://example.com/{{id}}", "", `{"a":"{{other}}"}`, model.ContentTypeJSON)
		req, err := SubstituteSelection(tmpl, "99", "id")
		if err != nil {
			t.Fatal(err)
		}
		if req.URL != "https://example.com/99" || req.Body != `{"a":"{{other}}"}` {
			t.Fatalf("unexpected result %+v", req)
		}
	})

	t.Run("direct json with empty body", func(t *testing.T) {
		tmpl := tpl("https://example.com", "", "", model.ContentTypeJSON)
		req, err := SubstituteSelection(tmpl, "hello", "")
		if err != nil {
			t.Fatal(err)
		}
		if req.Body != `{"selectedText":"hello"}` || !req.BodyIsJSON {
			t.Fatalf("body = %q", req.Body)
		}
	})

	t.Run("direct json with invalid body", func(t *testing.T) {
		tmpl := tpl("https://example.com", "", `"not json"`, model.ContentTypeJSON)
		req, err := SubstituteSelection(tmpl, "hello", "")
		if err != nil {
			t.Fatal(err)
		}
		if req.Body != `{"selectedText":"hello"}` || req.Degraded {
			t.Fatalf("unexpected result %+v", req)
		}
	})

	t.Run("direct json with valid body", func(t *testing.T) {
		tmpl := tpl("https://example.com", "", `{"fixed":true}`, model.ContentTypeJSON)
		req, err := SubstituteSelection(tmpl, "hello", "")
		if err != nil {
			t.Fatal(err)
		}
		if req.Body != `{"fixed":true}` {
			t.Fatalf("body = %q", req.Body)
		}
	})

	t.Run("direct text", func(t *testing.T) {
		tmpl := tpl("https://example.com", "", `"ignored"`, "text/plain")
		req, err := SubstituteSelection(tmpl, "hello", "")
		if err != nil {
			t.Fatal(err)
		}
		if req.Body != "hello" {
			t.Fatalf("body = %q", req.Body)
		}
	})
}
