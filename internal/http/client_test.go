package http

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"reqsender/internal/model"
)

type captured struct {
	method      string
	query       string
	body        string
	contentType string
	auth        string
}

func newServer(t *testing.T, got *captured, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if got != nil {
			*got = captured{
				method:      r.Method,
				query:       r.URL.RawQuery,
				body:        string(b),
				contentType: r.Header.Get("Content-Type"),
				auth:        r.Header.Get("Authorization"),
			}
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatchJSONSuccess(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Trace", "abc")
		w.Write([]byte(`{"ok":true}`))
	})

	res := NewClient(Options{}).Dispatch(context.Background(), model.ConcreteRequest{Method: "GET", URL: srv.URL})
	if !res.Success || res.Status != 200 {
		t.Fatalf("unexpected result %+v", res)
	}
	if string(res.Response) != `{"ok":true}` || !res.ResponseIsJSON() {
		t.Fatalf("response = %s", res.Response)
	}
	if res.ResponseHeaders["X-Trace"] != "abc" {
		t.Fatalf("headers = %v", res.ResponseHeaders)
	}
	if res.Error != "" {
		t.Fatalf("unexpected error %q", res.Error)
	}
}

func TestDispatchHTTPFailure(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Reason", "missing")
		http.Error(w, "nope", http.StatusNotFound)
	})

	res := NewClient(Options{}).Dispatch(context.Background(), model.ConcreteRequest{Method: "POST", URL: srv.URL, Body: "x"})
	if res.Success || res.Status != 404 || res.Error != "404 Not Found" || res.StatusText != "Not Found" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ResponseHeaders["X-Reason"] != "missing" {
		t.Fatalf("headers not captured on failure: %v", res.ResponseHeaders)
	}
	if got := res.ResponseText(); got != "nope\n" {
		t.Fatalf("response = %q", got)
	}
}

func TestDispatchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewClient(Options{}).Dispatch(context.Background(), model.ConcreteRequest{Method: "GET", URL: url})
	if res.Success || res.Status != 0 || res.StatusText != NetworkErrorText || res.Error == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDispatchBodyAndContentType(t *testing.T) {
	var got captured
	srv := newServer(t, &got, func(w http.ResponseWriter, r *http.Request) {})

	req := model.ConcreteRequest{
		Method:      "POST",
		URL:         srv.URL,
		Headers:     map[string]string{"Authorization": "Bearer t"},
		Body:        `{"a":1}`,
		ContentType: model.ContentTypeJSON,
	}
	res := NewClient(Options{}).Dispatch(context.Background(), req)
	if !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	if got.body != `{"a":1}` || got.contentType != model.ContentTypeJSON || got.auth != "Bearer t" {
		t.Fatalf("server saw %+v", got)
	}

	req.Headers["Content-Type"] = "text/plain"
	NewClient(Options{}).Dispatch(context.Background(), req)
	if got.contentType != "text/plain" {
		t.Fatalf("explicit Content-Type overridden: %q", got.contentType)
	}
}

func TestDispatchGetNeverSendsBody(t *testing.T) {
	for _, method := range []string{"GET", "HEAD"} {
		t.Run(method, func(t *testing.T) {
			var got captured
			srv := newServer(t, &got, func(w http.ResponseWriter, r *http.Request) {})

			req := model.ConcreteRequest{Method: method, URL: srv.URL + "/x?a=1", Body: `{"q":"hello world","n":{"k":[1, 2]}}`}
			NewClient(Options{QueryFromBody: true}).Dispatch(context.Background(), req)
			if got.body != "" {
				t.Fatalf("%s transmitted body %q", method, got.body)
			}
			if got.query != "a=1&q=hello+world&n=%7B%22k%22%3A%5B1%2C2%5D%7D" {
				t.Fatalf("query = %q", got.query)
			}

			NewClient(Options{}).Dispatch(context.Background(), req)
			if got.body != "" || got.query != "a=1" {
				t.Fatalf("body leaked without query mode: %+v", got)
			}
		})
	}
}

func TestDispatchDecodesCompressedBodies(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		switch r.URL.Path {
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			bw := brotli.NewWriter(w)
			bw.Write([]byte("brotli body"))
			bw.Close()
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			gw := gzip.NewWriter(w)
			gw.Write([]byte("gzip body"))
			gw.Close()
		}
	})

	client := NewClient(Options{})
	for path, want := range map[string]string{"/br": "brotli body", "/gzip": "gzip body"} {
		res := client.Dispatch(context.Background(), model.ConcreteRequest{Method: "GET", URL: srv.URL + path})
		if got := res.ResponseText(); got != want {
			t.Errorf("%s: response = %q, want %q", path, got, want)
		}
	}
}

func TestDispatchInvalidJSONFallsBackToText(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{broken`))
	})

	res := NewClient(Options{}).Dispatch(context.Background(), model.ConcreteRequest{Method: "GET", URL: srv.URL})
	if res.ResponseIsJSON() || res.ResponseText() != "{broken" {
		t.Fatalf("response = %s", res.Response)
	}
}

func TestDispatchTruncatesLargeBodies(t *testing.T) {
	srv := newServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 64)))
	})

	res := NewClient(Options{MaxResponseSize: 10}).Dispatch(context.Background(), model.ConcreteRequest{Method: "GET", URL: srv.URL})
	if got := res.ResponseText(); got != strings.Repeat("a", 10) {
		t.Fatalf("response = %q", got)
	}
}

func TestBodyToQuery(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"a":"x y","b":2.50,"c":null,"d":true}`, "a=x+y&b=2.5&c=null&d=true"},
		{`["p","q"]`, "0=p&1=q"},
		{"plain text", "text=plain+text"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := BodyToQuery(tt.body); got != tt.want {
			t.Errorf("BodyToQuery(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestAppendQuery(t *testing.T) {
	if got := AppendQuery("https://x/p", "a=1"); got != "https://x/p?a=1" {
		t.Fatalf("got %q", got)
	}
	if got := AppendQuery("https://x/p?z=0#frag", "a=1"); got != "https://x/p?z=0&a=1#frag" {
		t.Fatalf("got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://api.example.com/42", false},
		{"", true},
		{"ftp://example.com", true},
		{"https://", true},
		{"http://169.254.169.254/latest/meta-data", true},
	}
	for _, tt := range tests {
		err := Validate(model.ConcreteRequest{URL: tt.url})
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}
