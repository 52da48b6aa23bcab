package i18n

import "testing"

func TestMatch(t *testing.T) {
	tests := map[string]string{
		"":            "en",
		"en":          "en",
		"en-US":       "en",
		"zh":          "zh_CN",
		"zh_CN":       "zh_CN",
		"zh_CN.UTF-8": "zh_CN",
		"C":           "en",
		"not a tag!":  "en",
	}
	for pref, want := range tests {
		if got := Match(pref); got != want {
			t.Errorf("Match(%q) = %q, want %q", pref, got, want)
		}
	}
}

func TestNewUsesFirstSetPreference(t *testing.T) {
	l := MustNew("", "zh_CN", "en")
	if l.Language() != "zh_CN" {
		t.Fatalf("language = %q", l.Language())
	}
	if MustNew().Language() != "en" {
		t.Fatal("expected English default")
	}
}

func TestMessageLookup(t *testing.T) {
	zh := MustNew("zh_CN")
	if got := zh.Message("requestSentSuccess"); got != "请求发送成功" {
		t.Errorf("zh message = %q", got)
	}
	// Missing from zh_CN, present in English
	if got := zh.Message("noRequests"); got != MustNew("en").Message("noRequests") {
		t.Errorf("fallback = %q", got)
	}
	if got := zh.Message("doesNotExist"); got != "doesNotExist" {
		t.Errorf("unknown key = %q", got)
	}
}

func TestMessageSubstitutions(t *testing.T) {
	en := MustNew("en")
	if got := en.Message("requestSummary", "Echo", "200 OK"); got != "Echo: 200 OK" {
		t.Errorf("got %q", got)
	}
	if got := en.Message("enterValue", "id"); got != "Enter value for id" {
		t.Errorf("got %q", got)
	}
	if got := en.Message("requestSummary", "Echo"); got != "Echo: " {
		t.Errorf("missing substitution = %q", got)
	}
}

func TestLocalizersAreIndependent(t *testing.T) {
	en := MustNew("en")
	zh := MustNew("zh")
	if en.Message("success") == zh.Message("success") {
		t.Fatal("localizers share state")
	}
}
