package hltv

import (
	"errors"
	"testing"
)

func TestThreadKeyFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.hltv.org/forums/threads/2329019/whos-dumber":           "2329019/whos-dumber",
		"https://www.hltv.org/forums/threads/2329019/whos-dumber#r43857044": "2329019/whos-dumber",
		"/forums/threads/2329019/whos-dumber/":                              "2329019/whos-dumber",
	}
	for in, want := range cases {
		got, err := ThreadKeyFromURL(in)
		if err != nil {
			t.Errorf("ThreadKeyFromURL(%q): unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ThreadKeyFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProfileKeyFromURL(t *testing.T) {
	got, err := ProfileKeyFromURL("https://www.hltv.org/profile/766189/nabaski")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "766189/nabaski" {
		t.Errorf("expected '766189/nabaski', got %q", got)
	}
}

func TestForumKeyFromURL(t *testing.T) {
	got, err := ForumKeyFromURL("https://www.hltv.org/forums/17/off-topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "17/off-topic" {
		t.Errorf("expected '17/off-topic', got %q", got)
	}
}

func TestMalformedURLs(t *testing.T) {
	bad := []string{
		"https://www.hltv.org/forums/threads/whos-dumber",
		"https://www.hltv.org/forums/threads/abc/whos-dumber",
		"https://www.hltv.org/news/2329019/whos-dumber",
		"https://www.hltv.org/forums/threads/2329019/whos-dumber/extra",
		"",
	}
	for _, in := range bad {
		if _, err := ThreadKeyFromURL(in); !errors.Is(err, ErrMalformedKey) {
			t.Errorf("ThreadKeyFromURL(%q): expected ErrMalformedKey, got %v", in, err)
		}
	}

	if _, err := ProfileKeyFromURL("https://www.hltv.org/forums/threads/1/x"); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("expected ErrMalformedKey for thread URL parsed as profile, got %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	if err := ValidateKey("17/off-topic"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, k := range []string{"ECC-Discord", "17/", "/off-topic", "x/off-topic", "17/off#topic"} {
		if err := ValidateKey(k); err == nil {
			t.Errorf("expected error for %q", k)
		}
	}
}

func TestPostKey(t *testing.T) {
	if got := PostKey("2329019/whos-dumber", ""); got != "2329019/whos-dumber" {
		t.Errorf("root post key: got %q", got)
	}
	if got := PostKey("2329019/whos-dumber", "r43857044"); got != "2329019/whos-dumber#r43857044" {
		t.Errorf("reply post key: got %q", got)
	}
}

func TestURLBuilders(t *testing.T) {
	if got := ForumURL(BaseURL, "17/off-topic"); got != "https://www.hltv.org/forums/17/off-topic" {
		t.Errorf("ForumURL: got %q", got)
	}
	if got := ThreadURL(BaseURL+"/", "2329019/whos-dumber"); got != "https://www.hltv.org/forums/threads/2329019/whos-dumber" {
		t.Errorf("ThreadURL: got %q", got)
	}
	if got := ProfileURL(BaseURL, "766189/nabaski"); got != "https://www.hltv.org/profile/766189/nabaski" {
		t.Errorf("ProfileURL: got %q", got)
	}
}
