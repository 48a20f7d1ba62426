package identity

import (
	"context"
	"strings"
	"testing"
)

func TestAnonymousIssuesDistinctIDs(t *testing.T) {
	a, err := Anonymous{}.SignIn(context.Background())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	b, _ := Anonymous{}.SignIn(context.Background())
	if a.ID == "" || a.ID == b.ID || len(a.ID) != 36 {
		t.Fatalf("ids %q %q", a.ID, b.ID)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Anonymous{}).SignIn(ctx); err == nil {
		t.Fatalf("expected cancelled sign-in to fail")
	}
}

func TestFixed(t *testing.T) {
	id, err := Fixed("3f2b8c1e-0000-4000-8000-000000000001").SignIn(context.Background())
	if err != nil || id.Short() != "3f2b" {
		t.Fatalf("id=%+v err=%v", id, err)
	}
	if _, err := Fixed("nope").SignIn(context.Background()); err == nil {
		t.Fatalf("expected bad id error")
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Steve  ":             "Steve",
		"Ｓｔｅｖｅ":                 "Steve",
		"a \t\n b":              "a b",
		"bad\x00name":           "badname",
		strings.Repeat("x", 40): strings.Repeat("x", MaxNameRunes),
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	id := Identity{ID: "9f3a77c2-aaaa"}
	if got := DisplayName(" Steve ", id); got != "Steve#9f3a" {
		t.Fatalf("got %q", got)
	}
	if got := DisplayName("", id); got != "Player#9f3a" {
		t.Fatalf("got %q", got)
	}
}
