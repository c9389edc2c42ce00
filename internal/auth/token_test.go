// SPDX-License-Identifier: MIT

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractTokenPriorityOrder(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.local/test", nil)
	r.Header.Set("Authorization", "Bearer bearer-token ")
	r.Header.Set("X-API-Token", "header-token")
	r.AddCookie(&http.Cookie{Name: "portald_session", Value: "session-token"})

	if got := ExtractToken(r); got != "bearer-token" {
		t.Fatalf("ExtractToken() = %q, want %q", got, "bearer-token")
	}
}

func TestExtractTokenCookieFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.local/test", nil)
	r.AddCookie(&http.Cookie{Name: "portald_session", Value: "session-token"})

	if got := ExtractToken(r); got != "session-token" {
		t.Fatalf("ExtractToken() = %q, want %q", got, "session-token")
	}
}

func TestAuthorizeToken(t *testing.T) {
	if !AuthorizeToken("secret", "secret") {
		t.Fatal("AuthorizeToken should accept exact match")
	}
	if AuthorizeToken("secret", "other") {
		t.Fatal("AuthorizeToken should reject mismatch")
	}
	if AuthorizeToken("", "secret") {
		t.Fatal("AuthorizeToken should reject empty got token")
	}
	if AuthorizeToken("secret", "") {
		t.Fatal("AuthorizeToken should reject empty expected token")
	}
}

func TestNewPrincipalStableID(t *testing.T) {
	a := NewPrincipal("tok", "", nil)
	b := NewPrincipal("tok", "", nil)
	if a.ID != b.ID {
		t.Fatalf("token-derived IDs differ: %q vs %q", a.ID, b.ID)
	}
	named := NewPrincipal("tok", "ops", []string{"admin"})
	if named.ID != "ops" {
		t.Fatalf("named principal ID = %q, want %q", named.ID, "ops")
	}
}
