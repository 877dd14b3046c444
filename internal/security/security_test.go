package security

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("1234")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "1234" {
		t.Fatal("HashPassword() returned the plaintext")
	}
	if !CheckPassword("1234", hash) {
		t.Error("CheckPassword() rejected the correct password")
	}
	if CheckPassword("4321", hash) {
		t.Error("CheckPassword() accepted the wrong password")
	}
}

func TestCSRFTokens(t *testing.T) {
	g := NewCSRFGenerator("test-secret")

	token, err := g.GenerateToken("session-a")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !g.ValidateToken("session-a", token) {
		t.Error("ValidateToken() rejected its own token")
	}
	if g.ValidateToken("session-b", token) {
		t.Error("ValidateToken() accepted a token bound to another session")
	}
	if g.ValidateToken("session-a", "") {
		t.Error("ValidateToken() accepted an empty token")
	}
	if _, err := g.GenerateToken(""); err == nil {
		t.Error("GenerateToken() accepted an empty session ID")
	}

	other := NewCSRFGenerator("different-secret")
	if other.ValidateToken("session-a", token) {
		t.Error("ValidateToken() accepted a token signed with another secret")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("Allow() denied request %d within the limit", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("Allow() granted a request over the limit")
	}
	// Another IP keeps its own budget
	if !rl.Allow("10.0.0.2") {
		t.Error("Allow() denied a fresh IP")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("10.0.0.3") {
		t.Fatal("Allow() denied the first request")
	}
	if rl.Allow("10.0.0.3") {
		t.Fatal("Allow() granted a second request before the window reset")
	}
	time.Sleep(15 * time.Millisecond)
	if !rl.Allow("10.0.0.3") {
		t.Error("Allow() denied a request after the window reset")
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	if got := GetClientIP(r); got != "192.0.2.1:1234" {
		t.Errorf("GetClientIP() = %q, want the remote address", got)
	}

	r.Header.Set("X-Real-IP", "203.0.113.9")
	if got := GetClientIP(r); got != "203.0.113.9" {
		t.Errorf("GetClientIP() = %q, want X-Real-IP value", got)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	if got := GetClientIP(r); got != "198.51.100.7" {
		t.Errorf("GetClientIP() = %q, want X-Forwarded-For value", got)
	}
}

func TestGenerateSessionID(t *testing.T) {
	a := GenerateSessionID()
	b := GenerateSessionID()
	if a == "" || b == "" {
		t.Fatal("GenerateSessionID() returned an empty ID")
	}
	if a == b {
		t.Error("GenerateSessionID() returned duplicate IDs")
	}
}
