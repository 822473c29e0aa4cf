package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserJSON_NeverContainsPassword(t *testing.T) {
	u := User{
		ID:           7,
		Name:         "Ana",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	body := string(b)
	if strings.Contains(body, "password") {
		t.Errorf("JSON contains a password key: %s", body)
	}
	if strings.Contains(body, u.PasswordHash) {
		t.Errorf("JSON contains the password hash: %s", body)
	}
	for _, key := range []string{`"id":7`, `"name":"Ana"`, `"email":"a@x.com"`, `"createdAt"`, `"updatedAt"`} {
		if !strings.Contains(body, key) {
			t.Errorf("JSON missing %s: %s", key, body)
		}
	}
}

func TestUserJSON_IgnoresIncomingPassword(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"name":"Ana","password":"secret123"}`), &u); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if u.PasswordHash != "" {
		t.Errorf("PasswordHash = %q, want empty (must not be settable from JSON)", u.PasswordHash)
	}
}
