package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "exact match", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:8080", want: true},
		{name: "case-insensitive", allowed: []string{"HTTP://LocalHost:8080"}, origin: "http://localhost:8080", want: true},
		{name: "path ignored", allowed: []string{"http://localhost:8080/chat"}, origin: "http://localhost:8080", want: true},
		{name: "different port", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:9090", want: false},
		{name: "different scheme", allowed: []string{"http://localhost:8080"}, origin: "https://localhost:8080", want: false},
		{name: "missing header", allowed: []string{"http://localhost:8080"}, origin: "", want: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://evil.example", want: true},
		{name: "wildcard still needs header", allowed: []string{"*"}, origin: "", want: false},
		{name: "invalid entries skipped", allowed: []string{"not a url", " ", "http://ok.example"}, origin: "http://ok.example", want: true},
		{name: "empty list", allowed: nil, origin: "http://localhost:8080", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newOriginPolicy(tt.allowed)
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, p.check(r))
		})
	}
}
