package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var creds Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + creds.Username})
	})
	mux.HandleFunc("/game/create", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-alice" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]string{"gameId": "g-" + body["name"], "playerId": "p1"})
	})
	return httptest.NewServer(mux)
}

func TestLoginThenCreateGame(t *testing.T) {
	server := newTestAPI(t)
	defer server.Close()

	c := NewClient(server.URL+"/", nil)
	resp, err := c.Login(context.Background(), Credentials{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "tok-alice" || resp.Username != "alice" {
		t.Errorf("unexpected response %+v", resp)
	}

	game, err := c.CreateGame(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if game.GameID != "g-alice" || game.PlayerID != "p1" {
		t.Errorf("unexpected game %+v", game)
	}
}

func TestLoginRejected(t *testing.T) {
	server := newTestAPI(t)
	defer server.Close()

	c := NewClient(server.URL, nil)
	_, err := c.Login(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "Invalid credentials" {
		t.Errorf("expected server message, got %v", err)
	}
	if c.Token != "" {
		t.Error("token must stay empty after a failed login")
	}
}

func TestCreateGameWithoutLogin(t *testing.T) {
	server := newTestAPI(t)
	defer server.Close()

	c := NewClient(server.URL, nil)
	if _, err := c.CreateGame(context.Background(), "bob"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
