package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

var errHijacked = errors.New("hijacked")

// upgradeWriter stands in for the server's writer during a websocket upgrade.
type upgradeWriter struct {
	*httptest.ResponseRecorder
	upgraded bool
}

func (u *upgradeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	u.upgraded = true
	return nil, nil, errHijacked
}

func TestWrappedWritersStillUpgrade(t *testing.T) {
	cases := []struct {
		name  string
		chain []Middleware
	}{
		{"logging", []Middleware{Logging()}},
		{"cors and logging", []Middleware{CORS(DefaultCORSConfig(nil)), Logging()}},
		{"feed path", []Middleware{CORS(DefaultCORSConfig(nil)), Logging(), Authenticate(newStub()), RequirePlatform()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := &upgradeWriter{ResponseRecorder: httptest.NewRecorder()}
			reached := false
			h := Chain(func(rw http.ResponseWriter, r *http.Request) {
				reached = true
				hj, ok := rw.(http.Hijacker)
				if !ok {
					t.Fatal("writer lost http.Hijacker")
				}
				if _, _, err := hj.Hijack(); !errors.Is(err, errHijacked) {
					t.Fatalf("unexpected hijack error: %v", err)
				}
			}, tc.chain...)

			req := httptest.NewRequest(http.MethodGet, "/api/ws/v1/audit", nil)
			req.Header.Set("Authorization", "Bearer platform")
			h(w, req)

			if !reached || !w.upgraded {
				t.Fatalf("reached=%v upgraded=%v", reached, w.upgraded)
			}
		})
	}
}

func TestChainRunsFirstMiddlewareOutermost(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}

	Chain(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}, mark("a"), mark("b"))(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"a", "b", "handler"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}
