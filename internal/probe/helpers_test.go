package probe_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/angeloszaimis/siglab-monitor/internal/instance"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// respondWith serves the same status and body on every path.
func respondWith(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
}

// hangingServer never answers until release is closed or the client gives up.
func hangingServer(release <-chan struct{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
}

func instanceFor(srv *httptest.Server) instance.Instance {
	inst, err := instance.FromBase("backend-1", srv.URL, "", "")
	if err != nil {
		panic(err)
	}
	return inst
}

func closedInstance() instance.Instance {
	srv := httptest.NewServer(http.NotFoundHandler())
	inst := instanceFor(srv)
	srv.Close()
	return inst
}
