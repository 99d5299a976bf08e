package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/siglab-monitor/internal/handler"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

func published(generatedAt time.Time) *snapshot.Store {
	store := snapshot.NewStore()
	err := store.Publish(snapshot.Snapshot{
		CycleSeq: 4,
		PerInstance: map[string]snapshot.InstanceState{
			"backend-1": {Reachable: true, Healthy: true, ActiveUsers: snapshot.KnownUsers(8), Status: snapshot.StatusUp},
			"backend-2": {ActiveUsers: snapshot.Unknown, Status: snapshot.StatusUnreachable},
		},
		ActiveInstanceCount: 1,
		TotalInstanceCount:  2,
		AvailabilityPercent: 50,
		TotalActiveUsers:    8,
		GeneratedAt:         generatedAt,
	})
	Expect(err).NotTo(HaveOccurred())
	return store
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("APIHandler", func() {
	var w *httptest.ResponseRecorder

	BeforeEach(func() {
		w = httptest.NewRecorder()
	})

	Describe("Snapshot", func() {
		It("should report warming up before the first cycle", func() {
			h := handler.NewAPIHandler(quietLogger(), snapshot.NewStore(), time.Second)
			h.Snapshot(w, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Header().Get("Retry-After")).To(Equal("1"))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"warming_up"}`))
		})

		It("should write the current snapshot", func() {
			h := handler.NewAPIHandler(quietLogger(), published(time.Now()), time.Second)
			h.Snapshot(w, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap snapshot.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.CycleSeq).To(Equal(uint64(4)))
			Expect(snap.AvailabilityPercent).To(Equal(50))
			Expect(snap.PerInstance["backend-2"].ActiveUsers).To(Equal(snapshot.Unknown))
		})
	})

	Describe("Dashboard", func() {
		It("should write the view-model", func() {
			h := handler.NewAPIHandler(quietLogger(), published(time.Now()), time.Minute)
			h.Dashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("availability_label", "50%"))
			Expect(body).To(HaveKeyWithValue("active_servers_label", "1/2"))
			Expect(body).To(HaveKeyWithValue("stale", false))
			Expect(body["per_instance_badges"]).To(HaveLen(2))
		})

		It("should flag an old snapshot as stale", func() {
			h := handler.NewAPIHandler(quietLogger(), published(time.Now().Add(-time.Hour)), time.Second)
			h.Dashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

			var body map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("stale", true))
		})

		It("should write the waiting view before the first cycle", func() {
			h := handler.NewAPIHandler(quietLogger(), snapshot.NewStore(), time.Second)
			h.Dashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("waiting", true))
			Expect(body).To(HaveKeyWithValue("stale", false))
		})
	})

	Describe("Health", func() {
		It("should answer ok", func() {
			h := handler.NewAPIHandler(quietLogger(), snapshot.NewStore(), time.Second)
			h.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
		})
	})
})

var _ = Describe("Middleware", func() {
	teapot := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	It("should log the served status and client", func() {
		buf := &bytes.Buffer{}
		log := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		handler.LogRequests(log)(teapot).ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusTeapot))
		Expect(buf.String()).To(ContainSubstring("status=418"))
		Expect(buf.String()).To(ContainSubstring("from=203.0.113.7"))
		Expect(buf.String()).To(ContainSubstring("path=/api/snapshot"))
	})

	It("should set cors headers and answer preflight", func() {
		w := httptest.NewRecorder()
		handler.AllowOrigin("*")(teapot).ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil))

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})

	It("should pass through without an origin", func() {
		w := httptest.NewRecorder()
		handler.AllowOrigin("")(teapot).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

		Expect(w.Code).To(Equal(http.StatusTeapot))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})
