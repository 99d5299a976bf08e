package probe_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/siglab-monitor/internal/probe"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

var _ = Describe("Sampler", func() {
	var (
		sampler *probe.Sampler
		srv     *httptest.Server
		ctx     context.Context
	)

	BeforeEach(func() {
		sampler = probe.NewSampler(nil, quietLogger())
		ctx = context.Background()
	})

	AfterEach(func() {
		if srv != nil {
			srv.Close()
			srv = nil
		}
	})

	It("should read a numeric active_users field", func() {
		srv = respondWith(http.StatusOK, `{"active_users": 20, "requests": 999}`)
		s := sampler.Sample(ctx, instanceFor(srv), time.Second)

		Expect(s.InstanceID).To(Equal("backend-1"))
		Expect(s.ActiveUsers).To(Equal(snapshot.KnownUsers(20)))
	})

	It("should treat zero as a known count", func() {
		srv = respondWith(http.StatusOK, `{"active_users": 0}`)
		s := sampler.Sample(ctx, instanceFor(srv), time.Second)
		Expect(s.ActiveUsers).To(Equal(snapshot.KnownUsers(0)))
	})

	It("should accept integral numbers written with a fraction", func() {
		srv = respondWith(http.StatusOK, `{"active_users": 7.0}`)
		s := sampler.Sample(ctx, instanceFor(srv), time.Second)
		Expect(s.ActiveUsers).To(Equal(snapshot.KnownUsers(7)))
	})

	It("should accept counts near the int64 limit", func() {
		srv = respondWith(http.StatusOK, `{"active_users": 4000000000000000000}`)
		s := sampler.Sample(ctx, instanceFor(srv), time.Second)
		Expect(s.ActiveUsers).To(Equal(snapshot.KnownUsers(4000000000000000000)))
	})

	It("should log why a sample is unavailable", func() {
		var buf bytes.Buffer
		logged := probe.NewSampler(nil, slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

		srv = respondWith(http.StatusServiceUnavailable, `{}`)
		logged.Sample(ctx, instanceFor(srv), time.Second)

		Expect(buf.String()).To(ContainSubstring(`"error":"unexpected status 503"`))
		Expect(buf.String()).NotTo(ContainSubstring(`"err":`))
	})

	It("should request the stats path", func() {
		var gotPath string
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte(`{"active_users": 1}`))
		}))
		sampler.Sample(ctx, instanceFor(srv), time.Second)
		Expect(gotPath).To(Equal("/api/traffic/stats"))
	})

	DescribeTable("unknown counts",
		func(status int, body string) {
			srv = respondWith(status, body)
			s := sampler.Sample(ctx, instanceFor(srv), time.Second)
			Expect(s.ActiveUsers.Known).To(BeFalse())
		},
		Entry("missing field", http.StatusOK, `{"requests": 4}`),
		Entry("null field", http.StatusOK, `{"active_users": null}`),
		Entry("string field", http.StatusOK, `{"active_users": "10"}`),
		Entry("negative field", http.StatusOK, `{"active_users": -3}`),
		Entry("fractional field", http.StatusOK, `{"active_users": 2.5}`),
		Entry("beyond int64", http.StatusOK, `{"active_users": 1e19}`),
		Entry("malformed body", http.StatusOK, `{"active_users":`),
		Entry("array body", http.StatusOK, `[1,2,3]`),
		Entry("server error", http.StatusInternalServerError, `{"active_users": 10}`),
	)

	It("should leave the count unknown when unreachable", func() {
		s := sampler.Sample(ctx, closedInstance(), time.Second)
		Expect(s.ActiveUsers.Known).To(BeFalse())
	})

	It("should give up after the timeout", func() {
		release := make(chan struct{})
		srv = hangingServer(release)
		defer close(release)

		start := time.Now()
		s := sampler.Sample(ctx, instanceFor(srv), 100*time.Millisecond)

		Expect(s.ActiveUsers.Known).To(BeFalse())
		Expect(time.Since(start)).To(BeNumerically("<", 600*time.Millisecond))
	})
})
