package httpserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/siglab-monitor/internal/httpserver"
)

var noop = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

var _ = Describe("HTTP Server", func() {
	DescribeTable("address validation",
		func(addr string, valid bool) {
			srv, err := httpserver.New(addr, noop)
			if valid {
				Expect(err).NotTo(HaveOccurred())
				Expect(srv.Addr()).To(Equal(addr))
				return
			}
			Expect(err).To(HaveOccurred())
			Expect(srv).To(BeNil())
		},
		Entry("host and port", "localhost:9999", true),
		Entry("ip and port", "127.0.0.1:9999", true),
		Entry("port only", ":9999", true),
		Entry("empty", "", false),
		Entry("too many colons", "invalid:host:port", false),
		Entry("missing port", "localhost:", false),
		Entry("port out of range", "localhost:70000", false),
	)

	Context("server lifecycle", func() {
		var (
			srv *httpserver.Server
			ln  net.Listener
		)

		BeforeEach(func() {
			var err error
			ln, err = net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}
		})

		It("should serve requests", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"status":"ok"}`))
			})
			var err error
			srv, err = httpserver.New(ln.Addr().String(), handler,
				httpserver.WithTimeouts(time.Second, time.Second, time.Second))
			Expect(err).NotTo(HaveOccurred())

			go srv.Serve(ln)

			var resp *http.Response
			Eventually(func() error {
				resp, err = http.Get("http://" + ln.Addr().String())
				return err
			}).Should(Succeed())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal(`{"status":"ok"}`))
		})

		It("should return nil after a graceful shutdown", func() {
			var err error
			srv, err = httpserver.New(ln.Addr().String(), noop)
			Expect(err).NotTo(HaveOccurred())

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()
			time.Sleep(50 * time.Millisecond)

			Expect(srv.Shutdown(context.Background())).To(Succeed())
			Eventually(errCh).Should(Receive(BeNil()))
		})
	})
})
