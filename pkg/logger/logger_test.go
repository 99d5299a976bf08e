package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/siglab-monitor/pkg/logger"
)

var _ = Describe("Logger", func() {
	var (
		buf *bytes.Buffer
		ctx context.Context
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		ctx = context.Background()
	})

	Describe("New", func() {
		It("should default to stdout", func() {
			log := logger.New("info", false, "dev", nil)
			Expect(log).NotTo(BeNil())
		})

		It("should write text outside production", func() {
			log := logger.New("info", false, "dev", buf)
			log.Info("Server is back up", slog.String("instance", "backend-1"))

			Expect(buf.String()).To(ContainSubstring(`msg="Server is back up"`))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
			Expect(buf.String()).To(ContainSubstring("instance=backend-1"))
		})

		It("should write JSON in production", func() {
			log := logger.New("info", false, "prod", buf)
			log.Warn("Server is down")

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "Server is down"))
			Expect(record).To(HaveKeyWithValue("level", "WARN"))
			Expect(record).To(HaveKeyWithValue("environment", "prod"))
		})

		It("should add the source when asked", func() {
			log := logger.New("info", true, "prod", buf)
			log.Info("hello")
			Expect(buf.String()).To(ContainSubstring(`"source"`))
		})

		It("should default to info for invalid level", func() {
			log := logger.New("invalid", false, "dev", buf)
			Expect(log.Enabled(ctx, slog.LevelInfo)).To(BeTrue())
			Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeFalse())
		})
	})

	DescribeTable("levels",
		func(level string, enabled, disabled slog.Level) {
			log := logger.New(level, false, "dev", buf)
			Expect(log.Enabled(ctx, enabled)).To(BeTrue())
			Expect(log.Enabled(ctx, disabled)).To(BeFalse())
		},
		Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
		Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
		Entry("warning", "WARNING", slog.LevelWarn, slog.LevelInfo),
		Entry("error", "error", slog.LevelError, slog.LevelWarn),
	)

	It("should enable debug at debug level", func() {
		log := logger.New("debug", false, "dev", buf)
		Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeTrue())
	})

	Describe("Component", func() {
		It("should tag records", func() {
			log := logger.Component(logger.New("info", false, "dev", buf), "scheduler")
			log.Info("Scheduler started")
			Expect(buf.String()).To(ContainSubstring("component=scheduler"))
		})
	})

	Describe("IsProduction", func() {
		It("should accept both spellings", func() {
			Expect(logger.IsProduction("prod")).To(BeTrue())
			Expect(logger.IsProduction("Production")).To(BeTrue())
			Expect(logger.IsProduction("dev")).To(BeFalse())
		})
	})
})
