package tui

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/siglab-monitor/internal/display"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

type fixedSource struct {
	mu   sync.Mutex
	snap snapshot.Snapshot
	ok   bool
}

func (f *fixedSource) Current() (snapshot.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.ok
}

func newScreen(w, h int) tcell.SimulationScreen {
	screen := tcell.NewSimulationScreen("")
	Expect(screen.Init()).To(Succeed())
	screen.SetSize(w, h)
	return screen
}

func row(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := screen.GetContent(x, y)
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

func screenText(screen tcell.Screen) string {
	_, h := screen.Size()
	lines := make([]string, 0, h)
	for y := 0; y < h; y++ {
		lines = append(lines, row(screen, y))
	}
	return strings.Join(lines, "\n")
}

var generatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func partialSnapshot() snapshot.Snapshot {
	return snapshot.Snapshot{
		CycleSeq: 12,
		PerInstance: map[string]snapshot.InstanceState{
			"backend-1": {Reachable: true, Healthy: true, ActiveUsers: snapshot.KnownUsers(10), Latency: 3 * time.Millisecond, Status: snapshot.StatusUp},
			"backend-2": {Status: snapshot.StatusDown, ActiveUsers: snapshot.Unknown, ConsecutiveFailures: 4},
			"backend-3": {Reachable: true, Healthy: true, ActiveUsers: snapshot.Unknown, Latency: 5 * time.Millisecond, Status: snapshot.StatusUp},
		},
		ActiveInstanceCount: 2,
		TotalInstanceCount:  3,
		AvailabilityPercent: 67,
		TotalActiveUsers:    10,
		GeneratedAt:         generatedAt,
	}
}

var _ = Describe("render", func() {
	var screen tcell.SimulationScreen

	BeforeEach(func() {
		screen = newScreen(100, 20)
	})

	AfterEach(func() {
		screen.Fini()
	})

	It("should draw the summary and one line per server", func() {
		vm := display.ToViewModel(partialSnapshot())
		render(screen, vm, false, generatedAt)

		text := screenText(screen)
		Expect(row(screen, 0)).To(ContainSubstring("siglab-monitor"))
		Expect(row(screen, 1)).To(ContainSubstring(display.HeadlinePartial))
		Expect(row(screen, 1)).To(ContainSubstring("cycle #12"))
		Expect(row(screen, 2)).To(ContainSubstring("67%"))
		Expect(row(screen, 2)).To(ContainSubstring("Active 2/3"))
		Expect(row(screen, 2)).To(ContainSubstring("Users 10"))
		Expect(row(screen, 4)).To(ContainSubstring("backend-1"))
		Expect(row(screen, 5)).To(ContainSubstring("DOWN"))
		Expect(row(screen, 5)).To(ContainSubstring("failures 4"))
		Expect(row(screen, 6)).To(MatchRegexp(`backend-3\s+UP\s+users -`))
		Expect(text).NotTo(ContainSubstring("STALE"))
	})

	It("should colour badges by tone", func() {
		render(screen, display.ToViewModel(partialSnapshot()), false, generatedAt)

		upX := strings.Index(row(screen, 4), "UP")
		_, _, upStyle, _ := screen.GetContent(upX, 4)
		fg, _, _ := upStyle.Decompose()
		Expect(fg).To(Equal(tcell.ColorGreen))

		downX := strings.Index(row(screen, 5), "DOWN")
		_, _, downStyle, _ := screen.GetContent(downX, 5)
		fg, _, _ = downStyle.Decompose()
		Expect(fg).To(Equal(tcell.ColorRed))
	})

	It("should flag a stale view", func() {
		render(screen, display.ToViewModel(partialSnapshot()), true, generatedAt.Add(time.Minute))
		Expect(row(screen, 1)).To(ContainSubstring("STALE"))
	})

	It("should show the waiting view before the first cycle", func() {
		render(screen, display.ToViewModel(snapshot.Snapshot{}), false, generatedAt)
		Expect(row(screen, 1)).To(ContainSubstring(display.HeadlineWaiting))
		Expect(row(screen, 1)).NotTo(ContainSubstring("cycle #"))
	})

	It("should leave a tiny screen blank", func() {
		screen.SetSize(10, 3)
		render(screen, display.ToViewModel(partialSnapshot()), false, generatedAt)
		Expect(strings.TrimSpace(screenText(screen))).To(BeEmpty())
	})
})

var _ = Describe("gauge", func() {
	It("should fill in proportion", func() {
		Expect(gauge(0, 10)).To(Equal("[          ]"))
		Expect(gauge(50, 10)).To(Equal("[#####     ]"))
		Expect(gauge(100, 10)).To(Equal("[##########]"))
	})
})

var _ = Describe("UI", func() {
	It("should quit on q", func() {
		screen := newScreen(80, 20)
		defer screen.Fini()

		source := &fixedSource{snap: partialSnapshot(), ok: true}
		u := New(source, 20*time.Millisecond, time.Second)
		u.now = func() time.Time { return generatedAt }

		errCh := make(chan error, 1)
		go func() { errCh <- u.RunOn(context.Background(), screen) }()

		Eventually(func() string { return row(screen, 0) }).Should(ContainSubstring("siglab-monitor"))
		screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
		Eventually(errCh).Should(Receive(MatchError(context.Canceled)))
	})

	It("should stop with its context and mark old views stale", func() {
		screen := newScreen(80, 20)
		defer screen.Fini()

		source := &fixedSource{snap: partialSnapshot(), ok: true}
		u := New(source, 20*time.Millisecond, 5*time.Second)
		u.now = func() time.Time { return generatedAt.Add(time.Minute) }

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- u.RunOn(ctx, screen) }()

		Eventually(func() string { return row(screen, 1) }).Should(ContainSubstring("STALE"))
		cancel()
		Eventually(errCh).Should(Receive(MatchError(context.Canceled)))
	})
})
