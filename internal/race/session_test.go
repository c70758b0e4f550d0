package race

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/barrace/internal/dataset"
)

func mustParse(text string) *dataset.Dataset {
	ds, err := dataset.Parse(strings.NewReader(text), dataset.DefaultOptions())
	Expect(err).NotTo(HaveOccurred())
	return ds
}

// bigDataset has 25 countries whose ranking shifts every interval.
func bigDataset(intervals int) *dataset.Dataset {
	var b strings.Builder
	b.WriteString("Country")
	for i := intervals - 1; i >= 0; i-- {
		fmt.Fprintf(&b, ";%d-%d", 1950+5*i, 1955+5*i)
	}
	b.WriteString("\n")
	for c := 0; c < 25; c++ {
		fmt.Fprintf(&b, "C%02d", c)
		for i := intervals - 1; i >= 0; i-- {
			fmt.Fprintf(&b, ";%d", (c*7+i*11)%31)
		}
		b.WriteString("\n")
	}
	return mustParse(b.String())
}

func drain(s *Session, step time.Duration, limit int) {
	for i := 0; i < limit && s.State() == StatePlaying; i++ {
		s.Advance(step)
	}
}

var _ = ginkgo.Describe("TopN", func() {
	ginkgo.It("returns at most N entries sorted by descending value", func() {
		ds := bigDataset(6)
		for _, iv := range ds.Intervals {
			entries := TopN(ds.Records, iv, 18)
			Expect(len(entries)).To(BeNumerically("<=", 18))
			for i := 1; i < len(entries); i++ {
				Expect(entries[i-1].Value).To(BeNumerically(">=", entries[i].Value))
				Expect(entries[i].Rank).To(Equal(i + 1))
			}
		}
	})

	ginkgo.It("keeps input order for ties", func() {
		ds := mustParse("Country;2000-2005\nB;5\nA;5\nC;9\n")
		entries := TopN(ds.Records, "2000-2005", 18)
		Expect(names(entries)).To(Equal([]string{"C", "B", "A"}))
	})

	ginkgo.It("leaves out values that are not numbers", func() {
		ds := mustParse("Country;2000-2005\nA;x\nB;1\n")
		entries := TopN(ds.Records, "2000-2005", 18)
		Expect(names(entries)).To(Equal([]string{"B"}))
	})

	ginkgo.It("does not truncate a dataset smaller than N", func() {
		ds := mustParse("Country;2000-2005\nA;1\nB;2\nC;3\n")
		Expect(NewFrame(ds, 0, 18).Entries).To(HaveLen(3))
	})
})

var _ = ginkgo.Describe("Surface", func() {
	var (
		surface *Surface
		colors  *ColorScale
	)

	ginkgo.BeforeEach(func() {
		colors = NewColorScale(Paired, []string{"A", "B", "C"})
		surface = NewContainer("app").Mount(DefaultLayout(), colors)
	})

	first := Frame{Index: 0, Interval: "1990-1995", Entries: []Entry{
		{Name: "A", Value: 20, Rank: 1}, {Name: "B", Value: 10, Rank: 2},
	}}
	second := Frame{Index: 1, Interval: "1995-2000", Entries: []Entry{
		{Name: "B", Value: 30, Rank: 1}, {Name: "C", Value: 5, Rank: 2},
	}}

	ginkgo.It("updates bars that stay in the top-N instead of recreating them", func() {
		Expect(surface.Apply(first, time.Second)).To(Succeed())
		surface.Advance(time.Second)
		before := surface.bars["B"]

		Expect(surface.Apply(second, time.Second)).To(Succeed())
		Expect(surface.bars["B"]).To(BeIdenticalTo(before))
	})

	ginkgo.It("fades out and then deletes bars that left the top-N", func() {
		Expect(surface.Apply(first, time.Second)).To(Succeed())
		surface.Advance(time.Second)
		Expect(surface.Apply(second, time.Second)).To(Succeed())

		surface.Advance(500 * time.Millisecond)
		a := barState(surface.Scene(), "A")
		Expect(a.Exiting).To(BeTrue())
		Expect(a.Opacity).To(BeNumerically("~", 0.5, 1e-9))

		Expect(surface.Advance(500 * time.Millisecond)).To(BeTrue())
		Expect(surface.Has("A")).To(BeFalse())
		Expect(surface.Len()).To(Equal(2))
	})

	ginkgo.It("enters new bars from zero width and opacity", func() {
		Expect(surface.Apply(first, time.Second)).To(Succeed())
		surface.Advance(time.Second)
		Expect(surface.Apply(second, time.Second)).To(Succeed())

		c := barState(surface.Scene(), "C")
		Expect(c.Width).To(BeZero())
		Expect(c.Opacity).To(BeZero())
		Expect(c.Value).To(BeZero())

		surface.Advance(time.Second)
		c = barState(surface.Scene(), "C")
		Expect(c.Opacity).To(Equal(1.0))
		Expect(c.Value).To(Equal(5.0))
		Expect(c.Width).To(BeNumerically("~", 740.0*5/30, 1e-9))
	})

	ginkgo.It("tweens the label from the previously displayed value", func() {
		Expect(surface.Apply(first, time.Second)).To(Succeed())
		surface.Advance(time.Second)
		Expect(surface.Apply(second, time.Second)).To(Succeed())

		surface.Advance(500 * time.Millisecond)
		Expect(barState(surface.Scene(), "B").Value).To(BeNumerically("~", 20, 1e-9))
	})

	ginkgo.It("switches the interval label immediately", func() {
		Expect(surface.Apply(first, time.Second)).To(Succeed())
		surface.Advance(time.Second)
		Expect(surface.Apply(second, time.Second)).To(Succeed())
		Expect(surface.Scene().Interval).To(Equal("1995-2000"))
	})

	ginkgo.It("revives a bar that re-enters while fading out", func() {
		Expect(surface.Apply(first, time.Second)).To(Succeed())
		surface.Advance(time.Second)
		Expect(surface.Apply(second, time.Second)).To(Succeed())
		surface.Advance(500 * time.Millisecond)

		Expect(surface.Apply(first, time.Second)).To(Succeed())
		a := barState(surface.Scene(), "A")
		Expect(a.Exiting).To(BeFalse())

		surface.Advance(time.Second)
		Expect(surface.Has("A")).To(BeTrue())
		Expect(barState(surface.Scene(), "A").Opacity).To(Equal(1.0))
		Expect(surface.Len()).To(Equal(2))
	})

	ginkgo.It("orders bars top to bottom by rank once settled", func() {
		Expect(surface.Apply(second, 0)).To(Succeed())
		sc := surface.Scene()
		Expect(sc.Bars).To(HaveLen(2))
		Expect(sc.Bars[0].Name).To(Equal("B"))
		Expect(sc.Bars[0].Y).To(BeNumerically("<", sc.Bars[1].Y))
	})

	ginkgo.It("animates the axis towards the new maximum", func() {
		Expect(surface.Apply(first, time.Second)).To(Succeed())
		surface.Advance(time.Second)
		Expect(surface.Scene().AxisMax).To(Equal(20.0))

		Expect(surface.Apply(second, time.Second)).To(Succeed())
		surface.Advance(500 * time.Millisecond)
		Expect(surface.Scene().AxisMax).To(BeNumerically("~", 25, 1e-9))
		Expect(surface.Scene().Ticks).NotTo(BeEmpty())
	})
})

var _ = ginkgo.Describe("Container", func() {
	ginkgo.It("keeps a single surface across repeated mounts", func() {
		c := NewContainer("app")
		colors := NewColorScale(Paired, nil)

		old := c.Mount(DefaultLayout(), colors)
		fresh := c.Mount(DefaultLayout(), colors)

		Expect(c.Surfaces()).To(Equal(1))
		Expect(c.Mounts()).To(Equal(2))
		Expect(c.Surface()).To(BeIdenticalTo(fresh))
		Expect(old.Detached()).To(BeTrue())
		Expect(old.Apply(Frame{}, time.Second)).To(MatchError(ErrDetached))
	})
})

var _ = ginkgo.Describe("Session", func() {
	ds := func() *dataset.Dataset {
		return mustParse("Country;2000-2005;1990-1995;1995-2000\n" +
			"Sweden;3;1;2\nNorway;1;3;2\nChad;2;2;9\n")
	}

	ginkgo.It("renders the first interval immediately on start", func() {
		s := NewSession(ds(), nil, DefaultOptions())
		Expect(s.State()).To(Equal(StateIdle))

		Expect(s.Start()).To(Succeed())
		Expect(s.State()).To(Equal(StatePlaying))
		Expect(s.Index()).To(Equal(0))
		Expect(s.Scene().Interval).To(Equal("1990-1995"))
		Expect(s.Scene().Bars).To(HaveLen(3))
		Expect(s.Ticks()).To(BeZero())
	})

	ginkgo.It("fires the timer once per interval and then stops for good", func() {
		s := NewSession(ds(), nil, DefaultOptions())
		Expect(s.Start()).To(Succeed())

		drain(s, 100*time.Millisecond, 1000)
		Expect(s.State()).To(Equal(StateStopped))
		Expect(s.Ticks()).To(Equal(3))
		Expect(s.Frames()).To(HaveLen(3))

		Expect(s.Advance(10 * time.Second)).To(BeFalse())
		Expect(s.Ticks()).To(Equal(3))
	})

	ginkgo.It("plays intervals in start-year order", func() {
		s := NewSession(ds(), nil, DefaultOptions())
		Expect(s.Start()).To(Succeed())
		drain(s, 100*time.Millisecond, 1000)

		var order []string
		for _, f := range s.Frames() {
			order = append(order, f.Interval)
		}
		Expect(order).To(Equal([]string{"1990-1995", "1995-2000", "2000-2005"}))
	})

	ginkgo.It("waits for a long transition before beginning the next frame", func() {
		s := NewSession(ds(), nil, DefaultOptions())
		Expect(s.Start()).To(Succeed())
		Expect(s.surface.Apply(s.frames[0], 5*time.Second)).To(Succeed())

		Expect(s.Advance(DefaultPeriod)).To(BeFalse())
		Expect(s.Index()).To(Equal(0))

		Expect(s.Advance(3 * time.Second)).To(BeTrue())
		Expect(s.Index()).To(Equal(1))
	})

	ginkgo.DescribeTable("keeps a fixed period whatever the step size",
		func(fps int) {
			s := NewSession(bigDataset(4), nil, DefaultOptions())
			Expect(s.Start()).To(Succeed())

			step := time.Second / time.Duration(fps)
			var elapsed time.Duration
			for i := 0; i < 10000 && s.State() == StatePlaying; i++ {
				s.Advance(step)
				elapsed += step
			}
			Expect(s.Ticks()).To(Equal(4))
			Expect(elapsed).To(BeNumerically("~", 4*DefaultPeriod, step))
		},
		ginkgo.Entry("3 fps", 3),
		ginkgo.Entry("7 fps", 7),
		ginkgo.Entry("30 fps", 30),
	)

	ginkgo.It("starts a delayed frame without carrying the wait", func() {
		s := NewSession(ds(), nil, DefaultOptions())
		Expect(s.Start()).To(Succeed())
		Expect(s.surface.Apply(s.frames[0], 5*time.Second)).To(Succeed())

		Expect(s.Advance(DefaultPeriod)).To(BeFalse())
		Expect(s.Advance(3 * time.Second)).To(BeTrue())
		Expect(s.Advance(DefaultPeriod - time.Millisecond)).To(BeFalse())
		Expect(s.Advance(time.Millisecond)).To(BeTrue())
	})

	ginkgo.It("does not advance while paused", func() {
		s := NewSession(ds(), nil, DefaultOptions())
		Expect(s.Start()).To(Succeed())
		Expect(s.TogglePause()).To(BeTrue())

		Expect(s.Advance(time.Minute)).To(BeFalse())
		Expect(s.Index()).To(Equal(0))

		Expect(s.TogglePause()).To(BeFalse())
		Expect(s.Advance(DefaultPeriod)).To(BeTrue())
	})

	ginkgo.It("refuses to start twice", func() {
		s := NewSession(ds(), nil, DefaultOptions())
		Expect(s.Start()).To(Succeed())
		Expect(s.Start()).To(MatchError(ErrStarted))
	})

	ginkgo.It("stops immediately on an empty dataset", func() {
		s := NewSession(mustParse("Country;2000-2005\n"), nil, DefaultOptions())
		Expect(s.Start()).To(MatchError(ErrNoData))
		Expect(s.State()).To(Equal(StateStopped))
	})

	ginkgo.It("keeps each entity's colour across every frame", func() {
		s := NewSession(bigDataset(8), nil, DefaultOptions())
		Expect(s.Start()).To(Succeed())

		seen := map[string]string{}
		for s.State() == StatePlaying {
			for _, b := range s.Scene().Bars {
				if c, ok := seen[b.Name]; ok {
					Expect(b.Color).To(Equal(c), "colour of %s changed", b.Name)
				}
				seen[b.Name] = b.Color
			}
			s.Advance(250 * time.Millisecond)
		}
		Expect(len(seen)).To(BeNumerically(">", 18))
	})

	ginkgo.It("never leaves stale bars behind once a frame settles", func() {
		s := NewSession(bigDataset(8), nil, DefaultOptions())
		Expect(s.Start()).To(Succeed())

		for s.State() == StatePlaying {
			if s.Surface().Done() {
				frame := s.frames[len(s.frames)-1]
				Expect(names(frame.Entries)).To(ConsistOf(sceneNames(s.Scene())))
			}
			s.Advance(250 * time.Millisecond)
		}
	})

	ginkgo.It("detaches the previous surface when a new session mounts the same container", func() {
		c := NewContainer("app")
		first := NewSession(ds(), c, DefaultOptions())
		Expect(first.Start()).To(Succeed())

		second := NewSession(ds(), c, DefaultOptions())
		Expect(second.Start()).To(Succeed())

		Expect(c.Surfaces()).To(Equal(1))
		Expect(first.Surface().Detached()).To(BeTrue())

		first.Advance(DefaultPeriod)
		Expect(first.State()).To(Equal(StateStopped))
		Expect(first.Err()).To(MatchError(ErrDetached))
	})

	ginkgo.It("runs against the wall clock until stopped", func() {
		opts := DefaultOptions()
		opts.Period = 20 * time.Millisecond
		opts.Transition = 10 * time.Millisecond
		s := NewSession(ds(), nil, opts)

		calls := 0
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(s.Run(ctx, 200, func(Scene) { calls++ })).To(Succeed())
		Expect(s.State()).To(Equal(StateStopped))
		Expect(s.Ticks()).To(Equal(3))
		Expect(calls).To(BeNumerically(">", 3))
	})

	ginkgo.It("returns the context error when cancelled", func() {
		s := NewSession(ds(), nil, DefaultOptions())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(s.Run(ctx, 30, nil)).To(MatchError(context.Canceled))
	})
})

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func sceneNames(sc Scene) []string {
	out := make([]string, len(sc.Bars))
	for i, b := range sc.Bars {
		out[i] = b.Name
	}
	return out
}

func barState(sc Scene, name string) BarState {
	for _, b := range sc.Bars {
		if b.Name == name {
			return b
		}
	}
	ginkgo.Fail("no bar named " + name)
	return BarState{}
}
