package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/reactivity"
	"github.com/delaneyj/vox/vox"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	profile = flag.String("pgo", "", "write a CPU profile to this file")
	only    = flag.String("only", "", "run a single suite: propagate, graph or reconcile")
)

func main() {
	flag.Parse()

	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	suites := []struct {
		name string
		run  func()
	}{
		{"propagate", benchmarkPropagate},
		{"graph", benchmarkGraphs},
		{"reconcile", benchmarkReconcile},
	}
	for _, s := range suites {
		if *only != "" && *only != s.name {
			continue
		}
		log.Printf("running %s", s.name)
		s.run()
	}
}

var (
	ww    = []int{1, 10, 100, 1_000}
	hh    = []int{1, 10, 100}
	iters = 100
)

func newSystem() *reactivity.System {
	return reactivity.CreateReactiveSystem(func(from *reactivity.Effect, err error) {
		log.Panic(err)
	})
}

func newTable(title string, header table.Row) table.Writer {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(header)
	return tbl
}

func timings(name string, calc *tachymeter.Metrics) table.Row {
	return table.Row{name, calc.Time.Avg, calc.Time.Min, calc.Time.P75, calc.Time.P99, calc.Time.Max}
}

// benchmarkPropagate measures a write travelling down w chains of h
// effects, each copying its input ref into its own.
func benchmarkPropagate() {
	tbl := newTable("Effect propagation", table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			rs := newSystem()
			src := rs.Ref(1)
			for i := 0; i < w; i++ {
				last := src
				for j := 0; j < h; j++ {
					prev, next := last, rs.Ref(0)
					if _, err := rs.Effect(func() error {
						next.Set(prev.Value().(int) + 1)
						return nil
					}); err != nil {
						log.Panic(err)
					}
					last = next
				}
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				src.Set(src.Value().(int) + 1)
				tach.AddTime(time.Since(start))
			}

			tbl.AppendRow(timings(fmt.Sprintf("propagate: %d * %d", w, h), tach.Calc()))
		}
	}
	tbl.Render()
}

type graphConfig struct {
	name           string
	width          int
	totalLayers    int
	staticFraction float64 // fraction of nodes that always read all their sources
	nSources       int     // sources read by each node
	readFraction   float64 // fraction of the last layer read each iteration
	iterations     int64
}

var graphConfigs = []graphConfig{
	{name: "simple component", width: 10, totalLayers: 5, staticFraction: 1, nSources: 2, readFraction: 0.2, iterations: 60_000},
	{name: "dynamic component", width: 10, totalLayers: 10, staticFraction: 0.75, nSources: 6, readFraction: 0.2, iterations: 1_500},
	{name: "large web app", width: 1000, totalLayers: 12, staticFraction: 0.95, nSources: 4, readFraction: 1, iterations: 70},
	{name: "wide dense", width: 1000, totalLayers: 5, staticFraction: 1, nSources: 25, readFraction: 1, iterations: 30},
	{name: "deep", width: 5, totalLayers: 500, staticFraction: 1, nSources: 3, readFraction: 1, iterations: 50},
	{name: "very dynamic", width: 100, totalLayers: 15, staticFraction: 0.5, nSources: 6, readFraction: 1, iterations: 20},
}

func (cfg graphConfig) title() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources)
	if cfg.staticFraction < 1 {
		sb.WriteString(" dynamic")
	}
	if cfg.readFraction < 1 {
		fmt.Fprintf(&sb, " read %0.2f%%", 100*cfg.readFraction)
	}
	return sb.String()
}

type graph struct {
	rs      *reactivity.System
	sources []*reactivity.Ref
	layers  [][]*reactivity.Ref
}

// makeGraph builds layers of refs, each kept up to date by an effect
// summing nSources refs of the layer above. Dynamic nodes skip one source
// depending on the value of their first.
func makeGraph(cfg graphConfig, counter *int64) *graph {
	rs := newSystem()
	g := &graph{rs: rs, sources: make([]*reactivity.Ref, cfg.width)}
	for i := range g.sources {
		g.sources[i] = rs.Ref(i)
	}
	random := rand.New(rand.NewSource(0))
	prev := g.sources
	for l := 1; l < cfg.totalLayers; l++ {
		row := make([]*reactivity.Ref, len(prev))
		for i := range prev {
			mine := make([]*reactivity.Ref, 0, cfg.nSources)
			for s := 0; s < cfg.nSources; s++ {
				mine = append(mine, prev[(i+s)%len(prev)])
			}
			out := rs.Ref(0)
			static := random.Float64() < cfg.staticFraction
			_, err := rs.Effect(func() error {
				*counter++
				sum := mine[0].Value().(int)
				tail := mine[1:]
				drop := -1
				if !static && sum&1 > 0 && len(tail) > 0 {
					drop = sum % len(tail)
				}
				for i, src := range tail {
					if i != drop {
						sum += src.Value().(int)
					}
				}
				out.Set(sum)
				return nil
			})
			if err != nil {
				log.Panic(err)
			}
			row[i] = out
		}
		g.layers = append(g.layers, row)
		prev = row
	}
	return g
}

// run writes one source per iteration inside a batch and reads the chosen
// leaves, returning their final sum.
func (g *graph) run(cfg graphConfig) int {
	random := rand.New(rand.NewSource(0))
	leaves := append([]*reactivity.Ref(nil), g.layers[len(g.layers)-1]...)
	skip := int(math.Round(float64(len(leaves)) * (1 - cfg.readFraction)))
	for i := 0; i < skip; i++ {
		j := random.Intn(len(leaves))
		leaves[j] = leaves[len(leaves)-1]
		leaves = leaves[:len(leaves)-1]
	}

	for i := 0; i < int(cfg.iterations); i++ {
		g.rs.Batch(func() {
			at := i % len(g.sources)
			g.sources[at].Set(i + at)
		})
		for _, leaf := range leaves {
			leaf.Value()
		}
	}
	sum := 0
	for _, leaf := range leaves {
		sum += leaf.Value().(int)
	}
	return sum
}

func benchmarkGraphs() {
	tbl := newTable("Dependency graphs", table.Row{"test", "size", "sources", "read", "static", "iterations", "time", "effect runs", "runs/ms", "title"})

	const repeats = 3
	for _, cfg := range graphConfigs {
		var (
			best  = time.Duration(math.MaxInt64)
			count int64
		)
		for i := 0; i < repeats; i++ {
			var counter int64
			g := makeGraph(cfg, &counter)
			counter = 0
			start := time.Now()
			g.run(cfg)
			if d := time.Since(start); d < best {
				best, count = d, counter
			}
		}
		rate := float64(count) / (float64(best) / float64(time.Millisecond))
		tbl.AppendRow(table.Row{
			cfg.name,
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers),
			cfg.nSources,
			cfg.readFraction,
			cfg.staticFraction,
			humanize.Comma(cfg.iterations),
			best,
			humanize.Comma(count),
			humanize.Comma(int64(rate)),
			cfg.title(),
		})
	}
	tbl.Render()
}

// benchmarkReconcile measures vox:for keeping a list of n items in sync
// with appends, in-place updates and truncation.
func benchmarkReconcile() {
	tbl := newTable("List reconciliation", table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, n := range []int{10, 100, 1_000} {
		doc, err := dom.ParseString(`<ul vox="{items: []}"><li vox:for="v, i in items" vox:text="i + ': ' + v"></li></ul>`)
		if err != nil {
			log.Fatal(err)
		}
		inst, err := vox.New(doc)
		if err != nil {
			log.Fatal(err)
		}
		if err := inst.Init(); err != nil {
			log.Fatal(err)
		}
		ul := inst.Roots()[0]

		steps := []struct {
			name string
			src  string
		}{
			{"fill", fmt.Sprintf("items = Array.from({length: %d}, (_, i) => i)", n)},
			{"update", "items = items.map(v => v + 1)"},
			{"truncate", "items = items.slice(0, 1)"},
		}
		tachs := make([]*tachymeter.Tachymeter, len(steps))
		for i := range tachs {
			tachs[i] = tachymeter.New(&tachymeter.Config{Size: iters})
		}
		for i := 0; i < iters; i++ {
			for j, step := range steps {
				start := time.Now()
				if _, err := inst.Eval(ul, step.src); err != nil {
					log.Fatal(err)
				}
				tachs[j].AddTime(time.Since(start))
			}
		}
		for j, step := range steps {
			tbl.AppendRow(timings(fmt.Sprintf("%s: %s items", step.name, humanize.Comma(int64(n))), tachs[j].Calc()))
		}
		if err := inst.Exit(); err != nil {
			log.Fatal(err)
		}
	}
	tbl.Render()
}
