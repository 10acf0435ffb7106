// Command stwo-bench times the verifier's hot kernels across domain sizes
// and renders the sweep as an HTML chart.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// timeKernel reports the per-iteration cost of fn in microseconds.
func timeKernel(iters int, fn func()) float64 {
	start := time.Now()
	for i := 0; i < iters; i++ {
		fn()
	}
	return float64(time.Since(start).Microseconds()) / float64(iters)
}

// benchBatchInverse measures Montgomery batch inversion at size 2^logSize.
func benchBatchInverse(logSize uint32) float64 {
	elems := make([]core.QM31, 1<<logSize)
	for i := range elems {
		elems[i] = core.NewQM31(core.NewM31(uint64(i)+1), 2, 3, 4)
	}
	return timeKernel(8, func() {
		if _, err := core.BatchInverseQM31(elems); err != nil {
			log.Fatalf("batch inverse: %v", err)
		}
	})
}

// benchKeccakLayer measures hashing one full Merkle layer of 2^logSize
// nodes.
func benchKeccakLayer(logSize uint32) float64 {
	var child core.Hash
	return timeKernel(4, func() {
		for i := 0; i < 1<<logSize; i++ {
			child = core.Keccak256(child[:], child[:])
		}
	})
}

// benchChannelDraws measures drawing 2^logSize secure felts.
func benchChannelDraws(logSize uint32) float64 {
	return timeKernel(4, func() {
		ch := utils.NewChannel(core.Hash{}, 0)
		if _, err := ch.DrawSecureFelts(1 << logSize); err != nil {
			log.Fatalf("channel draw: %v", err)
		}
	})
}

// benchDomainEnumeration measures materializing every point of a canonic
// domain.
func benchDomainEnumeration(logSize uint32) float64 {
	domain := core.CanonicDomain(logSize)
	return timeKernel(4, func() {
		for i := 0; i < domain.Size(); i++ {
			_ = domain.At(i)
		}
	})
}

func toLineItems(vals []float64) []opts.LineData {
	out := make([]opts.LineData, len(vals))
	for i, v := range vals {
		out[i] = opts.LineData{Value: v}
	}
	return out
}

func main() {
	out := flag.String("out", "stwo-bench.html", "output HTML report path")
	minLog := flag.Uint("min-log", 6, "smallest log2 size to sweep")
	maxLog := flag.Uint("max-log", 14, "largest log2 size to sweep")
	flag.Parse()

	if *minLog > *maxLog || *maxLog > 20 {
		log.Fatal("invalid sweep range")
	}

	kernels := []struct {
		name string
		fn   func(uint32) float64
	}{
		{"batch inverse (QM31)", benchBatchInverse},
		{"keccak merkle layer", benchKeccakLayer},
		{"channel secure felts", benchChannelDraws},
		{"domain enumeration", benchDomainEnumeration},
	}

	var axis []string
	results := make([][]float64, len(kernels))
	for logSize := uint32(*minLog); logSize <= uint32(*maxLog); logSize++ {
		axis = append(axis, fmt.Sprintf("2^%d", logSize))
		for k, kernel := range kernels {
			cost := kernel.fn(logSize)
			results[k] = append(results[k], cost)
			fmt.Printf("%-24s %-6s %10.1f us\n", kernel.name, axis[len(axis)-1], cost)
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "stwo-verifier kernel sweep",
			Subtitle: "per-call cost by domain size",
		}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "stwo-bench", Width: "1200px", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "microseconds", Type: "log"}),
	)
	line.SetXAxis(axis)
	for k, kernel := range kernels {
		line.AddSeries(kernel.name, toLineItems(results[k]))
	}

	page := components.NewPage()
	page.AddCharts(line)
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("failed to create report: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	fmt.Printf("report written to %s\n", *out)
}
