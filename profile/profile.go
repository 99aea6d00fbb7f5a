// Package profile counts instruction fetches per address and reports
// the execution frequency of each instruction after a run.
package profile

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ezrec/simplevm/translate"
)

var f = translate.From

// Profiler holds one fetch counter per assembled instruction.
type Profiler struct {
	Counts []int // Fetches per address.
	Stray  int   // Fetches at addresses outside of Counts.
}

// NewProfiler creates a profiler for a program of size instructions.
func NewProfiler(size int) (pr *Profiler) {
	pr = &Profiler{
		Counts: make([]int, max(size, 0)),
	}

	return
}

// Fetch counts a single fetch at ip.
func (pr *Profiler) Fetch(ip int) {
	if ip < 0 || ip >= len(pr.Counts) {
		pr.Stray++
		return
	}
	pr.Counts[ip]++
}

// Total returns the number of fetches, stray ones included.
func (pr *Profiler) Total() (total int) {
	total = pr.Stray
	for _, count := range pr.Counts {
		total += count
	}
	return
}

// Reset zeros all of the counters.
func (pr *Profiler) Reset() {
	clear(pr.Counts)
	pr.Stray = 0
}

// Record is the report entry for a single instruction.
type Record struct {
	Ip      int     // Instruction address.
	LineNo  int     // 1-based instruction number.
	Count   int     // Fetches of the instruction.
	Percent float64 // Share of all fetches.
}

// Report returns a record for every address that was fetched at least once,
// in address order.
func (pr *Profiler) Report() (records []Record) {
	total := pr.Total()
	if total == 0 {
		return
	}

	for ip, count := range pr.Counts {
		if count == 0 {
			continue
		}
		records = append(records, Record{
			Ip:      ip,
			LineNo:  ip + 1,
			Count:   count,
			Percent: float64(count) * 100 / float64(total),
		})
	}

	return
}

// String formats the record, with the share fixed at four decimals.
// Numbers are never locale grouped.
func (rec Record) String() string {
	return f("line %v executed %v times, %v%%",
		strconv.Itoa(rec.LineNo),
		strconv.Itoa(rec.Count),
		strconv.FormatFloat(rec.Percent, 'f', 4, 64))
}

// WriteTo writes the text report, one line per record.
func (pr *Profiler) WriteTo(w io.Writer) (total int64, err error) {
	for _, rec := range pr.Report() {
		var n int
		n, err = io.WriteString(w, rec.String()+"\n")
		total += int64(n)
		if err != nil {
			return
		}
	}
	if pr.Stray > 0 {
		var n int
		n, err = translate.To(w, "%v fetches outside of the program\n", strconv.Itoa(pr.Stray))
		total += int64(n)
	}
	return
}

// Chart renders the report as an HTML bar chart.
func (pr *Profiler) Chart(w io.Writer, title string) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: f("%v fetches", strconv.Itoa(pr.Total())),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	var labels []string
	var data []opts.BarData
	for _, rec := range pr.Report() {
		labels = append(labels, strconv.Itoa(rec.LineNo))
		data = append(data, opts.BarData{
			Name:  rec.String(),
			Value: rec.Count,
		})
	}

	bar.SetXAxis(labels).AddSeries("fetches", data)

	return bar.Render(w)
}
