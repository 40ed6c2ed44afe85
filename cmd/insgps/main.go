// Command insgps drives the loosely-coupled INS/GPS fusion engine from a
// file of JSON-encoded packets, a thin flag-parsing and wiring layer over
// the fusion/config/ins/kalman/timesync/report libraries, per spec.md §6.
// Grounded on the teacher's sim/ahrs_sim.go main(): flag registration,
// parse, wire providers, run, report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/westphae/insgps/config"
	"github.com/westphae/insgps/fusion"
	"github.com/westphae/insgps/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("insgps", flag.ContinueOnError)
	var (
		inputPath  string
		outputPath string
		serveAddr  string
	)
	fs.StringVar(&inputPath, "input", "", "Path to a file of newline-delimited JSON packets (default: stdin)")
	fs.StringVar(&outputPath, "output", "", "Path to the output text log (default: stdout is not used; a default filename is chosen)")
	fs.StringVar(&serveAddr, "websocket_addr", "", "If set, also serve live records over websocket at this address, e.g. \":8080\"")

	b := config.Register(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return -1
	}
	fs.Visit(b.MarkExplicit)

	cfg, err := b.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}

	var in io.Reader = os.Stdin
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return -1
		}
		defer f.Close()
		in = f
	}

	var src Source = newJSONLSource(in)
	hasStart, start, startErr := parseGPST(b.StartGPST)
	hasEnd, end, endErr := parseGPST(b.EndGPST)
	if startErr != nil || endErr != nil {
		fmt.Fprintln(os.Stderr, "invalid --start_gpst/--end_gpst")
		return -1
	}
	if hasStart || hasEnd {
		src = newGPSTWindow(src, hasStart, start, hasEnd, end)
	}

	if outputPath == "" {
		outputPath = "insgps_output.csv"
	}
	text, err := report.NewTextWriter(outputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	defer text.Close()

	var writer report.Writer = &report.Filter{
		Next:       text,
		DumpAtTU:   b.DumpUpdate,
		DumpAtMU:   b.DumpCorrect,
		DumpStdDev: b.DumpStdDev,
	}

	if serveAddr != "" {
		ws := report.NewWebSocketWriter()
		go ws.Run()
		http.Handle("/room", ws)
		go func() {
			log.Println("insgps: serving live records on", serveAddr)
			if err := http.ListenAndServe(serveAddr, nil); err != nil {
				log.Println("insgps: websocket server:", err)
			}
		}()
		writer = multiWriter{text: writer, ws: ws}
	}

	ctrl := fusion.NewController(cfg, writer)
	ctrl.SetCalendarOffset(b.CalendarHr)
	if err := ctrl.Run(context.Background(), src); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	return 0
}

// multiWriter fans each Record out to the text log and the websocket
// room when --websocket_addr is set.
type multiWriter struct {
	text report.Writer
	ws   *report.WebSocketWriter
}

func (m multiWriter) Write(r report.Record) {
	m.text.Write(r)
	m.ws.Write(r)
}

func (m multiWriter) Close() error { return m.text.Close() }

// parseGPST parses spec.md §6's --start_gpst/--end_gpst value, either a
// bare "seconds" or "WN:seconds"; the week number is accepted for
// compatibility with the documented surface but not applied, since
// packet itow is already seconds-of-week and runs spanning multiple GPS
// weeks are outside this engine's bounded-history scope.
func parseGPST(s string) (has bool, seconds float64, err error) {
	if s == "" {
		return false, 0, nil
	}
	parts := strings.SplitN(s, ":", 2)
	raw := parts[len(parts)-1]
	v, perr := strconv.ParseFloat(raw, 64)
	if perr != nil {
		return false, 0, perr
	}
	return true, v, nil
}
