package main

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/westphae/insgps/packet"
)

// jsonlSource is this CLI's concrete Source: the framed-record packet
// decoder itself is an external collaborator per spec.md §1 (out of
// scope for the engine), so this reads one JSON-encoded packet.Packet
// per line rather than a binary framed format, the simplest decoder
// that satisfies the fusion.Source contract for driving the engine from
// a file. Grounded on the teacher's listener goroutines (mpu_listener.go,
// gdl90Listener) in its read-until-EOF, wrap-errors-don't-panic shape.
type jsonlSource struct {
	scanner *bufio.Scanner
}

func newJSONLSource(r io.Reader) *jsonlSource {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &jsonlSource{scanner: s}
}

// Next decodes the next line into a packet.Packet, returning io.EOF once
// the input is exhausted.
func (s *jsonlSource) Next() (packet.Packet, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p packet.Packet
		if err := json.Unmarshal(line, &p); err != nil {
			return packet.Packet{}, err
		}
		return p, nil
	}
	if err := s.scanner.Err(); err != nil {
		return packet.Packet{}, err
	}
	return packet.Packet{}, io.EOF
}

// gpstWindow wraps a Source for --start_gpst/--end_gpst (seconds of
// week): it skips packets before start and ends the stream with io.EOF at
// the first packet after end. A bound applies only when its flag was
// given (hasStart/hasEnd), whatever its value.
type gpstWindow struct {
	inner      Source
	start, end float64
	hasStart, hasEnd bool
}

// Source is a local alias so this file doesn't need to import the
// fusion package just for the interface name.
type Source interface {
	Next() (packet.Packet, error)
}

func newGPSTWindow(inner Source, hasStart bool, start float64, hasEnd bool, end float64) *gpstWindow {
	return &gpstWindow{inner: inner, start: start, end: end, hasStart: hasStart, hasEnd: hasEnd}
}

func (w *gpstWindow) Next() (packet.Packet, error) {
	for {
		p, err := w.inner.Next()
		if err != nil {
			return p, err
		}
		itow := p.ITOW()
		if w.hasStart && itow < w.start {
			continue
		}
		if w.hasEnd && itow > w.end {
			return packet.Packet{}, io.EOF
		}
		return p, nil
	}
}
