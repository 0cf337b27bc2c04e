// Package capture decodes DUT I/Q dump files and keeps the catalog of fetched captures.
package capture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const markerPrefix = "0x00"

// ParseError reports a capture that cannot be decoded
type ParseError struct {
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", loc, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", loc, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IQ is one complex sample sequence
type IQ struct {
	I []int16
	Q []int16
}

// Len returns the number of samples
func (s IQ) Len() int {
	return len(s.I)
}

// Capture holds the two receive paths of one dump
type Capture struct {
	Path1 IQ
	Path2 IQ
}

// Paths returns both paths in order
func (c *Capture) Paths() [2]IQ {
	return [2]IQ{c.Path1, c.Path2}
}

// SignExtend12 interprets the low 12 bits of v as a two's complement value
func SignExtend12(v uint16) int16 {
	v &= 0x0FFF
	if v&0x0800 != 0 {
		v |= 0xF000
	}
	return int16(v)
}

// ParseFile decodes the capture at path
func ParseFile(path string) (*Capture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Msg: "open failed", Err: err}
	}
	defer file.Close()

	return parse(file, path)
}

// Parse decodes a capture. Marker lines alternate between path 1 and path 2;
// every other non-blank line is ignored.
func Parse(r io.Reader) (*Capture, error) {
	return parse(r, "<capture>")
}

func parse(r io.Reader, name string) (*Capture, error) {
	capture := &Capture{}
	paths := [2]*IQ{&capture.Path1, &capture.Path2}
	active := 0

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, markerPrefix) {
			continue
		}

		i, q, err := decodeMarker(line)
		if err != nil {
			return nil, &ParseError{Path: name, Line: lineNo, Msg: "malformed marker line", Err: err}
		}

		path := paths[active]
		path.I = append(path.I, i)
		path.Q = append(path.Q, q)
		active ^= 1
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: name, Msg: "read failed", Err: err}
	}

	return capture, nil
}

// decodeMarker reads Q from columns 4-6 and I from columns 7-9
func decodeMarker(line string) (i, q int16, err error) {
	if len(line) < 10 {
		return 0, 0, fmt.Errorf("need 10 characters, got %d", len(line))
	}

	qRaw, err := strconv.ParseUint(line[4:7], 16, 16)
	if err != nil {
		return 0, 0, err
	}
	iRaw, err := strconv.ParseUint(line[7:10], 16, 16)
	if err != nil {
		return 0, 0, err
	}
	return SignExtend12(uint16(iRaw)), SignExtend12(uint16(qRaw)), nil
}
