// Package demux splits H.264 Annex-B byte streams into access units.
package demux

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/denis-giri/pdraw/internal/clock"
)

// NAL unit types used for access unit delimiting
const (
	NALTypeSlice = 1
	NALTypeIDR   = 5
	NALTypeSEI   = 6
	NALTypeSPS   = 7
	NALTypePPS   = 8
	NALTypeAUD   = 9
)

// NAL unit start codes
var (
	startCode3 = []byte{0x00, 0x00, 0x01}
	startCode4 = []byte{0x00, 0x00, 0x00, 0x01}
)

// ErrNoStartCode is returned when a buffer holds no Annex-B start code
var ErrNoStartCode = errors.New("no start code")

// NALUnit is one NAL unit including its start code
type NALUnit struct {
	Type uint8
	Data []byte
}

// IsVCL reports whether the unit carries slice data
func (n NALUnit) IsVCL() bool {
	return n.Type >= NALTypeSlice && n.Type <= NALTypeIDR
}

// firstSlice reports whether a VCL unit starts a new picture
// (first_mb_in_slice == 0, which is a single '1' bit in exp-Golomb).
func (n NALUnit) firstSlice() bool {
	hdr := headerOffset(n.Data)
	if hdr < 0 || hdr+1 >= len(n.Data) {
		return false
	}
	return n.Data[hdr+1]&0x80 != 0
}

// AccessUnit is the set of NAL units making up one coded picture
type AccessUnit struct {
	Data           []byte
	NALUnits       []NALUnit
	IsIDR          bool
	DemuxTimestamp uint64 // monotonic µs at which the unit left the demuxer
}

// Splitter groups NAL units into access units and caches the stream headers
type Splitter struct {
	clock clock.Clock

	spsCache   []byte
	ppsCache   []byte
	hasHeaders bool

	pending []NALUnit
	sawVCL  bool
}

// NewSplitter creates a splitter stamping access units with c
func NewSplitter(c clock.Clock) *Splitter {
	if c == nil {
		c = clock.Process()
	}
	return &Splitter{clock: c}
}

// Push feeds the NAL units of data and returns the access units they
// completed. The last access unit stays pending until the next picture
// starts or Flush is called.
func (s *Splitter) Push(data []byte) ([]AccessUnit, error) {
	nals, err := ParseNALUnits(data)
	if err != nil {
		return nil, err
	}

	var out []AccessUnit
	for _, nal := range nals {
		if s.startsNewUnit(nal) {
			if au, ok := s.emit(); ok {
				out = append(out, au)
			}
		}
		s.cache(nal)
		s.pending = append(s.pending, nal)
		if nal.IsVCL() {
			s.sawVCL = true
		}
	}
	return out, nil
}

// Flush returns the pending access unit, if it holds a picture
func (s *Splitter) Flush() (AccessUnit, bool) {
	return s.emit()
}

func (s *Splitter) startsNewUnit(nal NALUnit) bool {
	if !s.sawVCL {
		return false
	}
	switch nal.Type {
	case NALTypeAUD, NALTypeSPS, NALTypePPS, NALTypeSEI:
		return true
	case NALTypeSlice, NALTypeIDR:
		return nal.firstSlice()
	}
	return false
}

// cache keeps the latest SPS/PPS (only copied when seen, typically once per GOP)
func (s *Splitter) cache(nal NALUnit) {
	switch nal.Type {
	case NALTypeSPS:
		s.spsCache = append([]byte(nil), nal.Data...)
	case NALTypePPS:
		s.ppsCache = append([]byte(nil), nal.Data...)
		if len(s.spsCache) > 0 {
			s.hasHeaders = true
		}
	}
}

func (s *Splitter) emit() (AccessUnit, bool) {
	if !s.sawVCL {
		return AccessUnit{}, false
	}

	au := AccessUnit{NALUnits: s.pending}
	size := 0
	for _, nal := range s.pending {
		size += len(nal.Data)
		if nal.Type == NALTypeIDR {
			au.IsIDR = true
		}
	}
	au.Data = make([]byte, 0, size)
	for _, nal := range s.pending {
		au.Data = append(au.Data, nal.Data...)
	}
	au.DemuxTimestamp = s.clock.NowMicros()

	s.pending = nil
	s.sawVCL = false
	return au, true
}

// HasHeaders returns true if SPS/PPS headers are cached
func (s *Splitter) HasHeaders() bool {
	return s.hasHeaders
}

// SPS returns the cached SPS NAL unit
func (s *Splitter) SPS() []byte {
	return s.spsCache
}

// PPS returns the cached PPS NAL unit
func (s *Splitter) PPS() []byte {
	return s.ppsCache
}

// PrependHeaders prepends the cached SPS/PPS to an IDR access unit that
// does not carry them, so decoding can start mid-stream.
func (s *Splitter) PrependHeaders(au AccessUnit) []byte {
	if !s.hasHeaders || !au.IsIDR {
		return au.Data
	}
	for _, nal := range au.NALUnits {
		if nal.Type == NALTypeSPS {
			return au.Data
		}
	}

	result := make([]byte, 0, len(s.spsCache)+len(s.ppsCache)+len(au.Data))
	result = append(result, s.spsCache...)
	result = append(result, s.ppsCache...)
	result = append(result, au.Data...)
	return result
}

// ReadAll splits a complete Annex-B stream into access units
func ReadAll(r io.Reader, c clock.Clock) ([]AccessUnit, *Splitter, error) {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, nil, fmt.Errorf("read stream: %w", err)
	}

	s := NewSplitter(c)
	aus, err := s.Push(data)
	if err != nil {
		return nil, nil, err
	}
	if last, ok := s.Flush(); ok {
		aus = append(aus, last)
	}
	return aus, s, nil
}

// ParseNALUnits parses raw H.264 data into NAL units. Each unit keeps its
// start code and is copied out of data.
func ParseNALUnits(data []byte) ([]NALUnit, error) {
	if len(data) == 0 {
		return nil, nil
	}

	nalUnits := make([]NALUnit, 0, 8)
	offset := 0
	found := false

	for offset < len(data) {
		startCodeLen := 0
		if offset+4 <= len(data) && bytes.Equal(data[offset:offset+4], startCode4) {
			startCodeLen = 4
		} else if offset+3 <= len(data) && bytes.Equal(data[offset:offset+3], startCode3) {
			startCodeLen = 3
		} else {
			offset++
			continue
		}
		found = true

		nalStart := offset
		offset += startCodeLen
		if offset >= len(data) {
			break
		}

		nalType := data[offset] & 0x1F

		nalEnd := findNextStartCode(data, offset+1)
		if nalEnd == -1 {
			nalEnd = len(data)
		}

		nalUnits = append(nalUnits, NALUnit{
			Type: nalType,
			Data: append([]byte(nil), data[nalStart:nalEnd]...),
		})
		offset = nalEnd
	}

	if !found {
		return nil, ErrNoStartCode
	}
	return nalUnits, nil
}

// findNextStartCode finds the next start code position
func findNextStartCode(data []byte, offset int) int {
	for i := offset; i < len(data)-2; i++ {
		if data[i] == 0x00 && data[i+1] == 0x00 {
			if data[i+2] == 0x01 {
				return i
			}
			if i+3 < len(data) && data[i+2] == 0x00 && data[i+3] == 0x01 {
				return i
			}
		}
	}
	return -1
}

func headerOffset(data []byte) int {
	if len(data) >= 4 && bytes.Equal(data[0:4], startCode4) {
		return 4
	}
	if len(data) >= 3 && bytes.Equal(data[0:3], startCode3) {
		return 3
	}
	return -1
}

// ExtractNALType extracts the NAL unit type from raw data
func ExtractNALType(data []byte) uint8 {
	hdr := headerOffset(data)
	if hdr < 0 || hdr >= len(data) {
		return 0
	}
	return data[hdr] & 0x1F
}
