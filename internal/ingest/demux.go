package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Dump framing constants. The boundary is a fixed-width line of "="
// characters; file boundaries are strictly delimiter-based and never
// inferred from content.
const (
	boundaryWidth    = 48
	fileHeaderPrefix = "FILE: "

	// maxLineBytes bounds the scanner's token size so memory use stays
	// independent of the total dump size.
	maxLineBytes = 1 << 20
)

var boundaryLine = strings.Repeat("=", boundaryWidth)

// demuxState tracks progress through one block of the content dump.
// A block is: opening boundary, "FILE: <name>" header, body-opening
// boundary, body lines, closing boundary. The closing boundary flushes the
// block and returns to awaitingOpen.
type demuxState int

const (
	awaitingOpen demuxState = iota
	awaitingHeader
	awaitingBodyOpen
	inBody
)

func (s demuxState) String() string {
	switch s {
	case awaitingOpen:
		return "awaiting_open"
	case awaitingHeader:
		return "awaiting_header"
	case awaitingBodyOpen:
		return "awaiting_body_open"
	case inBody:
		return "in_body"
	default:
		return "unknown"
	}
}

// DemuxContent scans a content dump line by line and invokes emit once per
// completed block with the file's logical name and its body lines. Lines
// that fit no transition for the current state are ignored. If input ends
// with a named, non-empty body still open (a dump missing its final
// closing boundary), the partial block is flushed as a best-effort record.
//
// The scan is one-shot over one dump: it is not re-entrant across calls
// and must consume lines strictly in arrival order. Returns the number of
// records emitted.
func DemuxContent(r io.Reader, emit func(name string, body []string) error) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	state := awaitingOpen
	var name string
	var body []string
	emitted := 0

	flush := func() error {
		if err := emit(name, body); err != nil {
			return fmt.Errorf("emit %s: %w", name, err)
		}
		emitted++
		state = awaitingOpen
		name = ""
		body = nil
		return nil
	}

	for sc.Scan() {
		line := sc.Text()

		if line == boundaryLine {
			switch state {
			case awaitingOpen:
				state = awaitingHeader
			case awaitingBodyOpen:
				state = inBody
			case inBody:
				if err := flush(); err != nil {
					return emitted, err
				}
			}
			// A boundary while awaiting the header is ignored, matching
			// the dump producer's framing.
			continue
		}

		switch {
		case state == awaitingHeader && strings.HasPrefix(line, fileHeaderPrefix):
			name = strings.TrimSpace(line[len(fileHeaderPrefix):])
			state = awaitingBodyOpen
		case state == inBody:
			body = append(body, line)
		}
	}
	if err := sc.Err(); err != nil {
		return emitted, fmt.Errorf("scanning content dump: %w", err)
	}

	// End-of-input flush for a dump that omits the trailing boundary.
	if name != "" && len(body) > 0 {
		if err := flush(); err != nil {
			return emitted, err
		}
	}

	return emitted, nil
}

// DemuxContentFile opens the staged content dump and demuxes it. A missing
// file reports ErrSourceUnavailable so the caller can fail the job as
// "content missing".
func DemuxContentFile(path string, emit func(name string, body []string) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrSourceUnavailable, path)
		}
		return 0, fmt.Errorf("opening content dump: %w", err)
	}
	defer f.Close()
	return DemuxContent(f, emit)
}
