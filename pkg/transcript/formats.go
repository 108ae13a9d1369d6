package transcript

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	// 0:11 : Speaker Name : text
	txtExportLineRegex = regexp.MustCompile(`^(\d+):(\d{2})\s*:\s*([^:]+?)\s*:\s*(.+)$`)

	// 1 "Speaker Name" (speaker_id) or 1 "" (0)
	vttCueHeaderRegex = regexp.MustCompile(`^\d+\s+"([^"]*)"(?:\s+\((\d+)\))?`)

	// 00:00:05.579 --> 00:00:06.858
	vttTimingRegex = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}\.\d{3})\s+-->\s+(\d{2}:\d{2}:\d{2}\.\d{3})`)
)

// ParseTXTExport reads "M:SS : Speaker : text" lines. Lines in any other
// shape are counted in skipped and otherwise ignored.
func ParseTXTExport(r io.Reader) (segments []Segment, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		m := txtExportLineRegex.FindStringSubmatch(line)
		if m == nil {
			skipped++
			continue
		}

		mins, _ := strconv.Atoi(m[1])
		secs, _ := strconv.Atoi(m[2])
		ms := (mins*60 + secs) * 1000

		segments = append(segments, Segment{
			Speaker: strings.TrimSpace(m[3]),
			Text:    strings.TrimSpace(m[4]),
			StartMs: ms,
			EndMs:   ms,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return segments, skipped, nil
}

// ParseVTT reads a WebVTT transcript whose cues carry `N "Speaker" (id)` headers.
// Plain numeric cue identifiers are accepted; their cues have no speaker.
func ParseVTT(r io.Reader) ([]Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		segments []Segment
		current  *Segment
	)
	flush := func() {
		if current != nil && current.Text != "" {
			segments = append(segments, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "WEBVTT") || strings.HasPrefix(line, "NOTE") {
			continue
		}

		if m := vttCueHeaderRegex.FindStringSubmatch(line); m != nil {
			flush()
			current = &Segment{Speaker: m[1], SpeakerID: m[2]}
			continue
		}

		if m := vttTimingRegex.FindStringSubmatch(line); m != nil {
			if current == nil || current.Text != "" {
				flush()
				current = &Segment{}
			}
			current.StartMs = parseVTTTimestamp(m[1])
			current.EndMs = parseVTTTimestamp(m[2])
			continue
		}

		if _, err := strconv.Atoi(line); err == nil {
			flush()
			current = &Segment{}
			continue
		}

		if current == nil {
			current = &Segment{}
		}
		if current.Text != "" {
			current.Text += " "
		}
		current.Text += line
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

// parseVTTTimestamp converts HH:MM:SS.mmm to milliseconds.
func parseVTTTimestamp(ts string) int {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0
	}

	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])

	secParts := strings.SplitN(parts[2], ".", 2)
	seconds, _ := strconv.Atoi(secParts[0])
	millis := 0
	if len(secParts) > 1 {
		millis, _ = strconv.Atoi(secParts[1])
	}

	return hours*3600000 + minutes*60000 + seconds*1000 + millis
}
