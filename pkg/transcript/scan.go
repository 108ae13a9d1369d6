package transcript

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var supportedExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".vtt":      true,
	".pdf":      true,
	".md":       true,
	".markdown": true,
}

// IsSupported reports whether path has a transcript extension.
func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scan returns the transcript files at path. A file is returned as-is when
// supported; a directory is walked recursively, skipping hidden entries.
// Results are sorted.
func Scan(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if IsSupported(path) {
			return []string{path}, nil
		}
		return []string{}, nil
	}

	files := make([]string, 0)
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsSupported(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

var (
	// Recording exports: Meeting Title-YYYYMMDD HHMM-1.vtt
	recordingNameRegex = regexp.MustCompile(`^(.+)-(\d{8})\s+(\d{4})-\d+$`)

	// Transcript exports: Transcript_Owner_s meeting_YYYYMMDD
	exportNameRegex = regexp.MustCompile(`^Transcript_(.+)_(\d{8})$`)

	// Trailing date: Meeting Name - 09092025 or Meeting Name 20250909
	trailingDateRegex = regexp.MustCompile(`^(.+?)[\s_-]+(\d{8})$`)
)

// TitleFromPath derives a meeting title from a file name: recording and
// export date suffixes are dropped, underscores and dashes become spaces and
// the result is title-cased.
func TitleFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch {
	case recordingNameRegex.MatchString(name):
		name = recordingNameRegex.FindStringSubmatch(name)[1]
	case exportNameRegex.MatchString(name):
		name = exportNameRegex.FindStringSubmatch(name)[1]
	case trailingDateRegex.MatchString(name):
		name = trailingDateRegex.FindStringSubmatch(name)[1]
	}

	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "Meeting"
	}
	return cases.Title(language.English).String(name)
}
