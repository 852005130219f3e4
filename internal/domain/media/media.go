package media

import (
	"regexp"
	"strings"
)

// Kind classifies a file by extension.
type Kind string

// File kinds.
const (
	KindPhoto   Kind = "photo"
	KindVideo   Kind = "video"
	KindIgnored Kind = "ignored"
	KindOther   Kind = "other"
)

// UnsortedPeriod is the album base used when no year/month is found in a path.
const UnsortedPeriod = "unsorted"

var periodRe = regexp.MustCompile(`((?:19|20)\d{2})[-_.]?(0[1-9]|1[0-2])`)

// File is a listed source entry.
type File struct {
	Path string
	Size int64
}

// Classifier maps file names to kinds using case-insensitive extension suffixes.
type Classifier struct {
	photo   []string
	video   []string
	ignored []string
}

// NewClassifier creates a Classifier. Extensions are normalized to lowercase with a leading dot.
func NewClassifier(photo, video, ignored []string) Classifier {
	return Classifier{
		photo:   normalize(photo),
		video:   normalize(video),
		ignored: normalize(ignored),
	}
}

// Kind returns the kind of name. Ignored extensions win over photo and video.
func (c Classifier) Kind(name string) Kind {
	low := strings.ToLower(name)
	switch {
	case hasSuffix(low, c.ignored):
		return KindIgnored
	case hasSuffix(low, c.photo):
		return KindPhoto
	case hasSuffix(low, c.video):
		return KindVideo
	default:
		return KindOther
	}
}

// Period extracts "YYYY_MM" from the first year/month match in path, or UnsortedPeriod.
func Period(path string) string {
	m := periodRe.FindStringSubmatch(path)
	if m == nil {
		return UnsortedPeriod
	}
	return m[1] + "_" + m[2]
}

// Album returns the grouping name for path: "<period>_photo" or "<period>_video".
func Album(path string, kind Kind) string {
	suffix := "photo"
	if kind == KindVideo {
		suffix = "video"
	}
	return Period(path) + "_" + suffix
}

func normalize(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func hasSuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
