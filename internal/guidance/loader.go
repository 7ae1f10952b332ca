// Package guidance loads department inquiry and comparison guidance from
// JSON files and caches the parsed content. The loader is constructed once
// and injected wherever guidance is needed; it keeps no global state.
package guidance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// comparisonRule is one entry of the comparison guidance file, keyed either
// by a single department name or by a "deptA|deptB" pair.
type comparisonRule struct {
	Description string   `json:"description"`
	Rules       []string `json:"rules"`
}

type cacheEntry struct {
	modTime time.Time
	inquiry map[string]string
	compare map[string]comparisonRule
}

// Loader reads guidance files on demand and caches them per path, reloading
// when the file's modification time changes.
type Loader struct {
	mu  sync.Mutex
	dir string
	log *zap.Logger

	inquiryFile    string
	comparisonFile string
	cache          map[string]cacheEntry
}

// Option tweaks a Loader.
type Option func(*Loader)

// WithFiles overrides the default guidance file names inside the base dir.
func WithFiles(inquiry, comparison string) Option {
	return func(l *Loader) {
		l.inquiryFile = inquiry
		l.comparisonFile = comparison
	}
}

// NewLoader builds a loader over the directory holding the guidance files.
func NewLoader(dir string, log *zap.Logger, opts ...Option) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loader{
		dir:            dir,
		log:            log,
		inquiryFile:    "department_inquiry_guidance.json",
		comparisonFile: "department_comparison_guidance.json",
		cache:          make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// InquiryGuidance returns the inquiry guidance text for a department, or ""
// when the department (or the file) is unknown. A department given as
// "primary-secondary" is looked up by its primary part first.
func (l *Loader) InquiryGuidance(department string) string {
	if department == "" {
		return ""
	}
	entry, err := l.load(l.inquiryFile, loadInquiry)
	if err != nil {
		l.log.Warn("inquiry guidance unavailable", zap.String("department", department), zap.Error(err))
		return ""
	}
	primary := primaryOf(department)
	if text, ok := entry.inquiry[department]; ok {
		return text
	}
	return entry.inquiry[primary]
}

// ComparisonGuidance builds the differential guidance between a predicted
// department and its closest candidate: the pairwise rule when one exists,
// plus each primary department's own selection rules. Returns "" when
// nothing applies.
func (l *Loader) ComparisonGuidance(dept, candidate string) string {
	if dept == "" || candidate == "" {
		return ""
	}
	entry, err := l.load(l.comparisonFile, loadComparison)
	if err != nil {
		l.log.Warn("comparison guidance unavailable", zap.String("department", dept), zap.Error(err))
		return ""
	}

	var parts []string
	sec1, sec2 := secondaryOf(dept), secondaryOf(candidate)
	for _, key := range []string{
		sec1 + "|" + sec2, sec2 + "|" + sec1,
		dept + "|" + candidate, candidate + "|" + dept,
	} {
		if rule, ok := entry.compare[key]; ok {
			parts = append(parts, formatRule(rule.Description, rule.Rules))
			break
		}
	}

	p1, p2 := primaryOf(dept), primaryOf(candidate)
	if rule, ok := entry.compare[p1]; ok {
		parts = append(parts, formatRule(p1+" selection guidance", rule.Rules))
	}
	if p2 != p1 {
		if rule, ok := entry.compare[p2]; ok {
			parts = append(parts, formatRule(p2+" selection guidance", rule.Rules))
		}
	}
	return strings.Join(parts, "\n\n")
}

// load returns the cached entry for the file, re-reading it when the on-disk
// modification time moved.
func (l *Loader) load(name string, parse func([]byte, *cacheEntry) error) (cacheEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return cacheEntry{}, err
	}
	if entry, ok := l.cache[path]; ok && entry.modTime.Equal(info.ModTime()) {
		return entry, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cacheEntry{}, err
	}
	entry := cacheEntry{modTime: info.ModTime()}
	if err := parse(data, &entry); err != nil {
		return cacheEntry{}, fmt.Errorf("parse %s: %w", name, err)
	}
	l.cache[path] = entry
	l.log.Debug("guidance file loaded", zap.String("file", name))
	return entry, nil
}

func loadInquiry(data []byte, entry *cacheEntry) error {
	return json.Unmarshal(data, &entry.inquiry)
}

func loadComparison(data []byte, entry *cacheEntry) error {
	return json.Unmarshal(data, &entry.compare)
}

func formatRule(title string, rules []string) string {
	var b strings.Builder
	b.WriteString("[" + title + "]")
	for _, r := range rules {
		b.WriteString("\n- " + r)
	}
	return b.String()
}

func primaryOf(dept string) string {
	if i := strings.Index(dept, "-"); i >= 0 {
		return dept[:i]
	}
	return dept
}

func secondaryOf(dept string) string {
	if i := strings.Index(dept, "-"); i >= 0 {
		return dept[i+1:]
	}
	return dept
}
