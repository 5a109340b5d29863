// Package registry persists reusable solutions as one file per entry and
// answers nearest-neighbor queries over their descriptions through a
// derived sqlite index. The files are the source of truth; the index is a
// cache that can always be rebuilt from them.
package registry

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/valet/internal/extract"
)

// SolutionEntry is one persisted reusable solution.
type SolutionEntry struct {
	Name         string    `yaml:"name"`
	Description  string    `yaml:"description"`
	Version      int       `yaml:"version"`
	Dependencies []string  `yaml:"dependencies,omitempty"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`

	// Code is the program body, stored as the file's fenced block rather
	// than frontmatter.
	Code string `yaml:"-"`

	// path is the file this entry was loaded from. A hand-written flat
	// file may carry a title that differs from its filename; writes and
	// deletes must follow the file, not the name.
	path string
}

const frontmatterDelim = "---"

// ParseSolution decodes a solution file in either supported layout: YAML
// frontmatter followed by a fenced code block, or a flat document whose
// first heading names the entry, with prose as the description and one
// fenced block as the code. fallbackName is used when the document names
// nothing, typically the file's base name.
func ParseSolution(data []byte, fallbackName string) (SolutionEntry, error) {
	text := string(data)
	if rest, ok := strings.CutPrefix(text, frontmatterDelim+"\n"); ok {
		return parseRich(rest, fallbackName)
	}
	return parseFlat(text, fallbackName), nil
}

func parseRich(rest, fallbackName string) (SolutionEntry, error) {
	head, body, found := strings.Cut(rest, "\n"+frontmatterDelim)
	if !found {
		return SolutionEntry{}, fmt.Errorf("unterminated frontmatter")
	}
	var entry SolutionEntry
	if err := yaml.Unmarshal([]byte(head), &entry); err != nil {
		return SolutionEntry{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	if entry.Name == "" {
		entry.Name = fallbackName
	}
	entry.Code = extract.Code(body)
	return entry, nil
}

func parseFlat(text, fallbackName string) SolutionEntry {
	entry := SolutionEntry{Name: fallbackName}
	entry.Code = extract.Code(text)

	var desc []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			break
		}
		if name, ok := strings.CutPrefix(trimmed, "# "); ok {
			if entry.Name == fallbackName || entry.Name == "" {
				entry.Name = strings.TrimSpace(name)
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#") || trimmed == "" {
			continue
		}
		desc = append(desc, trimmed)
	}
	entry.Description = strings.Join(desc, " ")
	return entry
}

// Encode renders the entry in the rich layout. Saved entries always use
// this layout; the flat layout exists for hand-written files.
func (e SolutionEntry) Encode() ([]byte, error) {
	head, err := yaml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(frontmatterDelim + "\n")
	sb.Write(head)
	sb.WriteString(frontmatterDelim + "\n\n```python\n")
	sb.WriteString(strings.TrimRight(e.Code, "\n"))
	sb.WriteString("\n```\n")
	return []byte(sb.String()), nil
}
