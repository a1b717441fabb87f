// Package tags loads the line-delimited list of hashtags to crawl.
package tags

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"igcrawler/pkg/logger"
)

// Load reads the tag list at path
func Load(path string, log logger.Logger) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tag file: %w", err)
	}
	defer f.Close()

	return Parse(f, log)
}

// Parse reads one tag per line. Surrounding whitespace and a leading '#' are
// stripped; blank lines and lines starting with "//" or "# " are skipped.
// Duplicates and tags that cannot be used as file names are dropped with a warning.
func Parse(r io.Reader, log logger.Logger) ([]string, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	var tags []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isComment(line) {
			continue
		}

		tag := strings.TrimPrefix(line, "#")
		if !Valid(tag) {
			log.WarnWithFields("Skipping invalid tag", map[string]interface{}{
				"line": lineNo,
				"tag":  line,
			})
			continue
		}
		if _, dup := seen[tag]; dup {
			log.WarnWithFields("Skipping duplicate tag", map[string]interface{}{
				"line": lineNo,
				"tag":  tag,
			})
			continue
		}

		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tag list: %w", err)
	}
	return tags, nil
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "//") || strings.HasPrefix(line, "# ") || line == "#"
}

// Valid reports whether tag is non-empty and safe to use as a file name
func Valid(tag string) bool {
	if tag == "" || tag == "." || tag == ".." {
		return false
	}
	return !strings.ContainsAny(tag, `/\ #`+"\x00\t")
}
