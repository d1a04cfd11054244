package report

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WriteURLList writes canonical URLs one per line in lexicographic
// order, each line newline-terminated, with no header or footer. This
// is the file format consumers of the discoverer ingest, so it must
// stay free of decoration.
func WriteURLList(w io.Writer, urls []string) error {
	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Strings(sorted)

	bw := bufio.NewWriter(w)
	for _, u := range sorted {
		if _, err := bw.WriteString(u); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadURLList reads a URL list file back into a slice, one URL per
// line. Blank lines are skipped so a hand-edited file still loads.
func ReadURLList(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// OutputBaseName derives the result file name for a crawl target:
// the host without the www. prefix, with a .txt extension.
// "https://www.example.com" and "example.com" both map to
// "example.com.txt", so repeated crawls of the same catalog overwrite
// one file.
func OutputBaseName(target string) string {
	host := target
	if strings.Contains(target, "://") {
		if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	} else {
		// Strip any path on a bare "example.com/shop" style target.
		host, _, _ = strings.Cut(host, "/")
	}

	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	return host + ".txt"
}

// WriteURLListFile writes the URL list to outputDir using the derived
// file name, creating the directory if needed. It returns the full
// path of the written file.
func WriteURLListFile(outputDir, target string, urls []string) (string, error) {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(outputDir, OutputBaseName(target))
	f, err := os.Create(path) //nolint:gosec // path is derived from the crawl target
	if err != nil {
		return "", fmt.Errorf("failed to create result file: %w", err)
	}

	if err := WriteURLList(f, urls); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write result file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close result file: %w", err)
	}

	return path, nil
}
