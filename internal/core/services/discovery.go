package services

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
	"github.com/custodia-labs/filingwatch/internal/logger"
	"github.com/custodia-labs/filingwatch/internal/normalisers/idx"
)

// DefaultIndexRoot is the archive directory holding daily indexes.
const DefaultIndexRoot = "edgar/daily-index"

// IndexFile is a daily index document selected for a run.
type IndexFile struct {
	Path string
	Date time.Time
}

type discoveryLevel int

const (
	levelRoot discoveryLevel = iota
	levelYear
	levelQuarter
)

type discoveryItem struct {
	path    string
	level   discoveryLevel
	year    int
	quarter int
}

// Discovery walks the year/quarter/day index tree of the archive.
type Discovery struct {
	fetcher driven.Fetcher
	root    string
}

// NewDiscovery creates a walker rooted at root (DefaultIndexRoot if empty).
func NewDiscovery(fetcher driven.Fetcher, root string) *Discovery {
	if root == "" {
		root = DefaultIndexRoot
	}
	return &Discovery{fetcher: fetcher, root: strings.TrimSuffix(root, "/")}
}

// IndexFiles returns the daily index files dated on or after since, oldest
// first. Branches strictly older than since are never listed. Entries with
// unexpected names are logged and skipped; listing failures are returned.
func (d *Discovery) IndexFiles(ctx context.Context, since time.Time) ([]IndexFile, error) {
	since = domain.DayOf(since)
	sinceQuarter := quarterOf(since)

	queue := []discoveryItem{{path: d.root, level: levelRoot}}
	var files []IndexFile

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		listing, err := d.fetcher.ListDirectory(ctx, item.path)
		switch {
		case err == nil:
		case item.level != levelRoot && domain.IsRemoteNotFound(err):
			// Listed by its parent but not yet published.
			logger.Warn("discovery: %s is listed but missing, skipping", item.path)
			continue
		case domain.IsRemoteThrottled(err):
			logger.Warn("discovery: archive throttled listing %s", item.path)
			return nil, fmt.Errorf("list %s: %w", item.path, err)
		default:
			return nil, fmt.Errorf("list %s: %w", item.path, err)
		}

		for _, entry := range listing.Directory.Items {
			child := path.Join(item.path, strings.TrimSuffix(entry.Name, "/"))

			switch item.level {
			case levelRoot:
				year, err := strconv.Atoi(entry.Name)
				if !entry.IsDir() || err != nil {
					logger.Debug("discovery: skipping %s", child)
					continue
				}
				if year < since.Year() {
					continue
				}
				queue = append(queue, discoveryItem{path: child, level: levelYear, year: year})

			case levelYear:
				quarter, ok := parseQuarter(entry.Name)
				if !entry.IsDir() || !ok {
					logger.Debug("discovery: skipping %s", child)
					continue
				}
				if item.year == since.Year() && quarter < sinceQuarter {
					continue
				}
				queue = append(queue, discoveryItem{path: child, level: levelQuarter, year: item.year, quarter: quarter})

			case levelQuarter:
				if entry.IsDir() {
					logger.Debug("discovery: skipping directory %s", child)
					continue
				}
				date, ok := idx.DateFromFileName(entry.Name)
				if !ok {
					// Company, form and sitemap indexes share the directory.
					continue
				}
				if date.Before(since) {
					continue
				}
				files = append(files, IndexFile{Path: child, Date: date})
			}
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Date.Before(files[j].Date)
	})
	return files, nil
}

func parseQuarter(name string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.ToUpper(name), "QTR")
	if !ok {
		return 0, false
	}
	q, err := strconv.Atoi(rest)
	if err != nil || q < 1 || q > 4 {
		return 0, false
	}
	return q, true
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}
