package crawl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/TobiSchelling/hltvscan/internal/hltv"
)

// ThreadRow is one row of a forum's thread listing.
type ThreadRow struct {
	Title      string
	URL        string
	Key        string
	Replies    int
	AuthorName string
	AuthorURL  string
	AuthorKey  string
}

// ListThreads downloads the index page of the forum with the given natural key
// and returns its thread rows in page order, plus the bytes downloaded.
func (f *Fetcher) ListThreads(ctx context.Context, forumKey string) ([]ThreadRow, int64, error) {
	pageURL := hltv.ForumURL(f.BaseURL, forumKey)
	doc, n, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, n, err
	}

	listing := doc.Find(".forumthreads").First()
	if listing.Length() == 0 {
		return nil, n, &FetchError{URL: pageURL, Err: fmt.Errorf("no .forumthreads listing on page")}
	}

	var rows []ThreadRow
	var rowErr error
	listing.Find("tr.tablerow").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		row, err := parseThreadRow(tr)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i+1, err)
			return false
		}
		rows = append(rows, row)
		return true
	})
	if rowErr != nil {
		return nil, n, &FetchError{URL: pageURL, Err: rowErr}
	}
	return rows, n, nil
}

func parseThreadRow(tr *goquery.Selection) (ThreadRow, error) {
	var row ThreadRow

	name := tr.Find("td.name").First()
	href, ok := firstHref(name)
	if !ok {
		return row, fmt.Errorf("thread link missing")
	}
	key, err := hltv.ThreadKeyFromURL(href)
	if err != nil {
		return row, err
	}
	row.Title = cleanText(name.Text())
	row.URL = href
	row.Key = key

	replies := cleanText(tr.Find("td.replies").First().Text())
	row.Replies, err = strconv.Atoi(replies)
	if err != nil {
		return row, fmt.Errorf("reply count %q: %w", replies, err)
	}

	author := tr.Find("td.author").First()
	authorHref, ok := firstHref(author)
	if !ok {
		return row, fmt.Errorf("author link missing")
	}
	row.AuthorKey, err = hltv.ProfileKeyFromURL(authorHref)
	if err != nil {
		return row, err
	}
	row.AuthorName = cleanText(author.Text())
	row.AuthorURL = authorHref
	return row, nil
}

// firstHref returns the href of s itself if it is a link, or of its first
// descendant link.
func firstHref(s *goquery.Selection) (string, bool) {
	if href, ok := s.Attr("href"); ok {
		return href, true
	}
	return s.Find("a[href]").First().Attr("href")
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
