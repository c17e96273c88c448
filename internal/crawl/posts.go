package crawl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/TobiSchelling/hltvscan/internal/hltv"
)

// PostItem is one item of a thread page. The root post has ReplyNum 0 and an
// empty Anchor.
type PostItem struct {
	ReplyNum   int
	Anchor     string
	Content    string
	Time       time.Time
	AuthorName string
	AuthorURL  string
	AuthorKey  string
}

// Key returns the post's natural key within the given thread.
func (p PostItem) Key(threadKey string) string {
	return hltv.PostKey(threadKey, p.Anchor)
}

// ThreadPage is a parsed thread: the root post first, then replies in page
// order. Time is the root post's timestamp.
type ThreadPage struct {
	Key   string
	Time  time.Time
	Posts []PostItem
}

// LoadThread downloads the page of the thread with the given natural key and
// returns its posts, plus the bytes downloaded.
func (f *Fetcher) LoadThread(ctx context.Context, threadKey string) (*ThreadPage, int64, error) {
	pageURL := hltv.ThreadURL(f.BaseURL, threadKey)
	doc, n, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, n, err
	}

	page := &ThreadPage{Key: threadKey}
	var itemErr error
	doc.Find(".post, .forumthread").EachWithBreak(func(i int, s *goquery.Selection) bool {
		item, err := f.parsePost(s)
		if err != nil {
			itemErr = fmt.Errorf("item %d: %w", i+1, err)
			return false
		}
		// Only the first item is the root post; any other item without a
		// reply number would take over the root's key.
		switch {
		case i == 0 && item.Anchor != "":
			itemErr = fmt.Errorf("item 1 is reply #%d, expected the root post", item.ReplyNum)
			return false
		case i > 0 && item.Anchor == "":
			itemErr = fmt.Errorf("item %d has no reply number", i+1)
			return false
		case i == 0:
			page.Time = item.Time
		}
		page.Posts = append(page.Posts, item)
		return true
	})
	if itemErr != nil {
		return nil, n, &FetchError{URL: pageURL, Err: itemErr}
	}
	if len(page.Posts) == 0 {
		return nil, n, &FetchError{URL: pageURL, Err: fmt.Errorf("no posts on page")}
	}
	return page, n, nil
}

func (f *Fetcher) parsePost(s *goquery.Selection) (PostItem, error) {
	var item PostItem

	middle := s.Find(".forum-middle").First()
	if middle.Length() == 0 {
		return item, fmt.Errorf("post body missing")
	}
	item.Content = strings.TrimSpace(middle.Text())

	stamp := cleanText(s.Find(".forum-bottombar").First().Text())
	ts, err := time.ParseInLocation(TimestampLayout, stamp, f.Location)
	if err != nil {
		return item, fmt.Errorf("timestamp %q: %w", stamp, err)
	}
	item.Time = ts

	// Only replies carry a reply number and an anchor id.
	if num := s.Find(".replyNum").First(); num.Length() > 0 {
		text := strings.TrimPrefix(cleanText(num.Text()), "#")
		item.ReplyNum, err = strconv.Atoi(text)
		if err != nil || item.ReplyNum <= 0 {
			return item, fmt.Errorf("reply number %q is not a positive integer", text)
		}
		id, ok := s.Attr("id")
		if !ok || id == "" {
			return item, fmt.Errorf("reply %d has no anchor id", item.ReplyNum)
		}
		item.Anchor = id
	}

	author := s.Find(".authorAnchor").First()
	href, ok := firstHref(author)
	if !ok {
		return item, fmt.Errorf("author link missing")
	}
	item.AuthorKey, err = hltv.ProfileKeyFromURL(href)
	if err != nil {
		return item, err
	}
	item.AuthorName = cleanText(author.Text())
	item.AuthorURL = href
	return item, nil
}
