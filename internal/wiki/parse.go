package wiki

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// PageProperty is one page-prop entry from the parse action.
type PageProperty struct {
	Name  string
	Value string
}

// PageContent is the full content of one page: rendered HTML, raw markup and
// revision metadata.
type PageContent struct {
	PageID     int
	Name       string
	Title      string
	RevisionID int
	HTML       string
	Wikitext   string
	Properties []PageProperty
}

type parseResponse struct {
	Parse struct {
		Title        string `json:"title"`
		PageID       int    `json:"pageid"`
		RevID        int    `json:"revid"`
		DisplayTitle string `json:"displaytitle"`
		Text         struct {
			Content string `json:"*"`
		} `json:"text"`
		Wikitext struct {
			Content string `json:"*"`
		} `json:"wikitext"`
		Properties []struct {
			Name    string `json:"name"`
			Content string `json:"*"`
		} `json:"properties"`
	} `json:"parse"`
}

var markupTagPattern = regexp.MustCompile(`<.*?>`)

// Parse fetches the full content of one page: rendered HTML, raw wikitext,
// display title and properties.
func (c *Client) Parse(ctx context.Context, pageID int) (*PageContent, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("pageid", strconv.Itoa(pageID))
	params.Set("format", "json")
	params.Set("prop", "properties|wikitext|displaytitle|subtitle|revid|text")

	var response parseResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, eris.Wrapf(err, "parsing page %d", pageID)
	}

	parsed := response.Parse
	if parsed.PageID == 0 && parsed.RevID == 0 {
		return nil, eris.Errorf("empty parse result for page %d", pageID)
	}

	content := &PageContent{
		PageID:     pageID,
		Name:       parsed.Title,
		Title:      cleanDisplayTitle(parsed.DisplayTitle),
		RevisionID: parsed.RevID,
		HTML:       parsed.Text.Content,
		Wikitext:   parsed.Wikitext.Content,
	}
	for _, property := range parsed.Properties {
		content.Properties = append(content.Properties, PageProperty{
			Name:  property.Name,
			Value: property.Content,
		})
	}

	return content, nil
}

// cleanDisplayTitle strips embedded markup tags and decodes character
// references; some display titles carry both.
func cleanDisplayTitle(title string) string {
	stripped := markupTagPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(html.UnescapeString(stripped))
}

type redirectsResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages map[string]struct {
			PageID    int    `json:"pageid"`
			Title     string `json:"title"`
			Redirects []struct {
				PageID int    `json:"pageid"`
				NS     int    `json:"ns"`
				Title  string `json:"title"`
			} `json:"redirects"`
		} `json:"pages"`
	} `json:"query"`
}

// Redirects queries the redirect titles pointing at each of the given page
// titles, following rdcontinue until exhausted. The result maps target page
// id to the redirect titles discovered for it.
func (c *Client) Redirects(ctx context.Context, titles []string) (map[int][]string, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	result := make(map[int][]string)
	next := ""
	for {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("format", "json")
		params.Set("prop", "redirects")
		params.Set("rdlimit", "max")
		params.Set("titles", strings.Join(titles, "|"))
		if next != "" {
			params.Set("rdcontinue", next)
		}

		var response redirectsResponse
		if err := c.get(ctx, params, &response); err != nil {
			return result, eris.Wrap(err, "querying redirects")
		}

		for _, page := range response.Query.Pages {
			for _, redirect := range page.Redirects {
				result[page.PageID] = append(result[page.PageID], redirect.Title)
			}
		}

		next = response.Continue["rdcontinue"]
		if next == "" {
			return result, nil
		}
	}
}
