package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewClient(ClientOptions{
		Contact:         "tester#0000",
		BaseURL:         serverURL,
		RequestInterval: time.Millisecond,
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewClientRequiresContact(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientOptions{}); err == nil {
		t.Fatalf("expected error when contact identification is missing")
	}
}

func TestClientInjectsUserAgentHeader(t *testing.T) {
	t.Parallel()

	var seenAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"query":{}}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	pager := client.Pages("apcontinue", "allpages", map[string]string{"action": "query"})
	if _, _, err := pager.Next(context.Background()); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}

	if !strings.Contains(seenAgent, "tester#0000") {
		t.Fatalf("expected user agent to carry contact info, got %q", seenAgent)
	}
}

func TestPagerStopsWhenContinuationEnds(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 3 {
			fmt.Fprintf(w, `{"continue":{"apcontinue":"token%d"},"query":{"allpages":[{"pageid":%d,"title":"Page %d"}]}}`, calls, calls, calls)
			return
		}
		fmt.Fprintf(w, `{"query":{"allpages":[{"pageid":%d,"title":"Page %d"}]}}`, calls, calls)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	pager := client.Pages("apcontinue", "allpages", map[string]string{
		"action": "query",
		"list":   "allpages",
	})

	batches := 0
	for {
		batch, ok, err := pager.Next(context.Background())
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		if !ok {
			break
		}
		batches++
		var slims []PageSlim
		if err := json.Unmarshal(batch, &slims); err != nil {
			t.Fatalf("decoding batch: %v", err)
		}
		if len(slims) != 1 {
			t.Fatalf("expected one page per batch, got %d", len(slims))
		}
	}

	if batches != 4 {
		t.Fatalf("expected exactly 4 batches, got %d", batches)
	}
	if calls != 4 {
		t.Fatalf("expected exactly 4 API calls, got %d", calls)
	}
}

func TestPagerThreadsContinuationToken(t *testing.T) {
	t.Parallel()

	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.URL.Query().Get("cmcontinue"))
		if len(tokens) == 1 {
			fmt.Fprint(w, `{"continue":{"cmcontinue":"next-token"},"query":{"categorymembers":[]}}`)
			return
		}
		fmt.Fprint(w, `{"query":{"categorymembers":[]}}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	pager := client.Pages("cmcontinue", "categorymembers", map[string]string{"action": "query"})
	ctx := context.Background()
	for {
		if _, ok, err := pager.Next(ctx); err != nil || !ok {
			break
		}
	}

	if len(tokens) != 2 || tokens[0] != "" || tokens[1] != "next-token" {
		t.Fatalf("expected continuation token to thread through, got %#v", tokens)
	}
}

func TestQueryAllSlimKeepsPartialResultsOnFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"continue":{"apcontinue":"t"},"query":{"allpages":[{"pageid":1,"title":"First"}]}}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	slims, err := client.QueryAllSlim(context.Background(), "apcontinue", "allpages", map[string]string{"action": "query"})
	if err == nil {
		t.Fatalf("expected transport error to surface")
	}
	if len(slims) != 1 || slims[0].ID != 1 {
		t.Fatalf("expected first batch retained, got %#v", slims)
	}
	if calls != 2 {
		t.Fatalf("expected no retry after failure, got %d calls", calls)
	}
}

func TestParseReturnsCleanedContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "parse" {
			t.Errorf("expected parse action, got %q", r.URL.Query().Get("action"))
		}
		fmt.Fprint(w, `{"parse":{
			"title":"Torch",
			"pageid":1213,
			"revid":77,
			"displaytitle":"<i>Torch</i>&#39;s page",
			"text":{"*":"<p>html</p>"},
			"wikitext":{"*":"{{Infobox Item|id=1213}}"},
			"properties":[{"name":"description","*":"A torch."}]
		}}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	content, err := client.Parse(context.Background(), 1213)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if content.Title != "Torch's page" {
		t.Fatalf("expected cleaned display title, got %q", content.Title)
	}
	if content.RevisionID != 77 {
		t.Fatalf("expected revision 77, got %d", content.RevisionID)
	}
	if content.Wikitext != "{{Infobox Item|id=1213}}" {
		t.Fatalf("unexpected wikitext %q", content.Wikitext)
	}
	if len(content.Properties) != 1 || content.Properties[0].Value != "A torch." {
		t.Fatalf("unexpected properties %#v", content.Properties)
	}
}

func TestRedirectsFollowsContinuation(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"continue":{"rdcontinue":"Torch|123"},"query":{"pages":{"10":{"pageid":10,"title":"Torch","redirects":[{"pageid":11,"ns":0,"title":"Light source"}]}}}}`)
			return
		}
		fmt.Fprint(w, `{"query":{"pages":{"10":{"pageid":10,"title":"Torch","redirects":[{"pageid":12,"ns":0,"title":"Burning stick"}]}}}}`)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	redirects, err := client.Redirects(context.Background(), []string{"Torch"})
	if err != nil {
		t.Fatalf("Redirects returned error: %v", err)
	}

	titles := redirects[10]
	if len(titles) != 2 || titles[0] != "Light source" || titles[1] != "Burning stick" {
		t.Fatalf("expected both redirect pages collected, got %#v", titles)
	}
}
