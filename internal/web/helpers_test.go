package web

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/mmynk/billsplitter/internal/apitest"
	"github.com/mmynk/billsplitter/internal/billapi"
	"github.com/mmynk/billsplitter/internal/calculator"
	"github.com/mmynk/billsplitter/internal/metrics"
	"github.com/mmynk/billsplitter/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// harness runs the pages against the reference API, with a browser-like
// client that keeps cookies and follows redirects.
type harness struct {
	api    *apitest.API
	srv    *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T, opts ...billapi.Option) *harness {
	t.Helper()

	api, apiURL := apitest.Start(t)
	opts = append([]billapi.Option{billapi.WithTimeout(2 * time.Second)}, opts...)

	s, err := NewServer(billapi.New(apiURL, opts...), []byte(testSecret), WithMetrics(metrics.New()))
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &harness{api: api, srv: srv, client: &http.Client{Jar: jar}}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, *html.Node) {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(t, err)
	return resp, parseBody(t, resp)
}

func (h *harness) post(t *testing.T, path string, values url.Values) (*http.Response, *html.Node) {
	t.Helper()
	resp, err := h.client.PostForm(h.srv.URL+path, values)
	require.NoError(t, err)
	return resp, parseBody(t, resp)
}

func parseBody(t *testing.T, resp *http.Response) *html.Node {
	t.Helper()
	defer resp.Body.Close()
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return &html.Node{Type: html.DocumentNode}
	}
	doc, err := html.Parse(resp.Body)
	require.NoError(t, err)
	return doc
}

// seedUser and seedBill write straight to the reference API's store.
func (h *harness) seedUser(t *testing.T, name string) *models.User {
	t.Helper()
	user, err := h.api.Store().CreateUser(context.Background(), name)
	require.NoError(t, err)
	return user
}

func (h *harness) seedBill(t *testing.T, in models.BillCreate, shares ...calculator.Allocation) *models.Bill {
	t.Helper()
	ctx := context.Background()
	bill, err := h.api.Store().CreateBill(ctx, in)
	require.NoError(t, err)
	if len(shares) > 0 {
		require.NoError(t, h.api.Store().ReplaceShares(ctx, bill.ID, shares))
	}
	return bill
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if all := findAll(n, match); len(all) > 0 {
		return all[0]
	}
	return nil
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

func byAttr(key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool { return attr(n, key) == value }
}

func byID(id string) func(*html.Node) bool {
	return byAttr("id", id)
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// text returns the whitespace-normalized text content of n.
func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// tableRows returns the body rows of the table with id.
func tableRows(t *testing.T, doc *html.Node, id string) []*html.Node {
	t.Helper()
	table := find(doc, byID(id))
	require.NotNil(t, table, "table #%s", id)
	tbody := find(table, byTag("tbody"))
	require.NotNil(t, tbody)
	return findAll(tbody, byTag("tr"))
}

func messages(doc *html.Node, class string) []string {
	var out []string
	for _, n := range findAll(doc, byAttr("class", class)) {
		out = append(out, text(n))
	}
	return out
}

func alerts(doc *html.Node) []string  { return messages(doc, "alert") }
func notices(doc *html.Node) []string { return messages(doc, "notice") }

// selectedValue returns the value of the selected option of the select named
// name, or "" when none is selected.
func selectedValue(doc *html.Node, name string) string {
	sel := find(doc, byAttr("name", name))
	if sel == nil {
		return ""
	}
	for _, opt := range findAll(sel, byTag("option")) {
		if hasAttr(opt, "selected") {
			return attr(opt, "value")
		}
	}
	return ""
}

func inputValue(doc *html.Node, name string) string {
	if in := find(doc, byAttr("name", name)); in != nil {
		return attr(in, "value")
	}
	return ""
}
