// Package catalog fetches the product and outlet catalogs and loads them into
// the vector index.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"zus_chatbot/src/logger"
	"zus_chatbot/src/model"
)

// ProductRecord is one product from the shop catalog
type ProductRecord struct {
	ID          string
	Name        string
	Description string
	Price       string
}

// OutletRecord is one outlet from the store feed
type OutletRecord struct {
	Name    string
	Address string
}

// Source provides catalog records
type Source interface {
	FetchProducts(ctx context.Context) ([]ProductRecord, error)
	FetchOutlets(ctx context.Context) ([]OutletRecord, error)
}

// HTTPSource reads the Shopify products JSON and the WordPress outlet RSS feed
type HTTPSource struct {
	productsURL string
	feedURL     string
	maxPages    int
	client      *http.Client
	parser      *gofeed.Parser
	log         zerolog.Logger
}

func NewHTTPSource(config model.CatalogConfig) *HTTPSource {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxPages := config.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &HTTPSource{
		productsURL: config.ProductsURL,
		feedURL:     config.OutletsFeedURL,
		maxPages:    maxPages,
		client:      &http.Client{Timeout: timeout},
		parser:      gofeed.NewParser(),
		log:         logger.Component("catalog"),
	}
}

type shopifyProducts struct {
	Products []struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		BodyHTML string `json:"body_html"`
		Variants []struct {
			Price string `json:"price"`
		} `json:"variants"`
	} `json:"products"`
}

// FetchProducts downloads the product catalog
func (s *HTTPSource) FetchProducts(ctx context.Context) ([]ProductRecord, error) {
	body, status, err := s.get(ctx, s.productsURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("products request returned status %d", status)
	}

	var payload shopifyProducts
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse products JSON: %w", err)
	}

	records := make([]ProductRecord, 0, len(payload.Products))
	for _, p := range payload.Products {
		price := "N/A"
		if len(p.Variants) > 0 && p.Variants[0].Price != "" {
			price = p.Variants[0].Price
		}
		name := strings.TrimSpace(p.Title)
		if name == "" {
			name = "Unknown"
		}
		records = append(records, ProductRecord{
			ID:          strconv.FormatInt(p.ID, 10),
			Name:        name,
			Description: CleanHTML(p.BodyHTML),
			Price:       price,
		})
	}

	s.log.Info().Int("count", len(records)).Msg("Fetched products")
	return records, nil
}

// FetchOutlets walks the paginated feed until a page is empty or missing
func (s *HTTPSource) FetchOutlets(ctx context.Context) ([]OutletRecord, error) {
	var records []OutletRecord

	for page := 1; page <= s.maxPages; page++ {
		pageURL, err := withPage(s.feedURL, page)
		if err != nil {
			return nil, err
		}

		body, status, err := s.get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			break
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("outlet feed page %d returned status %d", page, status)
		}

		feed, err := s.parser.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse outlet feed page %d: %w", page, err)
		}
		if len(feed.Items) == 0 {
			break
		}

		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			records = append(records, OutletRecord{
				Name:    CleanHTML(item.Title),
				Address: CleanHTML(item.Description),
			})
		}
	}

	s.log.Info().Int("count", len(records)).Msg("Fetched outlets")
	return records, nil
}

func (s *HTTPSource) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return body, resp.StatusCode, nil
}

func withPage(feedURL string, page int) (string, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed URL: %w", err)
	}
	q := u.Query()
	q.Set("paged", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CleanHTML returns the visible text of an HTML fragment with entities decoded
// and whitespace collapsed. Script, style and noscript content is dropped.
func CleanHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(b.String()), " ")
}
