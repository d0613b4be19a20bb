package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/k3a/html2text"
	"golang.org/x/net/html"

	"terptracker/pkg/logger"
	"terptracker/pkg/models"
	"terptracker/pkg/utils"
)

type terpenePattern struct {
	re  *regexp.Regexp
	key string
}

type cannabinoidPattern struct {
	re  *regexp.Regexp
	key models.Cannabinoid
}

// terpenePatterns recognise terpene names in page text, in priority order.
var terpenePatterns = []terpenePattern{
	{regexp.MustCompile(`(?i)(?:beta[_\s-]?)?myrcene`), models.Myrcene},
	{regexp.MustCompile(`(?i)d[_\s-]?limonene|limonene`), models.Limonene},
	{regexp.MustCompile(`(?i)(?:beta[_\s-]?)?caryophyllene`), models.Caryophyllene},
	{regexp.MustCompile(`(?i)(?:alpha|α)[_\s-]?pinene`), models.AlphaPinene},
	{regexp.MustCompile(`(?i)(?:beta|β)[_\s-]?pinene`), models.BetaPinene},
	{regexp.MustCompile(`(?i)terpinolene`), models.Terpinolene},
	{regexp.MustCompile(`(?i)humulene`), models.Humulene},
	{regexp.MustCompile(`(?i)linalool`), models.Linalool},
	{regexp.MustCompile(`(?i)(?:beta|β)[_\s-]?ocimene|ocimene`), models.Ocimene},
}

// cannabinoidPatterns list longer names first. A name only matches when a
// number follows it directly, so "THCA 26%" never reads as THC.
var cannabinoidPatterns = buildCannabinoidPatterns(
	models.THCA, models.THCV, models.THC,
	models.CBDA, models.CBDV, models.CBD,
	models.CBGM, models.CBGV, models.CBG,
	models.CBCV, models.CBC,
	models.CBN, models.CBV, models.CBE, models.CBT, models.CBL,
)

func buildCannabinoidPatterns(order ...models.Cannabinoid) []cannabinoidPattern {
	out := make([]cannabinoidPattern, 0, len(order))
	for _, c := range order {
		re := regexp.MustCompile(`(?i)\b` + string(c) + `\s*:?\s*(\d+\.?\d*)\s*%?`)
		out = append(out, cannabinoidPattern{re: re, key: c})
	}
	return out
}

var (
	coaLinkPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)certificate.*analysis`),
		regexp.MustCompile(`(?i)lab.*results?`),
		regexp.MustCompile(`(?i)coa`),
		regexp.MustCompile(`(?i)test.*results?`),
		regexp.MustCompile(`(?i)analysis.*certificate`),
	}

	terpValueRe      = regexp.MustCompile(`^\s*:?\s*(\d+\.?\d*)\s*(%|mg/g)?`)
	percentRe        = regexp.MustCompile(`(\d+\.?\d*)\s*%`)
	totalTerpenesRe  = regexp.MustCompile(`(?i)total\s+terpenes?\s*:?\s*(\d+\.?\d*)\s*%?`)
	terpeneNameClass = regexp.MustCompile(`(?i)terpene.*name`)

	packageNumberRe = regexp.MustCompile(`\s*#\d+.*$`)
	trailingPartRe  = regexp.MustCompile(`\s*[|\-–]\s*.*$`)
	productWordRe   = regexp.MustCompile(`(?i)\s+(flower|bud|strain|cannabis)$`)
)

// PageScraper fetches a product page over plain HTTP and extracts the
// strain name, terpenes, cannabinoids and COA links from static HTML.
type PageScraper struct {
	Client    *http.Client
	UserAgent string
	Log       *logger.Logger
}

func NewPageScraper(log *logger.Logger) *PageScraper {
	if log == nil {
		log = logger.Nop()
	}
	return &PageScraper{
		Client:    newHTTPClient(20 * time.Second),
		UserAgent: defaultUserAgent,
		Log:       log.With("source", "page"),
	}
}

func (s *PageScraper) Name() string { return "page" }

// Scrape fetches pageURL and parses it.
func (s *PageScraper) Scrape(ctx context.Context, pageURL string) (*models.ScrapedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("page: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page: request: %w", err)
	}
	body, err := readBody("page", resp)
	if err != nil {
		return nil, err
	}

	page := ParsePage(pageURL, body)
	s.Log.Debug("page scraped",
		"url", pageURL,
		"strain", page.StrainName,
		"terpenes", len(page.Terpenes),
		"cannabinoids", page.Totals.Count(),
		"coa_links", len(page.COALinks),
	)
	return page, nil
}

// ParsePage extracts everything the analyzer needs from raw HTML. It never
// fails; malformed markup just yields fewer fields.
func ParsePage(pageURL string, body []byte) *models.ScrapedPage {
	sum := sha256.Sum256(body)
	page := &models.ScrapedPage{
		Terpenes:    models.TerpeneMap{},
		Totals:      models.CannabinoidTotals{},
		Fingerprint: hex.EncodeToString(sum[:]),
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return page
	}
	text := html2text.HTML2Text(string(body))

	page.StrainName = extractStrainName(doc)
	page.Terpenes = extractTerpenes(doc, text)
	page.Totals = extractTotals(text)
	page.COALinks = extractCOALinks(doc, pageURL)
	return page
}

func extractStrainName(doc *html.Node) string {
	selectors := []func(n *html.Node) bool{
		func(n *html.Node) bool { return attr(n, "data-testid") == "product-name" },
		func(n *html.Node) bool { return strings.Contains(attr(n, "class"), "ProductName") },
		func(n *html.Node) bool { return strings.Contains(attr(n, "class"), "product-name") },
		func(n *html.Node) bool {
			c := attr(n, "class")
			return isElement(n, "h1") && (strings.Contains(c, "product") || strings.Contains(c, "Product"))
		},
	}
	for _, sel := range selectors {
		n := findFirst(doc, sel)
		if n == nil {
			continue
		}
		name := strings.TrimSpace(textContent(n))
		if len(name) <= 2 {
			continue
		}
		if strain, ok := strainFromPipes(name); ok {
			return strain
		}
		name = trailingPartRe.ReplaceAllString(name, "")
		name = productWordRe.ReplaceAllString(name, "")
		return strings.TrimSpace(name)
	}

	if t := findFirst(doc, func(n *html.Node) bool { return isElement(n, "title") }); t != nil {
		title := strings.TrimSpace(textContent(t))
		if clean := strings.TrimSpace(trailingPartRe.ReplaceAllString(title, "")); len(clean) > 2 {
			return clean
		}
	}

	if h1 := findFirst(doc, func(n *html.Node) bool { return isElement(n, "h1") }); h1 != nil {
		name := strings.Join(strings.Fields(textContent(h1)), " ")
		if name = strings.TrimSpace(productWordRe.ReplaceAllString(name, "")); name != "" {
			return name
		}
	}

	ld := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "script") && attr(n, "type") == "application/ld+json"
	})
	if ld != nil {
		var data struct {
			Name string `json:"name"`
		}
		if json.Unmarshal([]byte(textContent(ld)), &data) == nil && data.Name != "" {
			return data.Name
		}
	}

	og := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "meta") && attr(n, "property") == "og:title"
	})
	if og != nil {
		return strings.TrimSpace(attr(og, "content"))
	}
	return ""
}

// strainFromPipes handles "Brand: Type | Strain | Size" and "Strain | Type".
func strainFromPipes(name string) (string, bool) {
	if !strings.Contains(name, "|") {
		return "", false
	}
	parts := strings.Split(name, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	strain := parts[0]
	if strings.Contains(parts[0], ":") || len(parts) >= 3 {
		strain = parts[1]
	}
	strain = strings.TrimSpace(packageNumberRe.ReplaceAllString(strain, ""))
	if len(strain) <= 2 {
		return "", false
	}
	return strain, true
}

func extractTerpenes(doc *html.Node, text string) models.TerpeneMap {
	out := models.TerpeneMap{}

	// labelled terpene widgets: name element next to a percentage
	for _, n := range findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && terpeneNameClass.MatchString(attr(n, "class"))
	}) {
		name := strings.ToLower(strings.TrimSpace(textContent(n)))
		if n.Parent == nil {
			continue
		}
		m := percentRe.FindStringSubmatch(textContent(n.Parent))
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		for _, p := range terpenePatterns {
			if p.re.MatchString(name) {
				out.Set(p.key, v/100)
				break
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	// free text: first "<name> <value>[unit]" per terpene
	for _, p := range terpenePatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			m := terpValueRe.FindStringSubmatch(text[loc[1]:])
			if m == nil {
				continue
			}
			if v, ok := terpeneValue(m[1], m[2]); ok {
				out.Set(p.key, v)
			}
			break
		}
	}
	return out
}

func terpeneValue(num, unit string) (float64, bool) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	switch strings.ToLower(unit) {
	case "%":
		return v / 100, true
	case "mg/g":
		return v / 1000, true
	default:
		return utils.ParseFraction(v)
	}
}

func extractTotals(text string) models.CannabinoidTotals {
	out := models.CannabinoidTotals{}
	if m := totalTerpenesRe.FindStringSubmatch(text); m != nil {
		if v, ok := utils.ParseFraction(m[1]); ok {
			out.Set(models.TotalTerpenes, v)
		}
	}
	for _, p := range cannabinoidPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			if v, ok := utils.ParseFraction(m[1]); ok {
				out.Set(p.key, v)
			}
		}
	}
	return out
}

func extractCOALinks(doc *html.Node, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var out []string

	for _, a := range findAll(doc, func(n *html.Node) bool { return isElement(n, "a") && hasAttr(n, "href") }) {
		href := strings.TrimSpace(attr(a, "href"))
		if href == "" {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(textContent(a)))
		if !isCOALink(text, href) {
			continue
		}
		abs := resolveLink(base, href)
		if abs == "" || seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

func isCOALink(text, href string) bool {
	if strings.HasSuffix(strings.ToLower(href), ".pdf") {
		return true
	}
	for _, re := range coaLinkPatterns {
		if re.MatchString(text) || re.MatchString(href) {
			return true
		}
	}
	return false
}

func resolveLink(base *url.URL, href string) string {
	switch {
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case base == nil:
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// DOM helpers.

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
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

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
