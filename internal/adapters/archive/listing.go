package archive

import (
	"io"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// parseIndex extracts the file links of an autoindex page. Links are
// resolved against the directory URL; sort links, parent and sub-directory
// links and links leaving the directory are dropped.
func parseIndex(dirURL string, r io.Reader) ([]string, error) {
	if !strings.HasSuffix(dirURL, "/") {
		dirURL += "/"
	}
	base, err := url.Parse(dirURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			sort.Strings(links)
			return links, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key != "href" {
					continue
				}
				link, ok := resolve(base, attr.Val)
				if ok && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		}
	}
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") || strings.HasSuffix(href, "/") {
		return "", false
	}
	// archive names carry colons ("...T00:05:00...") that would otherwise
	// parse as a scheme
	ref, err := url.Parse(href)
	if err != nil || (ref.Scheme != "" && ref.Scheme != "http" && ref.Scheme != "https") {
		if ref, err = url.Parse("./" + href); err != nil {
			return "", false
		}
	}
	abs := base.ResolveReference(ref)
	abs.RawQuery, abs.Fragment = "", ""
	link := abs.String()
	rest, ok := strings.CutPrefix(link, base.String())
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return link, true
}
