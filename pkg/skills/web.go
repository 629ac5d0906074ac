package skills

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const maxFetchChars = 50000

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	blankRe       = regexp.MustCompile(`\n{3,}`)
)

type WebFetchSkill struct {
	client *http.Client
}

func NewWebFetchSkill() *WebFetchSkill {
	return &WebFetchSkill{client: &http.Client{Timeout: 30 * time.Second}}
}

func (s *WebFetchSkill) Name() string { return "web_fetch" }

func (s *WebFetchSkill) Description() string {
	return "Fetch a URL and return its text content. Usage: [WEB_FETCH: \"https://example.com\"]"
}

func (s *WebFetchSkill) Execute(ctx context.Context, arg string) (string, error) {
	url := SanitizePath(arg)
	if url == "" {
		return "", fmt.Errorf("usage: [WEB_FETCH: \"https://example.com\"]")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", "OpenSpore/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}

	text := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		text = htmlToText(text)
	}

	if len(text) > maxFetchChars {
		text = text[:maxFetchChars] + fmt.Sprintf("\n... (truncated, %d more chars)", len(text)-maxFetchChars)
	}
	return text, nil
}

// htmlToText is a crude tag stripper, enough for the model to read a page.
func htmlToText(html string) string {
	text := scriptStyleRe.ReplaceAllString(html, "")
	text = tagRe.ReplaceAllString(text, "\n")
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return blankRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}
