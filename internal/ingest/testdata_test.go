package ingest

import (
	"context"
	"sync"

	"github.com/pders01/folio/internal/storage"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Math Notes</title>
  <link>https://notes.example.org</link>
  <description>&lt;p&gt;Short &amp;amp; sweet notes&lt;/p&gt;</description>
  <category>Mathematics</category>
  <item>
    <title>Limits</title>
    <link>https://notes.example.org/limits</link>
    <guid>limits-1</guid>
    <description>&lt;p&gt;What a &lt;b&gt;limit&lt;/b&gt; is&lt;/p&gt;</description>
    <category>Cálculo</category>
    <category>calculo</category>
    <category>Limites Laterais</category>
    <pubDate>Mon, 05 Feb 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Vectors</title>
    <link>https://notes.example.org/vectors</link>
    <description>Arrows with length</description>
  </item>
</channel>
</rss>`

// memSaver records what an import stores.
type memSaver struct {
	mu       sync.Mutex
	chapters []storage.Chapter
	articles []storage.Article
	err      error
}

func (s *memSaver) SaveChapters(_ context.Context, chapters ...storage.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.chapters = append(s.chapters, chapters...)
	return nil
}

func (s *memSaver) SaveArticles(_ context.Context, articles ...storage.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.articles = append(s.articles, articles...)
	return nil
}
