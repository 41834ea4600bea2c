// Package mdserve is a preview HTTP server for a directory of .md files:
// each request renders its matching source through mdforge.Format,
// cache-aware via pkg/mdcache, and gzip-compressed the way
// server/compression.go wraps basil's responses with gzhttp. Grounded on
// server/site.go for the filesystem-routed request handling and
// server/livereload.go for the dev-mode live-reload script injection.
package mdserve

import (
	"compress/gzip"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/sambeau/mdforge/pkg/mdcache"
	"github.com/sambeau/mdforge/pkg/mderr"
	"github.com/sambeau/mdforge/pkg/mdforge"
	"github.com/sambeau/mdforge/pkg/mdlog"
	"github.com/sambeau/mdforge/pkg/mdwatch"
)

// Compression names the response compression mode, matching
// pkg/mdconfig's server.compression field.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
)

// Options configures a Server.
type Options struct {
	Root        string      // directory of .md files to serve
	Compression Compression // CompressionNone or CompressionGzip
	Cache       *mdcache.Cache // optional; nil disables caching
	Watch       bool        // wire in pkg/mdwatch for live reload
	Log         mdlog.Logger // optional; nil discards diagnostics
}

// Server renders a directory of Markdown files as HTML on request.
type Server struct {
	opts    Options
	log     mdlog.Logger
	watcher *mdwatch.Watcher
	handler http.Handler
}

// New builds a Server over opts. If opts.Watch is set, it starts a
// pkg/mdwatch watcher over opts.Root immediately; the caller must Close
// the Server to stop it.
func New(opts Options) (*Server, error) {
	if opts.Log == nil {
		opts.Log = mdlog.NullLogger()
	}
	s := &Server{opts: opts, log: opts.Log}

	var mux http.Handler = http.HandlerFunc(s.serveMarkdown)
	if opts.Watch {
		mux = injectLiveReload(mux, s)
	}
	s.handler = wrapCompression(mux, opts.Compression)

	if opts.Watch {
		w, err := mdwatch.Watch(opts.Root, 300*time.Millisecond, func(path string) {
			s.log.LogLine("[SERVE] rebuilding:", path)
		}, opts.Log)
		if err != nil {
			return nil, fmt.Errorf("starting watcher: %w", err)
		}
		s.watcher = w
	}

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops the underlying watcher, if any.
func (s *Server) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Server) serveMarkdown(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path
	if containsPathTraversal(urlPath) {
		http.Error(w, "400 Bad Request", http.StatusBadRequest)
		return
	}

	mdPath, err := resolveMarkdownPath(s.opts.Root, urlPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	source, err := os.ReadFile(mdPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	html, err := s.render(string(source))
	if err != nil {
		s.log.LogLine("[SERVE] render error:", err)
		http.Error(w, renderErrorPage(err), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (s *Server) render(source string) (string, error) {
	if s.opts.Cache != nil {
		if html, ok, err := s.opts.Cache.Get(source); err == nil && ok {
			s.log.LogLine("[SERVE] cache hit")
			return html, nil
		}
	}

	html, err := mdforge.Format(source)
	if err != nil {
		return "", err
	}

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Put(source, html); err != nil {
			s.log.LogLine("[SERVE] cache write failed:", err)
		}
	}
	return html, nil
}

// resolveMarkdownPath maps a URL path to a .md file under root: "/" maps
// to root/index.md, "/foo" maps to root/foo.md, "/foo/" to
// root/foo/index.md.
func resolveMarkdownPath(root, urlPath string) (string, error) {
	urlPath = strings.TrimPrefix(urlPath, "/")
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		urlPath += "index.md"
	} else if !strings.HasSuffix(urlPath, ".md") {
		urlPath += ".md"
	}

	full := filepath.Join(root, filepath.Clean("/"+urlPath))
	if info, err := os.Stat(full); err != nil || info.IsDir() {
		return "", fmt.Errorf("no markdown file for %q", urlPath)
	}
	return full, nil
}

func containsPathTraversal(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func renderErrorPage(err error) string {
	if mdErr, ok := err.(*mderr.Error); ok {
		return fmt.Sprintf("<pre>%s</pre>", mdErr.Error())
	}
	return fmt.Sprintf("<pre>%s</pre>", err.Error())
}

// wrapCompression wraps h with gzip compression when requested, the same
// gzhttp.NewWrapper construction server/compression.go uses.
func wrapCompression(h http.Handler, mode Compression) http.Handler {
	if mode != CompressionGzip {
		return h
	}
	wrapper, err := gzhttp.NewWrapper(gzhttp.CompressionLevel(gzip.DefaultCompression), gzhttp.MinSize(0))
	if err != nil {
		return h
	}
	return wrapper(h)
}

var bodyTagRe = regexp.MustCompile(`(?i)</body>`)

const liveReloadScript = `<script>
(function() {
  let lastSeq = -1;
  function poll() {
    fetch('/__livereload').then(r => r.json()).then(data => {
      if (lastSeq === -1) {
        lastSeq = data.seq;
      } else if (data.seq !== lastSeq) {
        location.reload();
      }
    }).catch(() => {});
    setTimeout(poll, 1000);
  }
  poll();
})();
</script>`

// injectLiveReload serves /__livereload and appends the live-reload
// polling script to every other HTML response, the same buffer-then-flush
// shape as server/livereload.go's liveReloadResponseWriter.
func injectLiveReload(next http.Handler, s *Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/__livereload" {
			seq := uint64(0)
			if s.watcher != nil {
				seq = s.watcher.ChangeSeq()
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			fmt.Fprintf(w, `{"seq":%d}`, seq)
			return
		}

		rec := &bufferingWriter{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		rec.flush()
	})
}

type bufferingWriter struct {
	http.ResponseWriter
	buf    []byte
	status int
	wrote  bool
}

func (b *bufferingWriter) WriteHeader(code int) { b.status = code }

func (b *bufferingWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *bufferingWriter) flush() {
	content := b.buf
	if loc := bodyTagRe.FindIndex(content); loc != nil {
		idx := loc[0]
		merged := make([]byte, 0, len(content)+len(liveReloadScript))
		merged = append(merged, content[:idx]...)
		merged = append(merged, []byte(liveReloadScript)...)
		merged = append(merged, content[idx:]...)
		content = merged
	} else {
		content = append(content, []byte(liveReloadScript)...)
	}

	b.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)))
	if !b.wrote {
		b.wrote = true
		if b.status != 0 {
			b.ResponseWriter.WriteHeader(b.status)
		}
	}
	b.ResponseWriter.Write(content)
}
