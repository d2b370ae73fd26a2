package validation

import (
	"io"
	"net/http"
)

// handlerFunc adapts a path/query responder to an http.Handler.
type handlerFunc func(path, query string) (int, string)

func (f handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code, body := f(r.URL.Path, r.URL.RawQuery)
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}
