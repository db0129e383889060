package site

import (
	"net/http"
	"strconv"
	"time"

	"github.com/starford/mdserve/internal/cache"
)

// Response is a fully buffered pipeline result.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func newResponse(status int) *Response {
	h := make(http.Header)
	h.Set("X-Content-Type-Options", "nosniff")
	return &Response{Status: status, Header: h}
}

// finish attaches validators to a payload and short-circuits a 200 to an
// empty 304 when the conditionals match.
func finish(status int, contentType string, body []byte, modTime time.Time, c cache.Conditionals) *Response {
	resp := newResponse(status)
	v, result := cache.Validate(body, modTime, c)
	v.Apply(resp.Header)
	resp.Header.Set("Cache-Control", "no-cache")
	if status == http.StatusOK && result == cache.NotModified {
		resp.Status = http.StatusNotModified
		return resp
	}
	resp.Header.Set("Content-Type", contentType)
	resp.Body = body
	return resp
}

// serverError is the fixed body sent for any I/O failure; nothing read
// before the failure is included.
func serverError() *Response {
	resp := newResponse(http.StatusInternalServerError)
	resp.Header.Set("Cache-Control", "no-store")
	resp.Header.Set("Content-Type", plainType)
	resp.Body = []byte("Internal Server Error\n")
	return resp
}

// Write sends the response. For HEAD requests the body is omitted but
// Content-Length still describes it.
func (r *Response) Write(w http.ResponseWriter, head bool) {
	h := w.Header()
	for k, vs := range r.Header {
		h[k] = vs
	}
	if r.Status != http.StatusNotModified {
		h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}
	w.WriteHeader(r.Status)
	if head || len(r.Body) == 0 {
		return
	}
	_, _ = w.Write(r.Body)
}
