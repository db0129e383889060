// Package cache computes response validators and evaluates conditional
// request headers against them.
package cache

import (
	"net/http"
	"strings"
	"time"

	"github.com/starford/mdserve/internal/checksum"
)

// Result is the outcome of a conditional evaluation.
type Result int

const (
	Full        Result = iota // send the full body
	NotModified               // 304, empty body
)

// Validators are the cache validators attached to every response.
// LastModified is zero for payloads that are not backed by a single file.
type Validators struct {
	ETag         string
	LastModified time.Time
}

// Conditionals are the conditional request headers of one request.
type Conditionals struct {
	IfNoneMatch     string
	IfModifiedSince string
}

// ConditionalsFrom reads the conditional headers from h.
func ConditionalsFrom(h http.Header) Conditionals {
	return Conditionals{
		IfNoneMatch:     h.Get("If-None-Match"),
		IfModifiedSince: h.Get("If-Modified-Since"),
	}
}

// Fingerprint returns the strong entity tag for body.
func Fingerprint(body []byte) string {
	return `"` + checksum.Sum(body) + `"`
}

// NewValidators fingerprints body. A zero modTime yields no Last-Modified.
func NewValidators(body []byte, modTime time.Time) Validators {
	v := Validators{ETag: Fingerprint(body)}
	if !modTime.IsZero() {
		v.LastModified = modTime.UTC().Truncate(time.Second)
	}
	return v
}

// Apply sets ETag and, when known, Last-Modified on h.
func (v Validators) Apply(h http.Header) {
	h.Set("ETag", v.ETag)
	if !v.LastModified.IsZero() {
		h.Set("Last-Modified", v.LastModified.Format(http.TimeFormat))
	}
}

// Evaluate compares the validators against c.
//
// If-None-Match takes precedence: when present, only it is consulted.
// If-Modified-Since is evaluated only when If-None-Match is absent and the
// payload has a modification time.
func (v Validators) Evaluate(c Conditionals) Result {
	if strings.TrimSpace(c.IfNoneMatch) != "" {
		if etagListMatches(c.IfNoneMatch, v.ETag) {
			return NotModified
		}
		return Full
	}
	if c.IfModifiedSince == "" || v.LastModified.IsZero() {
		return Full
	}
	since, err := http.ParseTime(c.IfModifiedSince)
	if err != nil {
		return Full
	}
	if !v.LastModified.After(since) {
		return NotModified
	}
	return Full
}

// Validate fingerprints body and evaluates c in one step.
func Validate(body []byte, modTime time.Time, c Conditionals) (Validators, Result) {
	v := NewValidators(body, modTime)
	return v, v.Evaluate(c)
}

// etagListMatches uses the weak comparison If-None-Match calls for:
// a W/ prefix on either side is ignored.
func etagListMatches(header, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
