package httpclient

import (
	"fmt"
	"net/http"
	"time"
)

const maxRedirects = 5

// New returns a client for background fetches of untrusted URLs: a hard
// overall deadline and a tighter redirect cap than the stdlib default.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}
