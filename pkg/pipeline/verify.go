package pipeline

import (
	"context"
	"net/http"
	"time"
)

// Verifier polls a publication URL until it serves a 200 or a deadline
// elapses.
type Verifier struct {
	HTTP     *http.Client
	Clock    Clock
	Interval time.Duration
	Deadline time.Duration
}

// NewVerifier creates a Verifier with the production polling discipline:
// a probe every 10 seconds for up to 5 minutes.
func NewVerifier(clock Clock) *Verifier {
	return &Verifier{
		HTTP:     &http.Client{Timeout: 5 * time.Second},
		Clock:    clock,
		Interval: 10 * time.Second,
		Deadline: 300 * time.Second,
	}
}

// VerifyResult says whether the URL was actually observed live. On deadline
// the URL is still returned, explicitly unconfirmed, and the pipeline
// proceeds with it.
type VerifyResult struct {
	URL      string
	Verified bool
}

// Verify polls pagesURL. The only error it returns is context cancellation;
// an expired deadline is a soft outcome, not an error.
func (v *Verifier) Verify(ctx context.Context, pagesURL string) (VerifyResult, error) {
	deadline := v.Clock.Now().Add(v.Deadline)
	for {
		if v.probe(ctx, pagesURL) {
			return VerifyResult{URL: pagesURL, Verified: true}, nil
		}
		if err := v.Clock.Sleep(ctx, v.Interval); err != nil {
			return VerifyResult{URL: pagesURL}, err
		}
		if !v.Clock.Now().Before(deadline) {
			return VerifyResult{URL: pagesURL, Verified: false}, nil
		}
	}
}

func (v *Verifier) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := v.HTTP.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
