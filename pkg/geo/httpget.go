package geo

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "golang.org/x/time/rate"
)

// GetJSON fetches url and decodes the JSON body into out. Requests wait on
// limiter (nil means unlimited) and are retried up to three times with
// exponential backoff on transport errors, 429 and 5xx answers.
func GetJSON(ctx context.Context, httpc *http.Client, limiter *rate.Limiter, url string, out interface{}) error {
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        if limiter != nil {
            if err := limiter.Wait(ctx); err != nil { return err }
        }
        retry, err := getOnce(ctx, httpc, url, out)
        if err == nil { return nil }
        lastErr = err
        if !retry { return err }
        // backoff unless context is done
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(time.Duration(200*(1<<attempt)) * time.Millisecond):
        }
    }
    return lastErr
}

func getOnce(ctx context.Context, httpc *http.Client, url string, out interface{}) (bool, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil { return false, err }
    req.Header.Set("Accept", "application/json")
    resp, err := httpc.Do(req)
    if err != nil { return true, err }
    defer resp.Body.Close()
    b, err := io.ReadAll(resp.Body)
    if err != nil { return true, err }
    if resp.StatusCode != http.StatusOK {
        retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
        return retry, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
    }
    if err := json.Unmarshal(b, out); err != nil { return false, fmt.Errorf("decode: %w", err) }
    return false, nil
}
