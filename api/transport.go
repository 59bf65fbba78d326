package api

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPClient はHTTPリクエストを送信するインターフェースです（テストでモック可能）
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryTransport はネットワークレベルの失敗のみを指数バックオフで再試行するRoundTripperです
// HTTPステータスは再試行の対象にしません（想定外のステータスは致命的エラーのまま）
// ボディを持つリクエストは再送できないため、そのまま1回だけ送信します
type RetryTransport struct {
	Base       http.RoundTripper
	MaxElapsed time.Duration
}

// RoundTrip はリクエストを送信します
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Body != nil {
		return base.RoundTrip(req)
	}

	maxElapsed := t.MaxElapsed
	if maxElapsed == 0 {
		maxElapsed = 30 * time.Second
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed

	var resp *http.Response
	err := backoff.Retry(func() error {
		r, err := base.RoundTrip(req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, bo)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// NewHTTPClient は再試行トランスポート付きのHTTPクライアントを作成します
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &RetryTransport{},
	}
}
