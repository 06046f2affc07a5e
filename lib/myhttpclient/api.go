package myhttpclient

import "context"

// HTTPSender is the seam used by gateway adapters that talk plain REST.
type HTTPSender interface {
	Send(ctx context.Context, method string, url string, headers map[string]string, body []byte) (int, []byte, error)
}

func New() HTTPSender {
	return newJSONHTTPClient()
}
