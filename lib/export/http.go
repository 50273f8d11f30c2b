// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
)

// sharedHTTPClient is reused across deliveries so connections are
// pooled. Per-request deadlines come from the request context, not a
// client-wide timeout.
var sharedHTTPClient = &http.Client{}

// httpDeliverer posts export documents to an HTTP(S) endpoint with
// the configured headers, bounded by the configured timeout. When
// compress is enabled the body is gzip-encoded, which OTLP/HTTP
// collectors accept via Content-Encoding.
type httpDeliverer struct {
	endpoint string
	headers  map[string]string
	timeout  time.Duration
	compress bool
}

func (d *httpDeliverer) deliver(ctx context.Context, document []byte) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	body := document
	if d.compress {
		compressed, err := gzipDocument(document)
		if err != nil {
			return err
		}
		body = compressed
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building telemetry request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if d.compress {
		request.Header.Set("Content-Encoding", "gzip")
	}
	for key, value := range d.headers {
		request.Header.Set(key, value)
	}

	response, err := sharedHTTPClient.Do(request)
	if err != nil {
		return fmt.Errorf("posting telemetry batch: %w", err)
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode >= 300 {
		return fmt.Errorf("telemetry endpoint returned %s", response.Status)
	}
	return nil
}

// gzipDocument compresses one export document for transport.
func gzipDocument(document []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(document); err != nil {
		return nil, fmt.Errorf("compressing telemetry batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compressing telemetry batch: %w", err)
	}
	return buffer.Bytes(), nil
}
