// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"time"
)

// asyncDeliveryBudget caps one asynchronous delivery attempt
// end-to-end. Destination-specific timeouts (the HTTP Timeout
// setting) apply within this budget.
const asyncDeliveryBudget = 30 * time.Second

// deliverer sends one complete export document to a destination. The
// same implementation serves both flush disciplines: Flush runs it on
// a delivery goroutine, FlushSync on the caller's.
type deliverer interface {
	deliver(ctx context.Context, document []byte) error
}

// newDeliverer selects the deliverer for a resolved configuration.
func (e *Exporter) newDeliverer(config Config) deliverer {
	switch config.Kind {
	case DestinationNone:
		return dropDeliverer{}
	case DestinationHTTP:
		return &httpDeliverer{
			endpoint: config.Endpoint,
			headers:  config.Headers,
			timeout:  config.Timeout,
			compress: config.Compress,
		}
	case DestinationSocket:
		return &socketDeliverer{path: config.SocketPath}
	default:
		return &fileDeliverer{
			directory: config.Directory,
			sessionID: e.sessionID,
			clk:       e.clk,
		}
	}
}

// dropDeliverer is the "none" destination: batches vanish silently.
type dropDeliverer struct{}

func (dropDeliverer) deliver(context.Context, []byte) error { return nil }
