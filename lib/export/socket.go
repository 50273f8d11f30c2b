// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"fmt"
	"net"
)

// socketDeliverer writes export documents to a Unix-domain socket:
// open a connection, write the document plus a trailing newline,
// close. Each batch is one connection; the collector side treats the
// stream as newline-delimited JSON.
type socketDeliverer struct {
	path string
}

func (d *socketDeliverer) deliver(ctx context.Context, document []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", d.path)
	if err != nil {
		return fmt.Errorf("dialing telemetry socket: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(append(document, '\n')); err != nil {
		return fmt.Errorf("writing telemetry socket: %w", err)
	}
	return nil
}
