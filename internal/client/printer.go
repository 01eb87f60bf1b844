package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/electrosolucion2025/Whats2Want/internal/ticketfmt"
)

// PrinterClient pushes a rendered ticket straight to a thermal printer over
// its raw TCP port. Used when the printer is reachable from the worker;
// otherwise the on-premise agent pulls the ticket over HTTP instead.
type PrinterClient interface {
	Print(ctx context.Context, host string, port int, content string) error
}

type rawPrinterClient struct {
	dialTimeout time.Duration
}

func NewPrinterClient() PrinterClient {
	return &rawPrinterClient{dialTimeout: 5 * time.Second}
}

func (c *rawPrinterClient) Print(ctx context.Context, host string, port int, content string) error {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return fmt.Errorf("dial printer %s:%d: %w", host, port, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(c.dialTimeout))
	}

	if _, err := conn.Write([]byte(content + "\n" + ticketfmt.Cut)); err != nil {
		return fmt.Errorf("write ticket: %w", err)
	}
	return nil
}
