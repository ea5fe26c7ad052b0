package ctl

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// Client speaks the control protocol from the caller side. Each operation
// opens its own connection, mirroring the open-per-command behavior of
// the legacy device tool.
type Client struct {
	path   string
	dialer net.Dialer
}

// NewClient creates a client for the control socket at path.
func NewClient(path string) *Client {
	return &Client{path: path}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return nil, fmt.Errorf("dial control socket: %w", err)
	}
	return conn, nil
}

func (c *Client) send(ctx context.Context, conn net.Conn, req *Request) error {
	frame, err := req.MarshalBinary()
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("send control request: %w", err)
	}
	return nil
}

func readStatus(conn net.Conn) (uint8, error) {
	var status [1]byte
	if _, err := io.ReadFull(conn, status[:]); err != nil {
		return 0, fmt.Errorf("read control status: %w", err)
	}
	return status[0], nil
}

// Add registers rule under uid.
func (c *Client) Add(ctx context.Context, uid uint32, rule string) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := c.send(ctx, conn, &Request{Op: OpAdd, UID: uid, Rule: rule}); err != nil {
		return err
	}
	status, err := readStatus(conn)
	if err != nil {
		return err
	}
	return errOf(status)
}

// Remove deletes the first exact match of rule under uid. The boolean
// reports whether a rule was removed; a miss is not an error.
func (c *Client) Remove(ctx context.Context, uid uint32, rule string) (bool, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if err := c.send(ctx, conn, &Request{Op: OpRemove, UID: uid, Rule: rule}); err != nil {
		return false, err
	}

	var resp [2]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return false, fmt.Errorf("read control response: %w", err)
	}
	if err := errOf(resp[0]); err != nil {
		return false, err
	}
	return resp[1] == 1, nil
}

// Read fetches the formatted export for uid (SentinelUID for all users).
// The boolean reports server-side truncation.
func (c *Client) Read(ctx context.Context, uid uint32) ([]byte, bool, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, false, err
	}
	defer conn.Close()

	if err := c.send(ctx, conn, &Request{Op: OpRead, UID: uid}); err != nil {
		return nil, false, err
	}

	status, err := readStatus(conn)
	if err != nil {
		return nil, false, err
	}
	if err := errOf(status); err != nil {
		return nil, false, err
	}

	var head [5]byte
	if _, err := io.ReadFull(conn, head[:]); err != nil {
		return nil, false, fmt.Errorf("read control response: %w", err)
	}
	truncated := head[0] == 1
	n := binary.LittleEndian.Uint32(head[1:])
	if n > RuleBufferSize {
		return nil, false, fmt.Errorf("control response too large: %d bytes", n)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, false, fmt.Errorf("read control payload: %w", err)
	}
	return data, truncated, nil
}
