package settings

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/stewi1014/juliawall/internal/logging"
)

// Update is the only message of the remote settings protocol.
type Update struct {
	Key   string
	Value any
}

type Setter interface {
	Set(key string, value any) error
}

// Serve accepts connections from l and applies every Update received on them
// to s until ctx is done or l is closed.
func Serve(ctx context.Context, l net.Listener, s Setter) error {
	stop := context.AfterFunc(ctx, func() {
		l.Close()
	})
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept settings connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, s)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, s Setter) {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	defer conn.Close()

	log := logging.Logger().With("remote", conn.RemoteAddr().String())
	dec := gob.NewDecoder(conn)
	for {
		var u Update
		if err := dec.Decode(&u); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				log.Warn("settings connection failed", "err", err)
			}
			return
		}

		if err := s.Set(u.Key, u.Value); err != nil {
			log.Warn("rejected settings update", "key", u.Key, "err", err)
			continue
		}
		log.Debug("settings update", "key", u.Key, "value", u.Value)
	}
}

// Client sends Updates over a connection accepted by Serve.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *gob.Encoder
}

func NewClient(conn net.Conn) *Client {
	return &Client{
		conn: conn,
		enc:  gob.NewEncoder(conn),
	}
}

func (c *Client) Set(key string, value any) error {
	if !supported(value) {
		return fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(&Update{Key: key, Value: value}); err != nil {
		return fmt.Errorf("send settings update: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
