package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"FinEvent/internal/domain/models"
	"FinEvent/pkg/logger"
)

// Client streams trades from the Finnhub websocket.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex // guards conn and writes
	conn      *websocket.Conn
	connected bool
}

func New(log *logger.Logger, apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log.With(logger.String("component", "finnhub")),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn, c.connected = conn, true
	c.mu.Unlock()
	c.log.Info("finnhub connected")
	return nil
}

func (c *Client) Subscribe(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return errors.New("finnhub not connected")
	}
	for _, s := range c.symbols {
		if err := c.conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.log.Info("finnhub subscribed", logger.Strings("symbols", c.symbols))
	return nil
}

type wireTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // unix ms
}

type wireMessage struct {
	Type string      `json:"type"`
	Data []wireTrade `json:"data"`
}

// decodeTrades returns nil for frames that are not trade messages (pings, errors).
func decodeTrades(frame []byte) []models.Trade {
	var m wireMessage
	if err := json.Unmarshal(frame, &m); err != nil || m.Type != "trade" {
		return nil
	}
	out := make([]models.Trade, 0, len(m.Data))
	for _, d := range m.Data {
		if d.S == "" || d.P <= 0 {
			continue
		}
		out = append(out, models.Trade{Symbol: d.S, Price: d.P, Volume: d.V, Timestamp: time.UnixMilli(d.T).UTC()})
	}
	return out
}

// Read streams trades until ctx ends or the connection fails. The error
// channel receives at most one error; both channels close when reading stops.
func (c *Client) Read(ctx context.Context) (<-chan models.Trade, <-chan error) {
	trades := make(chan models.Trade, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	readCtx, cancel := context.WithCancel(ctx)
	go c.pingLoop(readCtx, conn)

	go func() {
		defer cancel()
		defer close(trades)
		defer close(errs)
		if conn == nil {
			errs <- errors.New("finnhub not connected")
			return
		}
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				if readCtx.Err() == nil {
					errs <- fmt.Errorf("finnhub read: %w", err)
				}
				return
			}
			for _, t := range decodeTrades(frame) {
				select {
				case trades <- t:
				case <-readCtx.Done():
					return
				}
			}
		}
	}()

	// Closing the connection unblocks ReadMessage when ctx ends.
	go func() {
		<-readCtx.Done()
		if ctx.Err() != nil {
			_ = c.Close()
		}
	}()
	return trades, errs
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if conn == nil {
		return
	}
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.mu.Unlock()
			if err != nil {
				c.log.Debug("finnhub ping", logger.Error(err))
			}
		}
	}
}

func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
