package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// maxRecordBytes bounds a single stream record. The producer emits small
// JSON objects; anything near this size is malformed.
const maxRecordBytes = 1 << 20

// conn is one live event-stream connection. The coordinator owns at most
// one at a time; gen ties callbacks from the reader goroutine back to
// the session they belong to, so records racing in after a supersede or
// stop are discarded.
type conn struct {
	gen    uint64
	cancel context.CancelFunc
	once   sync.Once
}

// close cancels the connection's request context. Idempotent and safe on
// an already-closed conn.
func (cn *conn) close() {
	cn.once.Do(cn.cancel)
}

// open issues the stream request for content and depth and starts the
// reader goroutine. It never blocks on the network: callers observe
// progress through the coordinator's reactive fields. Must be called
// with the coordinator lock held.
func (c *Coordinator) open(content string, depth int) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	cn := &conn{gen: c.gen, cancel: cancel}
	go c.read(ctx, cn.gen, content, depth)
	return cn
}

// read drives one connection's lifecycle: request, opened callback, one
// record callback per data line, and a transport-failed callback on any
// drop that was not preceded by a terminal record.
func (c *Coordinator) read(ctx context.Context, gen uint64, content string, depth int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(content, depth), nil)
	if err != nil {
		c.transportFailed(gen, err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.transportFailed(gen, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.transportFailed(gen, fmt.Errorf("stream request: %s", resp.Status))
		return
	}

	c.opened(gen)

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 4096), maxRecordBytes)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue // blank separators and SSE comment lines
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if terminal := c.record(gen, []byte(data)); terminal {
			return
		}
	}

	if err := sc.Err(); err != nil {
		c.transportFailed(gen, err)
		return
	}
	c.transportFailed(gen, errors.New("stream closed by producer"))
}

// streamURL encodes content and depth into the well-known stream path.
func (c *Coordinator) streamURL(content string, depth int) string {
	q := url.Values{}
	q.Set("content", content)
	q.Set("depth", strconv.Itoa(depth))
	return fmt.Sprintf("%s/%s/stream/process?%s",
		strings.TrimRight(c.baseURL, "/"), c.namespace, q.Encode())
}
