package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"vidlearn_backend/internal/model"
	"vidlearn_backend/pkg/logger"
	"vidlearn_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	watchingTTL    = 2 * time.Minute // 观看状态过期时间
)

var (
	// 内存复用 (sync.Pool)
	messagePool = sync.Pool{
		New: func() interface{} {
			return &WSMessage{}
		},
	}
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// WatchClient 一条 WebSocket 连接对应一个观看会话
type WatchClient struct {
	Hub     *WatchHub
	Conn    *websocket.Conn
	Send    chan []byte
	ID      uint64
	UserID  uint
	VideoID uint
	Session *PlaybackSession
	Limiter *rate.Limiter // 限流器
}

// SeekTo 向客户端下发续播跳转指令，实现 PlayerController
func (c *WatchClient) SeekTo(seconds int) {
	msg, _ := json.Marshal(WSMessage{
		Type: "SEEK_TO",
		Data: map[string]interface{}{"seconds": seconds},
	})
	select {
	case c.Send <- msg:
	default:
	}
}

func (c *WatchClient) readPump(ctx context.Context) {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		// 限流校验 (每秒最多 30 条消息，允许突发 50 条)
		if !c.Limiter.Allow() {
			continue
		}

		// 对象池解析消息
		wsMsg := messagePool.Get().(*WSMessage)
		if err := json.Unmarshal(message, wsMsg); err != nil {
			messagePool.Put(wsMsg)
			continue
		}

		c.handlePlayerEvent(ctx, *wsMsg)
		messagePool.Put(wsMsg)
	}
}

// handlePlayerEvent 把播放器事件转发给会话状态机
func (c *WatchClient) handlePlayerEvent(ctx context.Context, msg WSMessage) {
	monitoring.PlaybackEventCounter.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case "READY":
		c.Session.OnReady(ctx)
	case "PLAY":
		c.Session.OnPlay()
	case "PAUSE":
		c.Session.OnPause(ctx)
	case "BUFFER":
		c.Session.OnBuffer()
	case "BUFFER_END":
		c.Session.OnBufferEnd()
	case "SEEK":
		if seconds, ok := eventSeconds(msg.Data); ok {
			c.Session.OnSeek(seconds)
		}
	case "PROGRESS":
		if seconds, ok := eventSeconds(msg.Data); ok {
			c.Session.OnProgress(ctx, seconds)
		}
	}
}

func eventSeconds(data interface{}) (float64, bool) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return 0, false
	}
	seconds, ok := m["seconds"].(float64)
	return seconds, ok
}

func (c *WatchClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint64]*WatchClient
	mu      sync.RWMutex
}

// WatchHub 管理所有实时观看连接。每个连接挂一个 PlaybackSession，
// 观看状态 (谁在看哪个视频) 批量写入 Redis 供统计查询。
type WatchHub struct {
	shards     [shardCount]*shard
	register   chan *WatchClient
	unregister chan *WatchClient
	Redis      *redis.Client
	Progress   *ProgressService
	nextID     uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewWatchHub(rdb *redis.Client, progress *ProgressService) *WatchHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &WatchHub{
		register:   make(chan *WatchClient),
		unregister: make(chan *WatchClient),
		Redis:      rdb,
		Progress:   progress,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint64]*WatchClient),
		}
	}
	return h
}

func (h *WatchHub) getShard(id uint64) *shard {
	return h.shards[id%shardCount]
}

func watchingKey(connID uint64) string {
	return fmt.Sprintf("watch:session:%d", connID)
}

func (h *WatchHub) Run() {
	// 批量处理观看状态更新
	ticker := time.NewTicker(500 * time.Millisecond)
	// 状态续期定时器 (Heartbeat)
	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer func() {
		ticker.Stop()
		heartbeatTicker.Stop()
	}()

	type watchUpdate struct {
		connID  uint64
		videoID uint
		online  bool
	}
	var pendingUpdates []watchUpdate

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.ID)
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			pendingUpdates = append(pendingUpdates, watchUpdate{client.ID, client.VideoID, true})

		case client := <-h.unregister:
			s := h.getShard(client.ID)
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.Send)
			}
			s.mu.Unlock()
			client.Session.Stop(h.ctx)
			pendingUpdates = append(pendingUpdates, watchUpdate{client.ID, client.VideoID, false})

		case <-heartbeatTicker.C:
			// 为本实例的观看状态批量续期
			h.refreshWatchingStatus()

		case <-ticker.C:
			if len(pendingUpdates) == 0 {
				continue
			}

			pipe := h.Redis.Pipeline()
			for _, update := range pendingUpdates {
				if update.online {
					pipe.Set(h.ctx, watchingKey(update.connID), update.videoID, watchingTTL)
				} else {
					pipe.Del(h.ctx, watchingKey(update.connID))
				}
			}
			_, err := pipe.Exec(h.ctx)
			if err != nil {
				logger.Log.Error("Redis pipeline error", zap.Error(err))
			}
			pendingUpdates = pendingUpdates[:0]

		case <-h.ctx.Done():
			return
		}
	}
}

// refreshWatchingStatus 刷新当前实例所有观看会话的过期时间
func (h *WatchHub) refreshWatchingStatus() {
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for connID := range s.clients {
			pipe.Expire(h.ctx, watchingKey(connID), watchingTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		pipe.Exec(h.ctx)
		logger.Log.Debug("Refreshed watching status", zap.Int("count", count))
	}
}

// Stop 落盘全部会话进度，关闭所有连接并清理观看状态
func (h *WatchHub) Stop() {
	logger.Log.Info("WatchHub stopping: flushing sessions and closing connections...")

	var allConnIDs []uint64
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for connID, client := range s.clients {
			allConnIDs = append(allConnIDs, connID)
			client.Session.Stop(h.ctx)
			close(client.Send)
			delete(s.clients, connID)
		}
		s.mu.Unlock()
	}

	if len(allConnIDs) > 0 {
		pipe := h.Redis.Pipeline()
		for _, connID := range allConnIDs {
			pipe.Del(h.ctx, watchingKey(connID))
		}
		pipe.Exec(h.ctx)
	}

	h.cancel()
	logger.Log.Info("WatchHub stopped", zap.Int("closedConnections", len(allConnIDs)))
}

// ServeWatch 升级连接并启动观看会话，userID 为 0 表示匿名观看
func ServeWatch(hub *WatchHub, w http.ResponseWriter, r *http.Request, userID, videoID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &WatchClient{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		ID:      atomic.AddUint64(&hub.nextID, 1),
		UserID:  userID,
		VideoID: videoID,
		Limiter: rate.NewLimiter(rate.Limit(30), 50), // 每秒30条，允许突发50条
	}
	client.Session = NewPlaybackSession(userID, videoID, hub.Progress, client,
		WithSnapshotHandler(func(record *model.VideoProgress) {
			msg, _ := json.Marshal(WSMessage{Type: "PROGRESS_SAVED", Data: record})
			select {
			case client.Send <- msg:
			default:
			}
		}),
	)

	client.Hub.register <- client

	go client.writePump()
	go client.readPump(hub.ctx)

	client.Session.Start(hub.ctx)
	client.Session.OnReady(hub.ctx)
}
