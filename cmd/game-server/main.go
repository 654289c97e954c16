// Command game-server is the process entrypoint that wires the table
// engine (internal/table) to the outside world: a REST surface for
// table lifecycle, one WebSocket per table for state sync, Kafka event
// forwarding, and optional ClickHouse/Postgres persistence. It follows
// the teacher's own cmd/game-server/main.go shape (gin + gorilla/
// websocket, a map of live tables, graceful SIGINT/SIGTERM shutdown),
// generalized from the teacher's single internal/game.Table type to
// the spec's table/sync/recovery/deck/config/metrics/eventbus/storage
// collaborators.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"

	"poker-platform/internal/config"
	"poker-platform/internal/deck"
	"poker-platform/internal/domain"
	"poker-platform/internal/eventbus"
	"poker-platform/internal/recovery"
	"poker-platform/internal/storage"
	"poker-platform/internal/storage/postgres"
	"poker-platform/internal/table"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// wsClient is one connected websocket client. gorilla/websocket forbids
// concurrent writers on the same connection, so every write (whether
// from the connection's own read loop or the table's event fan-out
// goroutine) must go through writeMu.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(data interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(data)
}

// GameServer owns every live table and the process-wide collaborators
// a table reaches out to: the deck oracle, the breaker registry, the
// event publisher, and (optionally) hand analytics.
type GameServer struct {
	cfg      *config.Config
	oracle   deck.Oracle
	breakers *recovery.Registry
	bus      *eventbus.Publisher
	recorder *storage.HandRecorder
	log      *slog.Logger

	mu     sync.RWMutex
	tables map[string]*table.Table

	connsMu sync.RWMutex
	conns   map[string]map[*wsClient]struct{}
}

// NewGameServer wires the server's process-wide collaborators: the
// in-memory deck oracle (spec.md §7's pluggable deck-oracle boundary,
// an external signing service in production) and the breaker registry
// (process-wide, keyed by resource name per spec.md §5). Kafka wiring
// is best-effort: an unreachable broker list degrades to nil (logged,
// not fatal) rather than blocking startup.
func NewGameServer(cfg *config.Config, log *slog.Logger) (*GameServer, error) {
	oracle, err := deck.NewMemoryOracle()
	if err != nil {
		return nil, fmt.Errorf("game-server: deck oracle: %w", err)
	}

	s := &GameServer{
		cfg:      cfg,
		oracle:   oracle,
		breakers: recovery.NewRegistry(nil),
		log:      log,
		tables:   make(map[string]*table.Table),
		conns:    make(map[string]map[*wsClient]struct{}),
	}

	if len(cfg.KafkaBrokers) > 0 {
		busCfg := eventbus.DefaultConfig(cfg.KafkaBrokers)
		if cfg.KafkaTopic != "" {
			busCfg.Topic = cfg.KafkaTopic
		}
		bus, err := eventbus.NewPublisher(busCfg)
		if err != nil {
			log.Warn("eventbus unavailable, continuing without table-event forwarding", "error", err)
		} else {
			s.bus = bus
		}
	}

	if cfg.ClickHouse.Host != "" {
		chCfg := storage.ClickHouseConfig{
			Host:         cfg.ClickHouse.Host,
			Port:         cfg.ClickHouse.Port,
			Database:     cfg.ClickHouse.Database,
			Username:     cfg.ClickHouse.Username,
			Password:     cfg.ClickHouse.Password,
			Secure:       cfg.ClickHouse.Secure,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnTimeout:  10 * time.Second,
		}
		analytics, err := storage.NewClickHouseAnalytics(context.Background(), chCfg)
		if err != nil {
			log.Warn("clickhouse unavailable, continuing without hand analytics", "error", err)
		} else if err := analytics.CreateTables(context.Background()); err != nil {
			log.Warn("clickhouse table setup failed", "error", err)
		} else {
			s.recorder = storage.NewHandRecorder(analytics, string(domain.GameTypeTexasHoldem), "no_limit")
		}
	}

	return s, nil
}

// getOrCreateTable returns the table for tableID, creating it with the
// default Texas Hold'em config (spec.md §8's example configuration) if
// absent, and starting its game loop and event-forwarding goroutine.
func (s *GameServer) getOrCreateTable(tableID string) *table.Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[tableID]; ok {
		return t
	}

	cfg := domain.TableConfig{
		TableID:    tableID,
		GameType:   domain.GameTypeTexasHoldem,
		SmallBlind: 5,
		BigBlind:   10,
		MinBuyIn:   100,
		MaxBuyIn:   10000,
		MaxSeats:   9,
	}
	t := table.New(cfg, s.oracle, s.breakers)
	t.Start(context.Background())
	s.tables[tableID] = t

	go s.forwardEvents(tableID, t)
	return t
}

// forwardEvents drains one table's event channel and fans each event
// out to every configured sink (Kafka, hand analytics) plus every
// websocket client currently watching tableID (spec.md §4.3's "each
// event is paired with the new authoritative snapshot" reaching every
// subscriber, not just the client that triggered it). A single reader
// per channel avoids the multi-consumer races a shared channel would
// introduce.
func (s *GameServer) forwardEvents(tableID string, t *table.Table) {
	for evt := range t.Events() {
		if s.bus != nil {
			if err := s.bus.Publish(context.Background(), evt); err != nil {
				s.log.Warn("event publish failed", "table_id", tableID, "kind", evt.Kind, "error", err)
			}
		}
		if s.recorder != nil {
			if err := s.recorder.Record(context.Background(), evt); err != nil {
				s.log.Warn("hand analytics record failed", "table_id", tableID, "kind", evt.Kind, "error", err)
			}
		}
		s.broadcast(tableID, map[string]interface{}{
			"type":    "event",
			"kind":    evt.Kind,
			"payload": evt.Payload,
		})
	}
}

// registerConn adds a client to tableID's broadcast set.
func (s *GameServer) registerConn(tableID string, c *wsClient) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if s.conns[tableID] == nil {
		s.conns[tableID] = make(map[*wsClient]struct{})
	}
	s.conns[tableID][c] = struct{}{}
}

// unregisterConn removes a client from tableID's broadcast set.
func (s *GameServer) unregisterConn(tableID string, c *wsClient) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns[tableID], c)
}

// broadcast sends data to every client currently watching tableID.
func (s *GameServer) broadcast(tableID string, data interface{}) {
	s.connsMu.RLock()
	clients := make([]*wsClient, 0, len(s.conns[tableID]))
	for c := range s.conns[tableID] {
		clients = append(clients, c)
	}
	s.connsMu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(data); err != nil {
			s.log.Warn("broadcast failed", "table_id", tableID, "error", err)
		}
	}
}

func (s *GameServer) handleWebSocket(c *gin.Context) {
	tableID := c.Param("tableId")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.log.Info("player connected", "table_id", tableID)
	t := s.getOrCreateTable(tableID)

	client := &wsClient{conn: conn}
	s.registerConn(tableID, client)
	defer s.unregisterConn(tableID, client)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket read error", "error", err)
			}
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			s.log.Warn("malformed client message", "error", err)
			continue
		}

		s.handleMessage(client, t, msg)
	}
}

func (s *GameServer) handleMessage(client *wsClient, t *table.Table, msg map[string]interface{}) {
	switch msg["type"] {
	case "join":
		playerID, _ := msg["player_id"].(string)
		chips, _ := msg["chips"].(float64)

		if err := t.PlayerJoins(playerID, int64(chips)); err != nil {
			s.sendError(client, err.Error())
			return
		}
		snap, _ := t.Snapshot()
		s.sendMessage(client, map[string]interface{}{
			"type":  "joined",
			"state": snap,
		})

	case "action":
		playerID, _ := msg["player_id"].(string)
		actionType, _ := msg["action"].(string)
		amount, _ := msg["amount"].(float64)

		req := domain.PlayerActionRequest{
			PlayerID:  playerID,
			Kind:      parseAction(actionType),
			Amount:    int64(amount),
			Timestamp: time.Now(),
			Role:      domain.RolePlayer,
			Authority: domain.RolePlayer.AuthorityLevel(),
		}

		// SubmitAction only reports enqueue failures (shutdown, context
		// cancellation); whether the action itself was legal surfaces
		// later as an ACTION_REJECTED event broadcast by forwardEvents.
		if err := t.SubmitAction(context.Background(), req); err != nil {
			s.sendError(client, err.Error())
		}

	case "leave":
		playerID, _ := msg["player_id"].(string)
		if err := t.PlayerLeaves(playerID); err != nil {
			s.sendError(client, err.Error())
		}

	case "sync":
		clientVersion, _ := msg["version"].(float64)
		resp := t.Sync(uint64(clientVersion))
		s.sendMessage(client, map[string]interface{}{
			"type":     "sync",
			"kind":     resp.Kind,
			"snapshot": resp.Snapshot,
			"delta":    resp.Delta,
		})

	case "recover":
		clientVersion, _ := msg["version"].(float64)
		clientHash, _ := msg["hash"].(string)
		delta, actions, err := t.Recover(uint64(clientVersion), clientHash)
		if err != nil {
			s.sendError(client, err.Error())
			return
		}
		s.sendMessage(client, map[string]interface{}{
			"type":    "recover",
			"delta":   delta,
			"actions": actions,
		})
	}
}

func parseAction(action string) domain.ActionKind {
	switch action {
	case "fold":
		return domain.ActionFold
	case "check":
		return domain.ActionCheck
	case "call":
		return domain.ActionCall
	case "bet":
		return domain.ActionBet
	case "raise":
		return domain.ActionRaise
	case "all_in":
		return domain.ActionAllIn
	default:
		return domain.ActionFold
	}
}

func (s *GameServer) sendMessage(client *wsClient, data interface{}) {
	if err := client.writeJSON(data); err != nil {
		s.log.Warn("failed to send message", "error", err)
	}
}

func (s *GameServer) sendError(client *wsClient, message string) {
	s.sendMessage(client, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case "password", "email", "token", "api_key", "credit_card", "ssn":
				return slog.String(a.Key, "[REDACTED]")
			}
			return a
		},
	}))

	cfg, err := config.Load(os.Getenv("GAME_SERVER_CONFIG_FILE"))
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	server, err := NewGameServer(cfg, log)
	if err != nil {
		log.Error("failed to create game server", "error", err)
		os.Exit(1)
	}

	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Warn("postgres unavailable, continuing without session persistence", "error", err)
		} else {
			store := postgres.NewCoreSessionStore(db)
			if err := store.CreateSchema(context.Background()); err != nil {
				log.Warn("postgres schema setup failed", "error", err)
			}
		}
	}

	router := gin.Default()
	router.GET("/ws/:tableId", server.handleWebSocket)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/api/tables/:tableId", func(c *gin.Context) {
		tableID := c.Param("tableId")
		server.mu.RLock()
		t, exists := server.tables[tableID]
		server.mu.RUnlock()
		if !exists {
			c.JSON(404, gin.H{"error": "table not found"})
			return
		}
		snap, _ := t.Snapshot()
		c.JSON(200, snap)
	})

	router.GET("/api/tables/:tableId/state", func(c *gin.Context) {
		tableID := c.Param("tableId")
		server.mu.RLock()
		t, exists := server.tables[tableID]
		server.mu.RUnlock()
		if !exists {
			c.JSON(404, gin.H{"error": "table not found"})
			return
		}
		snap, _ := t.Snapshot()
		c.JSON(200, snap)
	})

	router.POST("/api/tables", func(c *gin.Context) {
		var req struct {
			TableID string `json:"tableId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request"})
			return
		}
		server.getOrCreateTable(req.TableID)
		c.JSON(201, gin.H{"tableId": req.TableID})
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		server.mu.RLock()
		for _, t := range server.tables {
			t.Stop()
		}
		server.mu.RUnlock()
		if server.bus != nil {
			server.bus.Close()
		}
		os.Exit(0)
	}()

	port := cfg.ServerPort
	if port == "" {
		port = "8080"
	}

	log.Info("game server starting", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
