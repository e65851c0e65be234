package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/number-duel-backend/internal/hub"
	"github.com/DoyleJ11/number-duel-backend/internal/room"
	"github.com/DoyleJ11/number-duel-backend/internal/session"
	"github.com/DoyleJ11/number-duel-backend/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const closeTimeout = 5 * time.Second

type Options struct {
	OriginPatterns []string
	OutboxSize     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

func Handler(h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			http.Error(w, "missing userId", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		clog := log.With(zap.String("player", userID), zap.String("conn", connID))
		clog.Info("connected")

		out := make(chan types.ServerMessage, opts.OutboxSize)
		sess := session.New(userID, room.Conn{ID: connID, Outbox: out}, h, log)
		sess.Open()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			sess.Close(ctx)
			clog.Info("disconnected")
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine
		go func() {
			defer cancel()
			if err := writeLoop(ctx, conn, out, opts); err != nil && ctx.Err() == nil {
				clog.Debug("writer stopped", zap.Error(err))
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if !errors.Is(err, context.Canceled) {
						clog.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				enqueue(out, types.Error("bad json"))
				continue
			}
			sess.Handle(ctx, cm)
		}
	}
}

// writeLoop owns every write on conn, pings included.
func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan types.ServerMessage, opts Options) error {
	ping := time.NewTicker(opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-out:
			wctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := wsjson.Write(wctx, conn, msg)
			cancel()
			if err != nil {
				return err
			}

		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func enqueue(out chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case out <- msg:
	default:
	}
}
