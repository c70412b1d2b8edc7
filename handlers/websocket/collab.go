package websocket

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/NTDKhoa04/bloggin-be/collab"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// SetupSocketIO builds the socket.io server hosting the /collaboration
// namespace. The gateway only speaks the wire protocol; every state
// decision (authorization, merge, presence, persistence) lives in the hub.
func SetupSocketIO(hub *collab.Hub) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      allowedOrigins(),
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	nsp := srv.Of("/collaboration", nil)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	nsp.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		connID := string(socket.Id())

		hs := socket.Handshake()
		userID := handshakeAuth(hs, "userId")
		if userID == "" {
			userID = handshakeQuery(hs, "userId")
		}
		draftID := handshakeQuery(hs, "draftId")

		sess, roster, err := hub.Connect(context.Background(), connID, userID, draftID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"conn_id":  connID,
				"user_id":  userID,
				"draft_id": draftID,
			}).WithError(err).Warn("Rejecting collaboration connection")
			socket.Disconnect(true)
			return
		}

		room := draftRoom(sess.DraftID)
		socket.Join(room)

		_ = socket.Broadcast().To(room).Emit("user-joined", map[string]any{
			"userId":   sess.UserID,
			"role":     sess.Role,
			"socketId": connID,
		})
		_ = socket.Emit("active-users", roster)

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("yjs-update", func(datas ...any) {
			handleUpdate(hub, socket, datas)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("awareness-update", func(datas ...any) {
			handleAwareness(hub, socket, datas)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("request-sync", func(datas ...any) {
			handleRequestSync(hub, socket)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("get-active-users", func(datas ...any) {
			if sess, ok := hub.Session(string(socket.Id())); ok {
				_ = socket.Emit("active-users", hub.Roster(sess.DraftID))
			}
		})

		socket.On("disconnect", func(datas ...any) {
			teardown(hub, nsp, socket)
			socket.RemoveAllListeners("")
		})
	})

	return srv
}

// handleUpdate merges an incoming document update and relays it to the
// rest of the room. The same base64 payload the client sent is
// rebroadcast, so peers apply exactly the bytes the server merged.
func handleUpdate(hub *collab.Hub, socket *socketio.Socket, datas []any) {
	connID := string(socket.Id())

	payload, ok := firstMap(datas)
	if !ok {
		emitError(socket, "Malformed update message")
		return
	}
	encoded, _ := payload["update"].(string)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || encoded == "" {
		emitError(socket, "Update is not valid base64")
		return
	}

	sess, err := hub.ApplyUpdate(connID, raw)
	switch {
	case errors.Is(err, collab.ErrNoSession):
		emitError(socket, "No active collaboration session")
		return
	case errors.Is(err, collab.ErrPermissionDenied):
		emitError(socket, "Viewers cannot edit the document")
		return
	case err != nil:
		logrus.WithField("conn_id", connID).WithError(err).Error("Failed to process update")
		emitError(socket, "Failed to process update")
		return
	}

	_ = socket.Broadcast().To(draftRoom(sess.DraftID)).Emit("yjs-update", map[string]any{
		"update": encoded,
		"userId": sess.UserID,
	})
}

// handleAwareness relays cursor/selection signals verbatim. Awareness is
// never merged into document state and never persisted.
func handleAwareness(hub *collab.Hub, socket *socketio.Socket, datas []any) {
	sess, ok := hub.Session(string(socket.Id()))
	if !ok {
		return
	}
	payload, ok := firstMap(datas)
	if !ok {
		return
	}
	_ = socket.Broadcast().To(draftRoom(sess.DraftID)).Emit("awareness-update", map[string]any{
		"awareness": payload["awareness"],
		"userId":    sess.UserID,
	})
}

func handleRequestSync(hub *collab.Hub, socket *socketio.Socket) {
	connID := string(socket.Id())
	state, _, err := hub.EncodeState(connID)
	if err != nil {
		logrus.WithField("conn_id", connID).WithError(err).Warn("Sync request failed")
		emitError(socket, "Failed to encode document state")
		return
	}
	_ = socket.Emit("sync-update", map[string]any{
		"update": base64.StdEncoding.EncodeToString(state),
	})
}

// teardown runs the disconnect sequence: ask the transport how many peers
// remain in the room, hand that (or "unknown") to the hub, then tell the
// remaining room who left.
func teardown(hub *collab.Hub, nsp socketio.NamespaceInterface, socket *socketio.Socket) {
	connID := string(socket.Id())
	sess, ok := hub.Session(connID)
	if !ok {
		return
	}
	room := draftRoom(sess.DraftID)

	nsp.In(room).FetchSockets()(func(peers []*socketio.RemoteSocket, fetchErr error) {
		// The disconnected socket already left the room, so len(peers) is
		// the remaining population. An unavailable membership view maps to
		// -1, which makes the hub save defensively.
		size := -1
		if fetchErr != nil {
			logrus.WithField("draft_id", sess.DraftID).WithError(fetchErr).
				Warn("Room membership unavailable during disconnect")
		} else {
			size = len(peers)
		}

		removed, ok := hub.Disconnect(connID, size)
		if !ok {
			return
		}
		_ = nsp.To(room).Emit("user-left", map[string]any{
			"userId":   removed.UserID,
			"socketId": connID,
		})
	})
}

func draftRoom(draftID string) socketio.Room {
	return socketio.Room("draft:" + draftID)
}

func emitError(socket *socketio.Socket, message string) {
	_ = socket.Emit("error", map[string]any{"message": message})
}

func firstMap(datas []any) (map[string]any, bool) {
	if len(datas) == 0 {
		return nil, false
	}
	m, ok := datas[0].(map[string]any)
	return m, ok
}

func handshakeAuth(hs *socketio.Handshake, key string) string {
	if m, ok := hs.Auth.(map[string]any); ok {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}

func handshakeQuery(hs *socketio.Handshake, key string) string {
	if vs, ok := hs.Query[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// allowedOrigins returns the CORS origin list for the collaboration
// namespace. COLLAB_ALLOWED_ORIGINS is a comma-separated override; the
// default admits local development hosts only.
func allowedOrigins() []any {
	if raw := os.Getenv("COLLAB_ALLOWED_ORIGINS"); raw != "" {
		origins := make([]any, 0)
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		return origins
	}
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	return []any{localhostOrigin}
}
