package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	apierrors "github.com/papeesearch/portal/internal/api/errors"
	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/models"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// UserLookup loads the account behind an authenticated request.
type UserLookup interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// Handler streams feed events to a back-office user over a WebSocket.
type Handler struct {
	broker       *Broker
	users        UserLookup
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	logger       *slog.Logger
}

// NewHandler creates a new feed WebSocket handler.
func NewHandler(broker *Broker, users UserLookup, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		broker: broker,
		users:  users,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// ServeHTTP handles GET /v1/feed/ws. The optional kinds query parameter
// (comma separated) narrows the stream; kinds the user may not view are
// always left out.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if errors.Is(err, auth.ErrUserNotFound) {
		apierrors.WriteError(w, r, apierrors.NewUnauthorizedError("Account no longer exists"))
		return
	}
	if err != nil {
		h.logger.Error("failed to load feed user", "error", err)
		apierrors.WriteError(w, r, apierrors.NewInternalError("Failed to open feed"))
		return
	}

	kinds := AllowedKinds(user, parseKinds(r.URL.Query().Get("kinds")))
	if len(kinds) == 0 {
		apierrors.WriteError(w, r, apierrors.NewForbiddenError("No feed kinds are visible to this account"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	sub := h.broker.Subscribe(kinds...)
	defer h.broker.Unsubscribe(sub)

	h.logger.Info("feed client connected", "user_id", user.ID, "subscriber_id", sub.ID, "kinds", kinds)

	// The reader only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("feed read ended", "error", err, "subscriber_id", sub.ID)
				}
				return
			}
		}
	}()

	// Grants can change while the socket is open, so every write re-reads the
	// account. The hijacked request context stays live until we return.
	ctx := r.Context()
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.logger.Info("feed client disconnected", "subscriber_id", sub.ID)
			return
		case ev, ok := <-sub.Ch:
			if !ok {
				closeWith(conn, websocket.CloseGoingAway, "server shutting down")
				return
			}
			current, code, reason := h.reauthorize(ctx, user.ID, kinds)
			if code != 0 {
				h.logger.Info("feed access ended", "user_id", user.ID, "subscriber_id", sub.ID, "reason", reason)
				closeWith(conn, code, reason)
				return
			}
			if auth.CheckUserPermission(current, ev.Kind, models.ActionView) != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("feed write failed", "error", err, "subscriber_id", sub.ID)
				return
			}
		case <-ticker.C:
			if _, code, reason := h.reauthorize(ctx, user.ID, kinds); code != 0 {
				h.logger.Info("feed access ended", "user_id", user.ID, "subscriber_id", sub.ID, "reason", reason)
				closeWith(conn, code, reason)
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				h.logger.Debug("feed ping failed", "error", err, "subscriber_id", sub.ID)
				return
			}
		}
	}
}

// reauthorize reloads the account behind an open feed. A non-zero close code
// means the account is gone, disabled or has lost every subscribed kind.
func (h *Handler) reauthorize(ctx context.Context, userID int64, kinds []models.Module) (*models.User, int, string) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	user, err := h.users.GetUser(ctx, userID)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return nil, websocket.ClosePolicyViolation, "account no longer exists"
	case err != nil:
		h.logger.Error("failed to reload feed user", "error", err, "user_id", userID)
		return nil, websocket.CloseInternalServerErr, "failed to check access"
	case len(AllowedKinds(user, kinds)) == 0:
		return nil, websocket.ClosePolicyViolation, "feed access revoked"
	}
	return user, 0, ""
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeTimeout))
}

// AllowedKinds intersects the requested kinds (all when empty) with the
// modules user may view.
func AllowedKinds(user *models.User, requested []models.Module) []models.Module {
	if len(requested) == 0 {
		requested = Kinds
	}
	var out []models.Module
	for _, k := range Kinds {
		if !slices.Contains(requested, k) {
			continue
		}
		if auth.CheckUserPermission(user, k, models.ActionView) == nil {
			out = append(out, k)
		}
	}
	return out
}

func parseKinds(raw string) []models.Module {
	var out []models.Module
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, models.Module(part))
		}
	}
	return out
}
