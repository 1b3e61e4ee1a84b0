package handler

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

const eventsPingInterval = 30 * time.Second

// EventsHandler streams submission lifecycle events over websockets.
type EventsHandler struct {
	events service.SubmissionEvents
	logger zerolog.Logger
}

// NewEventsHandler constructs the handler.
func NewEventsHandler(events service.SubmissionEvents, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		events: events,
		logger: logger.With().Str("component", "events_handler").Logger(),
	}
}

// Register binds the websocket upgrade under the provided router group.
func (h *EventsHandler) Register(router fiber.Router) {
	router.Use("/submissions/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if userIDFromContext(c) == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if raw := strings.TrimSpace(c.Query("assignment_id")); raw != "" {
			if _, err := strconv.ParseUint(raw, 10, 64); err != nil {
				return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
			}
		}
		return c.Next()
	})

	router.Get("/submissions/ws", websocket.New(h.stream))
}

func (h *EventsHandler) stream(conn *websocket.Conn) {
	assignmentID := service.AllAssignments
	if raw := strings.TrimSpace(conn.Query("assignment_id")); raw != "" {
		parsed, _ := strconv.ParseUint(raw, 10, 64)
		assignmentID = uint(parsed)
	}

	var userID uint
	if id, ok := conn.Locals("user_id").(uint); ok {
		userID = id
	}
	role, _ := conn.Locals("user_role").(string)
	instructor := submission.ParseRole(role).IsInstructor()

	events, unsubscribe := h.events.Subscribe(assignmentID)
	defer unsubscribe()

	logger := h.logger.With().Uint("user_id", userID).Uint("assignment_id", assignmentID).Logger()
	logger.Info().Msg("submission stream connected")

	closed := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(closed)
			_ = conn.Close()
		})
	}
	defer stop()

	// Inbound frames are ignored; the read loop only notices disconnects.
	go func() {
		defer stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if !visibleTo(event, userID, instructor) {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("submission stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("submission stream ping failed")
				return
			}
		case <-closed:
			logger.Info().Msg("submission stream disconnected")
			return
		}
	}
}

// visibleTo hides other students' submissions from student subscribers.
func visibleTo(event dto.SubmissionEvent, userID uint, instructor bool) bool {
	return instructor || event.StudentID == userID
}
