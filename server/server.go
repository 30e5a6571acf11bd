// Package server exposes url cleaning over HTTP.
package server

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/tmshv/untrack/internal"
	"github.com/tmshv/untrack/store"
	"github.com/tmshv/untrack/utils"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Server struct {
	app    *fiber.App
	store  store.Store
	logger *zap.Logger
}

type urlResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type filterRequest struct {
	URL     string   `json:"url"`
	Filters []string `json:"filters"`
}

// New builds the HTTP API. s may be nil, history is then unavailable and
// cleaned links are not recorded.
func New(s store.Store, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "untrack",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	srv := &Server{
		app:    app,
		store:  s,
		logger: logger,
	}

	app.Get("/untrack", srv.untrack)
	app.Post("/filter", srv.filter)
	app.Get("/trackers", srv.trackers)
	app.Get("/history", srv.history)

	return srv
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("Listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) untrack(c *fiber.Ctx) error {
	rawURL := c.Query("url")
	if rawURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "url is required"})
	}

	var names []string
	if allow := c.Query("allow"); allow != "" {
		names = strings.Split(allow, ",")
	}
	allowed, err := utils.ParseAllowed(names)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	cleaned, removed, err := utils.FilterQueryCount(rawURL, allowed.Filters())
	if err != nil {
		return s.malformed(c, rawURL, err)
	}

	if c.Query("normalize") == "true" {
		cleaned, err = utils.Normalize(cleaned)
		if err != nil {
			return s.malformed(c, rawURL, err)
		}
	}

	s.record(rawURL, cleaned, removed)
	return c.JSON(urlResponse{URL: cleaned})
}

func (s *Server) filter(c *fiber.Ctx) error {
	var req filterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "url is required"})
	}

	cleaned, removed, err := utils.FilterQueryCount(req.URL, req.Filters)
	if err != nil {
		return s.malformed(c, req.URL, err)
	}

	s.record(req.URL, cleaned, removed)
	return c.JSON(urlResponse{URL: cleaned})
}

func (s *Server) trackers(c *fiber.Ctx) error {
	return c.JSON(utils.Trackers())
}

func (s *Server) history(c *fiber.Ctx) error {
	if s.store == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "history is disabled"})
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid limit"})
		}
		limit = n
	}

	links, err := s.store.GetLinks(limit)
	if err != nil {
		s.logger.Error("Failed to get links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to get links"})
	}
	return c.JSON(links)
}

func (s *Server) malformed(c *fiber.Ctx, rawURL string, err error) error {
	s.logger.Debug("Malformed url", zap.String("url", rawURL), zap.Error(err))
	return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{Error: err.Error()})
}

func (s *Server) record(original, cleaned string, removed int) {
	if s.store == nil || removed == 0 {
		return
	}
	_, err := s.store.AddLink(internal.Link{
		Original: original,
		Cleaned:  cleaned,
		Source:   "http",
	})
	if err != nil {
		s.logger.Warn("Failed to record link", zap.String("url", original), zap.Error(err))
	}
}
