package server

import (
	"socialgraph/internal/store"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and their state for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(c.IP()),
	})
}

// ReplayDelete handles POST /api/admin/replay/:kind/:id. It re-runs the
// delete sweep for a document that is already gone so references left by a
// partially applied cascade are removed.
func (s *Server) ReplayDelete(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.graph.Replay.ReplayDelete(c.UserContext(), store.Kind(c.Params("kind")), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(report)
}
