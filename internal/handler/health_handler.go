package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthProbe checks one backing dependency.
type HealthProbe func(ctx context.Context) error

// DependencyStatus is the outcome of a single probe.
type DependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string             `json:"status"`
	Timestamp    time.Time          `json:"timestamp"`
	Service      string             `json:"service"`
	Environment  string             `json:"environment"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// HealthCheck runs every probe concurrently and answers 503 when any fails.
// Nil probes are ignored.
func HealthCheck(cfg config.Config, probes map[string]HealthProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
		defer cancel()

		var (
			mu       sync.Mutex
			statuses []DependencyStatus
			g        errgroup.Group
		)
		for name, probe := range probes {
			if probe == nil {
				continue
			}
			name, probe := name, probe
			g.Go(func() error {
				status := DependencyStatus{Name: name, Status: "ok"}
				if err := probe(ctx); err != nil {
					status.Status = "down"
					status.Error = err.Error()
				}
				mu.Lock()
				statuses = append(statuses, status)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

		payload := HealthResponse{
			Status:       "ok",
			Timestamp:    time.Now().UTC(),
			Service:      cfg.AppName,
			Environment:  cfg.AppEnv,
			Dependencies: statuses,
		}
		for _, status := range statuses {
			if status.Status != "ok" {
				payload.Status = "degraded"
			}
		}

		if payload.Status != "ok" {
			c.Status(fiber.StatusServiceUnavailable)
			return c.JSON(utils.APIResponse{Success: false, Message: "service degraded", Data: payload})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
