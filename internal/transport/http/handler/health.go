package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hrdoc-assistant/internal/bootstrap"
)

type HealthHandler struct {
	name      string
	env       string
	startedAt time.Time
	checks    []bootstrap.DependencyCheck
}

type dependencyStatus struct {
	OK       bool   `json:"ok"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
}

func NewHealthHandler(name, env string, startedAt time.Time, checks []bootstrap.DependencyCheck) *HealthHandler {
	return &HealthHandler{name: name, env: env, startedAt: startedAt, checks: checks}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	allOK := true
	deps := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		status := dependencyStatus{OK: true, Optional: check.Optional}
		if err := check.Ping(ctx); err != nil {
			status.OK = false
			status.Message = err.Error()
			if !check.Optional {
				allOK = false
			}
		}
		deps[check.Name] = status
	}

	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":          h.name,
		"env":          h.env,
		"uptime_sec":   int(time.Since(h.startedAt).Seconds()),
		"dependencies": deps,
	})
}
