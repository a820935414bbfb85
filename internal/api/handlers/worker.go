package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agrosynchro-engine/internal/worker"
)

// WorkerHandler exposes lifecycle control over the engine's loops. It replaces
// the shared running flag of earlier revisions with explicit per-loop
// start/stop on the injected runners.
type WorkerHandler struct {
	workers map[string]worker.Runner
}

func NewWorkerHandler(workers map[string]worker.Runner) *WorkerHandler {
	return &WorkerHandler{workers: workers}
}

func (h *WorkerHandler) Status(c *gin.Context) {
	status := gin.H{}
	for name, runner := range h.workers {
		status[name] = gin.H{"running": runner.Running()}
	}
	c.JSON(http.StatusOK, status)
}

func (h *WorkerHandler) Start(c *gin.Context) {
	name := c.Param("name")
	runner, ok := h.workers[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown worker"})
		return
	}

	if err := runner.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": name + " started"})
}

func (h *WorkerHandler) Stop(c *gin.Context) {
	name := c.Param("name")
	runner, ok := h.workers[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown worker"})
		return
	}

	if err := runner.Shutdown(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": name + " stopped"})
}
