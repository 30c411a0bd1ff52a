package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pomodoroplaza/internal/errors"
	"pomodoroplaza/internal/middleware"
	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/service"
)

type TimerHandler struct {
	timerService *service.TimerService
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

type pauseDurationRequest struct {
	Minutes *int `json:"minutes"`
}

type importRequest struct {
	State string `json:"state"`
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	state, apiErr := h.timerService.GetState(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) AddTimer(c *gin.Context) {
	var req model.TimerSpec
	if !bindJSON(c, &req) {
		return
	}

	timer, apiErr := h.timerService.AddTimer(c.Request.Context(), middleware.UserID(c), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"timer": timer})
}

func (h *TimerHandler) UpdateTimer(c *gin.Context) {
	var req model.TimerPatch
	if !bindJSON(c, &req) {
		return
	}

	timer, apiErr := h.timerService.UpdateTimer(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timer": timer})
}

func (h *TimerHandler) DeleteTimer(c *gin.Context) {
	respondState(c)(h.timerService.DeleteTimer(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

func (h *TimerHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if !bindJSON(c, &req) {
		return
	}
	respondState(c)(h.timerService.Reorder(c.Request.Context(), middleware.UserID(c), req.IDs))
}

func (h *TimerHandler) StartTimer(c *gin.Context) {
	respondState(c)(h.timerService.StartTimer(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

func (h *TimerHandler) PauseTimer(c *gin.Context) {
	respondState(c)(h.timerService.PauseTimer(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

func (h *TimerHandler) ResetTimer(c *gin.Context) {
	respondState(c)(h.timerService.ResetTimer(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

func (h *TimerHandler) StopTimer(c *gin.Context) {
	respondState(c)(h.timerService.StopTimer(c.Request.Context(), middleware.UserID(c)))
}

func (h *TimerHandler) UpdatePauseDuration(c *gin.Context) {
	var req pauseDurationRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Minutes == nil {
		writeError(c, apperrors.BadRequest("invalid_pause_duration", "minutes is required"))
		return
	}
	respondState(c)(h.timerService.UpdatePauseDuration(c.Request.Context(), middleware.UserID(c), *req.Minutes))
}

func (h *TimerHandler) StartBreak(c *gin.Context) {
	respondState(c)(h.timerService.StartBreak(c.Request.Context(), middleware.UserID(c)))
}

func (h *TimerHandler) SkipBreak(c *gin.Context) {
	respondState(c)(h.timerService.SkipBreak(c.Request.Context(), middleware.UserID(c)))
}

func (h *TimerHandler) GetHistory(c *gin.Context) {
	completed, apiErr := h.timerService.History(c.Request.Context(), middleware.UserID(c), queryInt(c, "limit", service.DefaultHistoryLimit))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed})
}

func (h *TimerHandler) GetHeatmap(c *gin.Context) {
	result, apiErr := h.timerService.Heatmap(c.Request.Context(), middleware.UserID(c), queryInt(c, "days", 0))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"heatmap": result})
}

func (h *TimerHandler) Share(c *gin.Context) {
	shared, apiErr := h.timerService.Share(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, shared)
}

func (h *TimerHandler) Import(c *gin.Context) {
	var req importRequest
	if !bindJSON(c, &req) {
		return
	}
	respondState(c)(h.timerService.Import(c.Request.Context(), middleware.UserID(c), req.State))
}

// Events streams state events as server-sent events until the client leaves.
func (h *TimerHandler) Events(c *gin.Context) {
	events, cancel := h.timerService.Subscribe(c.Request.Context(), middleware.UserID(c), 32)
	defer cancel()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
