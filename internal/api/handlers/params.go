package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/pipeline"
	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

func parseDate(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return &t, nil
}

// parseFilter reads the query parameters shared by every dashboard endpoint.
func parseFilter(c *gin.Context) (domain.DashboardFilter, error) {
	var filter domain.DashboardFilter
	var err error
	if filter.StartDate, err = parseDate(c, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDate(c, "end_date"); err != nil {
		return filter, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, errors.New("end_date is before start_date")
	}
	filter.Status = strings.TrimSpace(c.Query("status"))
	filter.Type = strings.TrimSpace(c.Query("type"))
	if cat := strings.ToUpper(strings.TrimSpace(c.Query("category"))); cat != "" {
		filter.Category = domain.Category(cat)
	}
	if raw := c.Query("limit"); raw != "" {
		filter.Limit = parsePositiveIntWithDefault(raw, 0)
	}
	return filter, nil
}

// parseList accepts repeated parameters and comma separated values:
//
//	?completed_statuses=TECO&completed_statuses=DLV
//	?completed_statuses=TECO,DLV
func parseList(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
		return 0, false
	}
	return id, true
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// statusOf maps service errors onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrMissingPredicate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTerminal),
		errors.Is(err, pipeline.ErrNotTerminal),
		errors.Is(err, pipeline.ErrNoArchive):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrPoolClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error, msg string) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
