package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/gradelens/internal/cache"
	"github.com/ppiankov/gradelens/internal/flagging"
	"github.com/ppiankov/gradelens/internal/ingest"
	"github.com/ppiankov/gradelens/internal/model"
	"github.com/ppiankov/gradelens/internal/pipeline"
	"github.com/ppiankov/gradelens/internal/report"
	"github.com/ppiankov/gradelens/internal/sample"
)

// SessionResponse describes a newly created session
type SessionResponse struct {
	SessionID string   `json:"session_id"`
	Records   int      `json:"records"`
	Flagged   int      `json:"flagged"`
	Students  int      `json:"students"`
	Questions int      `json:"questions"`
	Columns   []string `json:"columns"`
	Cached    bool     `json:"cached"`
}

// RecordsResponse lists the records of the current view
type RecordsResponse struct {
	Count   int                   `json:"count"`
	Total   int                   `json:"total"`
	Filter  model.FilterSpec      `json:"filter"`
	Records []model.GradingRecord `json:"records"`
}

// ReviewQueueResponse lists flagged records of the current view
type ReviewQueueResponse struct {
	Count int                   `json:"count"`
	Items []flagging.ReviewItem `json:"items"`
}

// FilterResponse is returned after the filter changes
type FilterResponse struct {
	Filter   model.FilterSpec `json:"filter"`
	Count    int              `json:"count"`
	Snapshot model.Snapshot   `json:"snapshot"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// createSession validates an uploaded CSV, TSV or JSON table. The format
// comes from ?format= or the Content-Type header.
func (s *Server) createSession(c *gin.Context) {
	formatName := c.Query("format")
	if formatName == "" {
		formatName = c.ContentType()
	}
	format, ok := ingest.ParseFormat(formatName)
	if !ok {
		abortWithError(c, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported format %q", formatName))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		abortWithError(c, http.StatusBadRequest, "empty request body")
		return
	}

	key := cache.ContentKey(append([]byte(string(format)+"\n"), body...))
	ds, cached := s.datasets.Touch(key)
	if cached {
		datasetCacheHits.Inc()
	} else {
		ds, err = s.pipeline.Read(bytes.NewReader(body), format)
		if err != nil {
			respondError(c, err)
			return
		}
		s.datasets.Set(key, ds)
		recordsLoaded.Add(float64(ds.Len()))
	}

	c.JSON(http.StatusCreated, s.openSession(ds, cached))
}

func (s *Server) createSampleSession(c *gin.Context) {
	opts := sample.DefaultOptions()
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
			return
		}
	}
	if err := s.validate.Struct(opts); err != nil {
		abortWithError(c, http.StatusUnprocessableEntity, fmt.Sprintf("invalid sample options: %v", err))
		return
	}

	ds, err := s.pipeline.FromRows(sample.Rows(opts))
	if err != nil {
		respondError(c, err)
		return
	}
	recordsLoaded.Add(float64(ds.Len()))

	c.JSON(http.StatusCreated, s.openSession(ds, false))
}

func (s *Server) openSession(ds model.Dataset, cached bool) SessionResponse {
	id := uuid.NewString()
	session := s.pipeline.NewSession(id, ds)
	s.sessions.Set(id, session)
	sessionsActive.Inc()

	snap := s.pipeline.Scorer().Calculate(ds)
	s.logger.Info().Str("session", id).Int("records", ds.Len()).Bool("cached", cached).Msg("session created")

	return SessionResponse{
		SessionID: id,
		Records:   ds.Len(),
		Flagged:   snap.FlagCount,
		Students:  snap.TotalStudents,
		Questions: snap.TotalQuestions,
		Columns:   ds.Columns,
		Cached:    cached,
	}
}

// session looks up :id and restarts its expiry; it aborts with 404 when
// the session is unknown or expired.
func (s *Server) session(c *gin.Context) (*pipeline.Session, bool) {
	session, ok := s.sessions.Touch(c.Param("id"))
	if !ok {
		abortWithError(c, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

// questionOrder reads ?order=; absent keeps the configured order
func (s *Server) questionOrder(c *gin.Context) (model.QuestionOrder, bool) {
	if c.Query("order") == "" {
		return "", true
	}
	order, ok := model.ParseQuestionOrder(c.Query("order"))
	if !ok {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("unknown order %q", c.Query("order")))
		return "", false
	}
	return order, true
}

func (s *Server) getMetrics(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	order, ok := s.questionOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Snapshot(order))
}

func (s *Server) getRecords(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	view := session.View()
	records := view.Records
	if records == nil {
		records = []model.GradingRecord{}
	}
	c.JSON(http.StatusOK, RecordsResponse{
		Count:   view.Len(),
		Total:   session.Base().Len(),
		Filter:  session.Filter(),
		Records: records,
	})
}

func (s *Server) getReviewQueue(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	items := session.ReviewQueue()
	if items == nil {
		items = []flagging.ReviewItem{}
	}
	c.JSON(http.StatusOK, ReviewQueueResponse{Count: len(items), Items: items})
}

func (s *Server) setFilter(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	var spec model.FilterSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	view, err := session.SetFilter(spec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FilterResponse{
		Filter:   spec,
		Count:    view.Len(),
		Snapshot: session.Snapshot(""),
	})
}

func (s *Server) clearFilter(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	session.ClearFilter()
	c.JSON(http.StatusOK, FilterResponse{
		Count:    session.View().Len(),
		Snapshot: session.Snapshot(""),
	})
}

// export renders one artifact of the current view as an attachment
func (s *Server) export(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	kind, ok := report.ParseKind(c.Param("kind"))
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Sprintf("unknown export %q", c.Param("kind")))
		return
	}
	order, ok := s.questionOrder(c)
	if !ok {
		return
	}

	originalOnly := false
	if raw := c.Query("original_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "original_only must be a boolean")
			return
		}
		originalOnly = v
	}

	renderer := s.pipeline.Renderer().WithOriginalOnly(originalOnly)
	art, err := renderer.Artifact(kind, renderer.Now(), session.Result(s.title, order))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

func (s *Server) deleteSession(c *gin.Context) {
	if _, ok := s.sessions.Get(c.Param("id")); !ok {
		abortWithError(c, http.StatusNotFound, "session not found")
		return
	}
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}
