package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/chunkstore"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/retrieval"
)

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	Query string `json:"query" validate:"required,min=3"`
}

// SynthesizeRequest is the body of POST /synthesize. An empty question
// type is filled in by the classifier.
type SynthesizeRequest struct {
	Query            string   `json:"query" validate:"required,min=3"`
	QuestionType     string   `json:"question_type,omitempty"`
	TopK             int      `json:"top_k,omitempty" validate:"omitempty,gt=0,lte=50"`
	IntentFilters    []string `json:"intent_filters,omitempty"`
	SentimentFilters []string `json:"sentiment_filters,omitempty"`
}

// SynthesizeResponse is the answer plus the retrieval it was grounded on.
type SynthesizeResponse struct {
	QuestionType string              `json:"question_type"`
	Confidence   *float64            `json:"confidence,omitempty"`
	Answer       string              `json:"answer"`
	Reasoning    []string            `json:"reasoning"`
	Retrieval    *retrieval.Response `json:"retrieval"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string             `json:"status"`
	Index  *chunkstore.Status `json:"index,omitempty"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req retrieval.Request
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.searcher.Search(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handleClassify(c *gin.Context) {
	if s.classifier == nil {
		s.fail(c, fmt.Errorf("classifier %w", ErrNotConfigured))
		return
	}
	var req ClassifyRequest
	if !s.bind(c, &req) {
		return
	}
	result, err := s.classifier.Classify(c.Request.Context(), req.Query)
	if err != nil {
		s.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, result)
}

func (s *Server) handleSynthesize(c *gin.Context) {
	if s.synthesizer == nil {
		s.fail(c, fmt.Errorf("synthesizer %w", ErrNotConfigured))
		return
	}
	var req SynthesizeRequest
	if !s.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	out := SynthesizeResponse{QuestionType: strings.TrimSpace(req.QuestionType)}
	if out.QuestionType == "" {
		if s.classifier == nil {
			s.fail(c, fmt.Errorf("%w: question_type is required without a classifier", core.ErrValidation))
			return
		}
		verdict, err := s.classifier.Classify(ctx, req.Query)
		if err != nil {
			s.fail(c, err)
			return
		}
		out.QuestionType = string(verdict.Type)
		out.Confidence = &verdict.Confidence
	}

	resp, err := s.searcher.Search(ctx, retrieval.Request{
		Query:            req.Query,
		QuestionType:     out.QuestionType,
		TopK:             req.TopK,
		IntentFilters:    req.IntentFilters,
		SentimentFilters: req.SentimentFilters,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	qt, err := core.ParseQuestionType(out.QuestionType)
	if err != nil {
		qt = core.QuestionType(resp.RetrievalMode)
	}
	answer, err := s.synthesizer.Synthesize(ctx, req.Query, qt, evidence(resp))
	if err != nil {
		s.fail(c, err)
		return
	}
	out.Answer = answer.Answer
	out.Reasoning = answer.Reasoning
	if out.Reasoning == nil {
		out.Reasoning = []string{}
	}
	out.Retrieval = resp
	writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleHealth(c *gin.Context) {
	body := HealthResponse{Status: "ok"}
	if s.status != nil {
		st := s.status.Status()
		body.Index = &st
	}
	writeJSON(c, http.StatusOK, body)
}

// evidence converts returned chunks into synthesizer input, best first.
func evidence(resp *retrieval.Response) []ai.Evidence {
	out := make([]ai.Evidence, 0, len(resp.Chunks))
	for _, ch := range resp.Chunks {
		out = append(out, ai.Evidence{
			ChunkID: ch.ID,
			DocID:   ch.Metadata.DocID,
			Title:   ch.Metadata.Title,
			Source:  ch.Metadata.SourceURL,
			Summary: ch.Summary,
			Claims:  ch.Claims,
			Text:    ch.Snippet,
		})
	}
	return out
}

// bind decodes and validates the JSON body into v. On failure it writes a
// 400 and returns false.
func (s *Server) bind(c *gin.Context, v any) bool {
	if err := jsonx.NewDecoder(c.Request.Body).Decode(v); err != nil {
		s.fail(c, fmt.Errorf("%w: malformed JSON body: %v", core.ErrValidation, err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			err = fmt.Errorf("field %s failed %q", fe.Field(), fe.Tag())
		}
		s.fail(c, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return false
	}
	return true
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "code", code, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", c.Request.URL.Path, "code", code, "err", err)
	}
	writeJSON(c, status, ErrorBody{Error: ErrorDetail{Code: code, Message: err.Error()}})
	c.Abort()
}

func writeJSON(c *gin.Context, status int, v any) {
	body, err := jsonx.Marshal(v)
	if err != nil {
		c.Data(http.StatusInternalServerError, "application/json; charset=utf-8",
			[]byte(`{"error":{"code":"internal","message":"encode response"}}`))
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}
