package app

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ittebagilani/harada/app/llm"
)

type answerRequest struct {
	QuestionID *int `json:"questionId" binding:"required"`
	Answer     *int `json:"answer" binding:"required"`
}

// Questions lists the self-assessment and its answer scale.
func (s *Server) Questions(c *gin.Context) {
	type question struct {
		ID   int    `json:"id"`
		Text string `json:"text"`
	}
	questions := make([]question, len(llm.Questions))
	for i, text := range llm.Questions {
		questions[i] = question{ID: i, Text: text}
	}

	labels := make(map[string]string, len(llm.AnswerLabels))
	for v, label := range llm.AnswerLabels {
		labels[strconv.Itoa(v)] = label
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions, "labels": labels})
}

// GetOnboarding returns the stored answers keyed by question id.
func (s *Server) GetOnboarding(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	answers, err := s.store.ListAnswers(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	out := make(map[string]string, len(answers))
	for _, a := range answers {
		out[strconv.Itoa(a.QuestionID)] = strconv.Itoa(a.Value)
	}
	c.JSON(http.StatusOK, gin.H{"answers": out})
}

// SaveAnswer upserts one answer.
func (s *Server) SaveAnswer(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, invalidInput("questionId and answer are required"))
		return
	}
	if *req.QuestionID < 0 || *req.QuestionID >= llm.QuestionCount {
		respondError(c, s.logger, invalidInput("questionId must be between 0 and %d", llm.QuestionCount-1))
		return
	}
	if *req.Answer < 1 || *req.Answer > 5 {
		respondError(c, s.logger, invalidInput("answer must be between 1 and 5"))
		return
	}

	if err := s.store.UpsertAnswer(c.Request.Context(), user.ID, *req.QuestionID, *req.Answer); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
