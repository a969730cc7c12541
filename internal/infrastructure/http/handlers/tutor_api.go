package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/ports/inbound"
)

// TutorHandlers handles the analysis and exercise endpoints
type TutorHandlers struct {
	tutorService    inbound.TutorService
	exerciseService inbound.ExerciseService
	validate        *validator.Validate
	logger          *zap.Logger
}

// NewTutorHandlers creates a new tutor handlers instance
func NewTutorHandlers(
	tutorService inbound.TutorService,
	exerciseService inbound.ExerciseService,
	logger *zap.Logger,
) *TutorHandlers {
	return &TutorHandlers{
		tutorService:    tutorService,
		exerciseService: exerciseService,
		validate:        validator.New(),
		logger:          logger,
	}
}

type sentenceAnalysisRequest struct {
	Sentence   string   `json:"sentence" validate:"required,max=1000"`
	Context    string   `json:"context" validate:"max=2000"`
	Vocabulary []string `json:"vocabulary" validate:"max=20,dive,max=50"`
}

// HandleAnalyzeSentence handles POST /api/v1/analysis/sentence
func (h *TutorHandlers) HandleAnalyzeSentence(w http.ResponseWriter, r *http.Request) {
	var req sentenceAnalysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.tutorService.AnalyzeSentence(r.Context(), req.Sentence, req.Context, req.Vocabulary)
	if err != nil {
		h.logger.Error("Sentence analysis failed", zap.Error(err))
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: result})
}

type wordQueryRequest struct {
	Word    string `json:"word" validate:"required,max=50"`
	Context string `json:"context" validate:"max=2000"`
}

// HandleQueryWord handles POST /api/v1/analysis/word
func (h *TutorHandlers) HandleQueryWord(w http.ResponseWriter, r *http.Request) {
	var req wordQueryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.tutorService.QueryWord(r.Context(), req.Word, req.Context)
	if err != nil {
		h.logger.Error("Word query failed", zap.String("word", req.Word), zap.Error(err))
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: result})
}

type writingAnalysisRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// HandleAnalyzeWriting handles POST /api/v1/analysis/writing
func (h *TutorHandlers) HandleAnalyzeWriting(w http.ResponseWriter, r *http.Request) {
	var req writingAnalysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.tutorService.AnalyzeWriting(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("Writing analysis failed", zap.Error(err))
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: result})
}

type generateExercisesRequest struct {
	GrammarPoint inbound.GrammarPoint `json:"grammar_point" validate:"required"`
	Count        int                  `json:"count" validate:"omitempty,min=1,max=10"`
	Difficulty   string               `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// HandleGenerateExercises handles POST /api/v1/exercises/generate
func (h *TutorHandlers) HandleGenerateExercises(w http.ResponseWriter, r *http.Request) {
	var req generateExercisesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}
	if req.GrammarPoint.Name == "" {
		writeError(w, h.logger, apperrors.NewValidationError("grammar_point.name is required"))
		return
	}

	exercises, err := h.exerciseService.GenerateExercises(r.Context(), req.GrammarPoint, req.Count, req.Difficulty)
	if err != nil {
		h.logger.Error("Exercise generation failed",
			zap.String("grammar_point", req.GrammarPoint.Name),
			zap.Error(err))
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: exercises})
}

type verifyAnswerRequest struct {
	UserAnswer    string `json:"user_answer" validate:"required,max=500"`
	CorrectAnswer string `json:"correct_answer" validate:"required,max=500"`
}

// HandleVerifyAnswer handles POST /api/v1/exercises/verify
func (h *TutorHandlers) HandleVerifyAnswer(w http.ResponseWriter, r *http.Request) {
	var req verifyAnswerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	correct := h.exerciseService.VerifyAnswer(req.UserAnswer, req.CorrectAnswer)
	writeJSON(w, h.logger, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]bool{"correct": correct},
	})
}
