package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/matchplay/tournament-engine/middleware"
	"github.com/matchplay/tournament-engine/models"
	"github.com/matchplay/tournament-engine/services"
	"github.com/matchplay/tournament-engine/storage"
)

const maxEvidenceSize = 10 << 20 // 10MB

type MatchHandler struct {
	matchService services.MatchService
	uploader     storage.FileUploader
}

func NewMatchHandler(ms services.MatchService, uploader storage.FileUploader) *MatchHandler {
	return &MatchHandler{matchService: ms, uploader: uploader}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatchByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var round *int
	if v := r.URL.Query().Get("round"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequestResponse(w, r, errors.New("invalid round parameter"))
			return
		}
		round = &n
	}
	var state *models.MatchState
	if v := r.URL.Query().Get("state"); v != "" {
		s := models.MatchState(v)
		state = &s
	}

	matches, err := h.matchService.ListMatches(r.Context(), tournamentID, round, state)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResult accepts either a JSON body or a multipart form carrying an
// optional evidence file. The file is uploaded before the result is stored;
// an orphaned upload from a failed submission is removed again.
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submitterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	input := services.SubmitResultInput{MatchID: matchID, SubmitterID: submitterID}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := h.readMultipartResult(r, matchID, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	} else {
		var body struct {
			HomeScore int `json:"home_score"`
			AwayScore int `json:"away_score"`
		}
		if err := readJSON(w, r, &body); err != nil {
			badRequestResponse(w, r, err)
			return
		}
		input.HomeScore = body.HomeScore
		input.AwayScore = body.AwayScore
	}

	result, err := h.matchService.SubmitResult(r.Context(), input)
	if err != nil {
		if input.EvidenceKey != nil && h.uploader != nil {
			_ = h.uploader.Delete(r.Context(), *input.EvidenceKey)
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"result": result}
	if input.EvidenceKey != nil && h.uploader != nil {
		response["evidence_url"] = h.uploader.GetPublicURL(*input.EvidenceKey)
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) readMultipartResult(r *http.Request, matchID int, input *services.SubmitResultInput) error {
	if err := r.ParseMultipartForm(maxEvidenceSize); err != nil {
		return fmt.Errorf("failed to parse multipart form: %w", err)
	}

	homeScore, err := strconv.Atoi(r.FormValue("home_score"))
	if err != nil {
		return errors.New("home_score must be an integer")
	}
	awayScore, err := strconv.Atoi(r.FormValue("away_score"))
	if err != nil {
		return errors.New("away_score must be an integer")
	}
	input.HomeScore = homeScore
	input.AwayScore = awayScore

	file, header, err := r.FormFile("evidence")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil
		}
		return fmt.Errorf("failed to read evidence file: %w", err)
	}
	defer file.Close()

	if h.uploader == nil {
		return errors.New("evidence uploads are not enabled")
	}

	key := fmt.Sprintf("evidence/match_%d_%d%s", matchID, time.Now().UnixNano(), filepath.Ext(header.Filename))
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if _, err := h.uploader.Upload(r.Context(), key, mimeType, file); err != nil {
		return fmt.Errorf("failed to store evidence: %w", err)
	}
	input.EvidenceKey = &key
	return nil
}

func (h *MatchHandler) ApproveResult(w http.ResponseWriter, r *http.Request) {
	resultID, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reviewerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.matchService.ApproveResult(r.Context(), resultID, reviewerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) RejectResult(w http.ResponseWriter, r *http.Request) {
	resultID, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reviewerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		Comment string `json:"comment"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.RejectResult(r.Context(), resultID, reviewerID, input.Comment); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) SubmitPenalty(w http.ResponseWriter, r *http.Request) {
	resultID, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reviewerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		HomePenaltyScore int `json:"home_penalty_score"`
		AwayPenaltyScore int `json:"away_penalty_score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.SubmitPenalty(r.Context(), resultID, reviewerID, input.HomePenaltyScore, input.AwayPenaltyScore); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) DisqualifyTeam(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		TeamID int `json:"team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DisqualifyTeam(r.Context(), matchID, input.TeamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
