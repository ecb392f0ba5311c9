package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"tingxie/internal/audio"
	"tingxie/internal/drill"
	"tingxie/internal/security"
	"tingxie/internal/service"
)

// DrillHandler serves the dictation drill pages and their JSON actions
type DrillHandler struct {
	drillService *service.DrillService
	listService  *service.ListService
	emailService *service.EmailService
	ttsService   *audio.TTSService
	effects      *audio.EffectLibrary
	tokens       *security.SessionTokens
	middleware   *Middleware
	templates    *template.Template
	reportTo     string
}

// NewDrillHandler creates a new drill handler. ttsService, effects and
// emailService may be nil.
func NewDrillHandler(
	drillService *service.DrillService,
	listService *service.ListService,
	emailService *service.EmailService,
	ttsService *audio.TTSService,
	effects *audio.EffectLibrary,
	tokens *security.SessionTokens,
	middleware *Middleware,
	templates *template.Template,
	reportTo string,
) *DrillHandler {
	return &DrillHandler{
		drillService: drillService,
		listService:  listService,
		emailService: emailService,
		ttsService:   ttsService,
		effects:      effects,
		tokens:       tokens,
		middleware:   middleware,
		templates:    templates,
		reportTo:     reportTo,
	}
}

// Home shows the list picker
func (h *DrillHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	lists, err := h.listService.GetAllLists()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error getting lists", err)
		return
	}

	defaultList, err := h.listService.ResolveDefaultList()
	if err != nil {
		log.Printf("Warning: failed to resolve default list: %v", err)
	}

	_, hasSession := h.middleware.sessionFromCookie(r)

	data := IndexViewData{
		Title:       "聽寫練習",
		Lists:       lists,
		DefaultList: defaultList,
		HasSession:  hasSession,
		Error:       r.URL.Query().Get("error"),
	}

	if err := h.templates.ExecuteTemplate(w, "index.tmpl", data); err != nil {
		log.Printf("Error rendering index template: %v", err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
	}
}

// StartDrill creates a session for the chosen list and sets the signed cookie
func (h *DrillHandler) StartDrill(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	if previous, ok := h.middleware.sessionFromCookie(r); ok {
		h.drillService.End(previous)
	}

	listName := strings.TrimSpace(r.FormValue("list"))
	sessionID, list, err := h.drillService.Start(listName)
	if errors.Is(err, service.ErrListNotFound) {
		http.Redirect(w, r, "/?error=list-not-found", http.StatusSeeOther)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to start drill", "Error starting drill", err)
		return
	}

	token, expires, err := h.tokens.Issue(sessionID, list.Name)
	if err != nil {
		h.drillService.End(sessionID)
		respondWithError(w, http.StatusInternalServerError, "Failed to start drill", "Error issuing session token", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, security.DrillCookieName, token, expires))
	http.Redirect(w, r, "/drill", http.StatusSeeOther)
}

// ShowDrill renders the current question
func (h *DrillHandler) ShowDrill(w http.ResponseWriter, r *http.Request) {
	sessionID := GetDrillSessionID(r.Context())
	list, err := h.drillService.List(sessionID)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var snap drill.Snapshot
	err = h.drillService.With(sessionID, func(s *drill.Session) error {
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := DrillViewData{
		Title:        "聽寫練習 - " + list.Name,
		ListName:     list.Name,
		ItemNumber:   snap.CurrentItem + 1,
		Total:        snap.Total,
		Mode:         snap.Mode.String(),
		ModeLabel:    modeLabel(snap.Mode),
		AccuracyText: snap.AccuracyText,
		Correct:      snap.Correct,
		Wrong:        snap.Wrong,
		WrongQueue:   snap.WrongQueue,
		History:      newHistoryViews(snap.Attempts),
		CSRFToken:    h.middleware.CSRFToken(sessionID),
		ReportEmail:  h.emailService != nil && h.emailService.IsEnabled() && h.reportTo != "",
	}

	if err := h.templates.ExecuteTemplate(w, "drill.tmpl", data); err != nil {
		log.Printf("Error rendering drill template: %v", err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
	}
}

// SubmitAnswer evaluates the answer for the current word. It never advances.
func (h *DrillHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}
	answer := r.FormValue("answer")

	var resp SubmitResponse
	err := h.drillService.With(GetDrillSessionID(r.Context()), func(s *drill.Session) error {
		eval := s.SubmitAnswer(r.Context(), answer)
		resp = SubmitResponse{
			Verdict:   eval.Verdict.String(),
			Correct:   eval.IsCorrect(),
			Word:      eval.Target,
			Submitted: eval.Submitted,
			Message:   drill.VerdictMessage(eval),
			Mode:      s.Mode().String(),
			Accuracy:  s.Snapshot().AccuracyText,
		}
		if !eval.IsCorrect() {
			resp.Diff = newDiffViews(eval.Diff)
		}
		return nil
	})
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, MessageResponse{Message: ErrNoDrillSession})
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Next advances after a shown result
func (h *DrillHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, (*drill.Session).Next)
}

// Skip advances without answering
func (h *DrillHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, (*drill.Session).Skip)
}

func (h *DrillHandler) advance(w http.ResponseWriter, r *http.Request, step func(*drill.Session) drill.Transition) {
	var resp AdvanceResponse
	err := h.drillService.With(GetDrillSessionID(r.Context()), func(s *drill.Session) error {
		transition := step(s)
		snap := s.Snapshot()
		resp = AdvanceResponse{
			Transition: transition.String(),
			Message:    drill.TransitionMessage(transition),
			Item:       snap.CurrentItem + 1,
			Total:      snap.Total,
			Mode:       snap.Mode.String(),
			Pending:    len(snap.WrongQueue),
		}
		return nil
	})
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, MessageResponse{Message: ErrNoDrillSession})
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Stats returns the session snapshot
func (h *DrillHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sessionID := GetDrillSessionID(r.Context())
	list, err := h.drillService.List(sessionID)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, MessageResponse{Message: ErrNoDrillSession})
		return
	}

	var snap drill.Snapshot
	if err := h.drillService.With(sessionID, func(s *drill.Session) error {
		snap = s.Snapshot()
		return nil
	}); err != nil {
		respondJSON(w, http.StatusUnauthorized, MessageResponse{Message: ErrNoDrillSession})
		return
	}

	respondJSON(w, http.StatusOK, newStatsResponse(list.Name, snap))
}

// Audio serves the pronunciation of the current word
func (h *DrillHandler) Audio(w http.ResponseWriter, r *http.Request) {
	var word string
	if err := h.drillService.With(GetDrillSessionID(r.Context()), func(s *drill.Session) error {
		word = s.CurrentWord()
		return nil
	}); err != nil {
		respondJSON(w, http.StatusUnauthorized, MessageResponse{Message: ErrNoDrillSession})
		return
	}

	if h.ttsService == nil {
		respondJSON(w, http.StatusServiceUnavailable, MessageResponse{Message: drill.MsgSpeechUnavailable})
		return
	}

	filename, err := h.ttsService.GenerateAudioFile(r.Context(), word)
	if err != nil {
		log.Printf("Warning: failed to generate audio for current word: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, MessageResponse{Message: drill.MsgSpeechUnavailable})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, h.ttsService.AudioPath(filename))
}

// Effect serves the correct or wrong feedback clip
func (h *DrillHandler) Effect(w http.ResponseWriter, r *http.Request) {
	var kind drill.Effect
	switch r.PathValue("kind") {
	case "correct":
		kind = drill.EffectCorrect
	case "wrong":
		kind = drill.EffectWrong
	default:
		http.NotFound(w, r)
		return
	}

	if h.effects == nil {
		http.NotFound(w, r)
		return
	}
	if err := h.effects.Ensure(r.Context()); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Sound effect unavailable", "Error preparing sound effects", err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, h.effects.Path(kind))
}

// Report emails the session summary to the configured address
func (h *DrillHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h.emailService == nil || !h.emailService.IsEnabled() || h.reportTo == "" {
		respondJSON(w, http.StatusServiceUnavailable, MessageResponse{Message: "未設定報告信箱"})
		return
	}

	sessionID := GetDrillSessionID(r.Context())
	list, err := h.drillService.List(sessionID)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, MessageResponse{Message: ErrNoDrillSession})
		return
	}

	var snap drill.Snapshot
	if err := h.drillService.With(sessionID, func(s *drill.Session) error {
		snap = s.Snapshot()
		return nil
	}); err != nil {
		respondJSON(w, http.StatusUnauthorized, MessageResponse{Message: ErrNoDrillSession})
		return
	}

	if err := h.emailService.SendSessionReport(r.Context(), h.reportTo, list.Name, snap); err != nil {
		log.Printf("Error sending session report: %v", err)
		respondJSON(w, http.StatusBadGateway, MessageResponse{Message: "報告寄送失敗"})
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "📧 報告已寄出"})
}

// EndDrill discards the session and clears the cookie
func (h *DrillHandler) EndDrill(w http.ResponseWriter, r *http.Request) {
	h.drillService.End(GetDrillSessionID(r.Context()))
	http.SetCookie(w, security.CreateDeleteCookie(r, security.DrillCookieName))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
