package handlers

import (
	"time"

	"tingxie/internal/drill"
	"tingxie/internal/models"
)

type IndexViewData struct {
	Title       string
	Lists       []models.ListSummary
	DefaultList string
	HasSession  bool
	Error       string
}

type DrillViewData struct {
	Title        string
	ListName     string
	ItemNumber   int
	Total        int
	Mode         string
	ModeLabel    string
	AccuracyText string
	Correct      int
	Wrong        int
	WrongQueue   []int
	History      []HistoryEntryView
	CSRFToken    string
	ReportEmail  bool
}

// DiffCellView is one position of the answer comparison, with the CSS class
// the page uses to colour it
type DiffCellView struct {
	Target    string `json:"target"`
	Submitted string `json:"submitted"`
	Kind      string `json:"kind"`
	Class     string `json:"class"`
}

type HistoryEntryView struct {
	Mode           string `json:"mode"`
	QuestionNumber int    `json:"question"`
	Word           string `json:"word"`
	Submitted      string `json:"submitted"`
	Correct        bool   `json:"correct"`
	Time           string `json:"time"`
}

type SubmitResponse struct {
	Verdict   string         `json:"verdict"`
	Correct   bool           `json:"correct"`
	Word      string         `json:"word"`
	Submitted string         `json:"submitted"`
	Message   string         `json:"message"`
	Diff      []DiffCellView `json:"diff,omitempty"` // wrong answers only
	Mode      string         `json:"mode"`
	Accuracy  string         `json:"accuracy"`
}

type AdvanceResponse struct {
	Transition string `json:"transition"`
	Message    string `json:"message,omitempty"`
	Item       int    `json:"item"`
	Total      int    `json:"total"`
	Mode       string `json:"mode"`
	Pending    int    `json:"pending"`
}

type ItemStatsView struct {
	Number  int    `json:"number"`
	Word    string `json:"word"`
	Correct int    `json:"correct"`
	Wrong   int    `json:"wrong"`
}

type StatsResponse struct {
	List     string             `json:"list"`
	Mode     string             `json:"mode"`
	Item     int                `json:"item"`
	Total    int                `json:"total"`
	Correct  int                `json:"correct"`
	Wrong    int                `json:"wrong"`
	Accuracy string             `json:"accuracy"`
	Pending  []int              `json:"pending"`
	Items    []ItemStatsView    `json:"items"`
	History  []HistoryEntryView `json:"history"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func modeLabel(m drill.Mode) string {
	if m == drill.ModeReview {
		return "複習"
	}
	return "一般"
}

func diffClass(k drill.DiffKind) string {
	switch k {
	case drill.DiffMatch:
		return "diff-match"
	case drill.DiffTargetOnly:
		return "diff-missing"
	case drill.DiffExtra:
		return "diff-extra"
	default:
		return "diff-wrong"
	}
}

func newDiffViews(cells []drill.DiffCell) []DiffCellView {
	views := make([]DiffCellView, len(cells))
	for i, c := range cells {
		views[i] = DiffCellView{
			Target:    c.Target,
			Submitted: c.Submitted,
			Kind:      c.Kind.String(),
			Class:     diffClass(c.Kind),
		}
	}
	return views
}

func newHistoryViews(records []drill.AttemptRecord) []HistoryEntryView {
	views := make([]HistoryEntryView, len(records))
	for i, r := range records {
		views[i] = HistoryEntryView{
			Mode:           modeLabel(r.Mode),
			QuestionNumber: r.QuestionNumber(),
			Word:           r.Word,
			Submitted:      r.Submitted,
			Correct:        r.Verdict == drill.Correct,
			Time:           r.At.Format(time.DateTime),
		}
	}
	return views
}

func newStatsResponse(listName string, snap drill.Snapshot) StatsResponse {
	items := make([]ItemStatsView, len(snap.Words))
	for i, w := range snap.Words {
		items[i] = ItemStatsView{
			Number:  i + 1,
			Word:    w,
			Correct: snap.Stats[i].Correct,
			Wrong:   snap.Stats[i].Wrong,
		}
	}

	pending := make([]int, len(snap.WrongQueue))
	for i, idx := range snap.WrongQueue {
		pending[i] = idx + 1
	}

	return StatsResponse{
		List:     listName,
		Mode:     snap.Mode.String(),
		Item:     snap.CurrentItem + 1,
		Total:    snap.Total,
		Correct:  snap.Correct,
		Wrong:    snap.Wrong,
		Accuracy: snap.AccuracyText,
		Pending:  pending,
		Items:    items,
		History:  newHistoryViews(snap.Attempts),
	}
}
