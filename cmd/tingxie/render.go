package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/width"

	"tingxie/internal/drill"
	"tingxie/internal/models"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// wideBlank stands in for a missing character across from a wide one
const wideBlank = "＿"

// historyLimit caps the attempts shown under :stats
const historyLimit = 10

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// displayWidth counts terminal columns, two for East Asian wide characters
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

func diffColor(kind drill.DiffKind) string {
	switch kind {
	case drill.DiffMatch:
		return ansiGreen
	case drill.DiffTargetOnly:
		return ansiYellow
	case drill.DiffExtra:
		return ansiBlue
	default:
		return ansiRed
	}
}

// cellText returns the two sides of a cell with the placeholder widened to
// match a wide character on the other side
func cellText(cell drill.DiffCell) (string, string) {
	target, submitted := cell.Target, cell.Submitted
	switch cell.Kind {
	case drill.DiffTargetOnly:
		if displayWidth(target) == 2 {
			submitted = wideBlank
		}
	case drill.DiffExtra:
		if displayWidth(submitted) == 2 {
			target = wideBlank
		}
	}
	return target, submitted
}

func pad(s string, columns int) string {
	if gap := columns - displayWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// renderDiff lays the target over the answer, one column per position
func renderDiff(cells []drill.DiffCell, colorize bool) []string {
	var top, bottom strings.Builder
	top.WriteString("  正確：")
	bottom.WriteString("  作答：")

	for i, cell := range cells {
		target, submitted := cellText(cell)
		columns := max(displayWidth(target), displayWidth(submitted))
		target, submitted = pad(target, columns), pad(submitted, columns)
		if colorize {
			color := diffColor(cell.Kind)
			target = color + target + ansiReset
			submitted = color + submitted + ansiReset
		}
		if i > 0 {
			top.WriteByte(' ')
			bottom.WriteByte(' ')
		}
		top.WriteString(target)
		bottom.WriteString(submitted)
	}
	return []string{top.String(), bottom.String()}
}

func modeLabel(m drill.Mode) string {
	if m == drill.ModeReview {
		return "複習"
	}
	return "一般"
}

func renderQuestionHeader(snap drill.Snapshot, colorize bool) string {
	line := fmt.Sprintf("題目 %d / %d  [%s]", snap.CurrentItem+1, snap.Total, modeLabel(snap.Mode))
	if snap.Mode == drill.ModeReview {
		line += fmt.Sprintf("  待複習 %d 題", len(snap.WrongQueue))
	}
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func renderVerdict(eval drill.Evaluation, colorize bool) []string {
	message := drill.VerdictMessage(eval)
	if colorize {
		color := ansiRed
		if eval.IsCorrect() {
			color = ansiGreen
		}
		message = color + message + ansiReset
	}

	lines := []string{message}
	if !eval.IsCorrect() && eval.Submitted != "" {
		lines = append(lines, renderDiff(eval.Diff, colorize)...)
	}
	return lines
}

func renderSummary(snap drill.Snapshot) string {
	return fmt.Sprintf("答對 %d · 答錯 %d · 正確率 %s%%", snap.Correct, snap.Wrong, snap.AccuracyText)
}

func renderStats(snap drill.Snapshot) string {
	rows := make([][]string, len(snap.Words))
	pending := make(map[int]bool, len(snap.WrongQueue))
	for _, idx := range snap.WrongQueue {
		pending[idx] = true
	}
	for i, word := range snap.Words {
		mark := ""
		if pending[i] {
			mark = "待複習"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			word,
			strconv.Itoa(snap.Stats[i].Correct),
			strconv.Itoa(snap.Stats[i].Wrong),
			mark,
		}
	}

	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"#", "詞語", "答對", "答錯", ""},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
	))
	b.WriteString("\n")
	b.WriteString(renderSummary(snap))

	if history := renderHistory(snap.Attempts); history != "" {
		b.WriteString("\n")
		b.WriteString(history)
	}
	return b.String()
}

func renderHistory(records []drill.AttemptRecord) string {
	if len(records) == 0 {
		return ""
	}
	if len(records) > historyLimit {
		records = records[:historyLimit]
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		result := "✓"
		if r.Verdict != drill.Correct {
			result = "✗"
		}
		rows[i] = []string{
			modeLabel(r.Mode),
			strconv.Itoa(r.QuestionNumber()),
			r.Word,
			r.Submitted,
			result,
			r.At.Format(time.TimeOnly),
		}
	}
	return renderTable(
		[]string{"模式", "題號", "詞語", "作答", "結果", "時間"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
}

func renderLists(lists []models.ListSummary, defaultList string) string {
	rows := make([][]string, len(lists))
	for i, l := range lists {
		mark := ""
		if l.Name == defaultList {
			mark = "✓"
		}
		rows[i] = []string{
			strconv.FormatInt(l.ID, 10),
			l.Name,
			l.Language,
			strconv.Itoa(l.WordCount),
			mark,
		}
	}
	return renderTable(
		[]string{"ID", "名稱", "語言", "詞語數", "預設"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
