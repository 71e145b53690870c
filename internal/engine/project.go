package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/open-courseware/question-engine/internal/models"
)

// StaticURLExpander rewrites a repository-relative asset URL ("/static/...")
// to an absolute, deployment-specific URL. Supplied by the host platform.
type StaticURLExpander func(url string) string

// Engine projects question documents into student views and runs the
// submission state machine. It is stateless and safe for concurrent use.
type Engine struct {
	expandURL StaticURLExpander
}

type Option func(*Engine)

// WithStaticURLExpander installs the host platform's asset URL rewriter.
func WithStaticURLExpander(expand StaticURLExpander) Option {
	return func(e *Engine) { e.expandURL = expand }
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Project builds the student-safe view of a question plus the current answer
// state. It never includes correct-answer flags; feedback comments appear
// only once an answer exists, and the canonical string answer is revealed
// only when attempts are exhausted. Projection is read-only and idempotent.
func (e *Engine) Project(doc *models.QuestionDocument, answer models.StudentAnswer, attempts int) (*models.StudentViewState, error) {
	score, err := ComputeScore(doc, answer)
	if err != nil {
		return nil, err
	}

	view := models.QuestionView{
		Type:          doc.Type,
		Question:      e.expandPromptLinks(doc.Question),
		StudentAnswer: answer,
	}

	switch doc.Type {
	case models.TypeStringResponse:
		projectString(&view, doc, answer, attempts)
	case models.TypeOptionResponse:
		projectOption(&view, doc.Option, answer)
	case models.TypeChoiceResponse:
		projectChoice(&view, doc.Choice, answer, score)
	}

	hints := doc.Hints
	if hints == nil {
		hints = []models.Hint{}
	}

	return &models.StudentViewState{
		MaxAttempts:     doc.MaxAttempts,
		CurrentScore:    score.Earned,
		TotalPossible:   score.Possible,
		QuestionData:    view,
		Hints:           hints,
		StudentAttempts: attempts,
		Correct:         score.Correct,
	}, nil
}

func projectString(view *models.QuestionView, doc *models.QuestionDocument, answer models.StudentAnswer, attempts int) {
	payload := doc.String

	if answer.Response != nil && *answer.Response != "" {
		comment := ""
		lowered := strings.ToLower(*answer.Response)
		for text, feedback := range payload.Comments {
			if strings.ToLower(text) == lowered {
				comment = feedback
				break
			}
		}
		view.Comment = &comment
	}

	// Reveal the canonical answer once the student is out of attempts.
	if doc.MaxAttempts > 0 && attempts >= doc.MaxAttempts && len(payload.Answers) > 0 {
		view.Answer = &payload.Answers[0]
	}
}

func projectOption(view *models.QuestionView, payload *models.OptionResponse, answer models.StudentAnswer) {
	view.Display = payload.Display
	view.Options = make([]models.ItemView, len(payload.Options))
	for i, opt := range payload.Options {
		checked := answer.Index != nil && *answer.Index == i
		item := models.ItemView{Content: opt.Content, Checked: checked}
		if checked {
			item.Comment = opt.Comment
		}
		view.Options[i] = item
	}
}

func projectChoice(view *models.QuestionView, payload *models.ChoiceResponse, answer models.StudentAnswer, score Score) {
	hasAnswer := answer.Selected != nil
	selected := make(map[int]bool, len(answer.Selected))
	for _, i := range answer.Selected {
		selected[i] = true
	}

	view.Choices = make([]models.ItemView, len(payload.Choices))
	for i, choice := range payload.Choices {
		item := models.ItemView{Content: choice.Content}
		if hasAnswer {
			item.Checked = selected[i]
			if selected[i] {
				item.Comment = choice.SelectedComment
			} else {
				item.Comment = choice.UnselectedComment
			}
		}
		view.Choices[i] = item
	}

	comment := ""
	if hasAnswer {
		comment = groupComment(payload, answer.Selected, score)
	}
	view.Comment = &comment
}

// groupComment resolves the pooled feedback for a choice combination. Two
// keying schemes coexist in imported content: sorted space-joined selected
// indices ("1 2") and the literal outcome tags "correct"/"incorrect". The
// index key is tried first, the outcome key is the fallback.
func groupComment(payload *models.ChoiceResponse, selectedIndices []int, score Score) string {
	indices := append([]int(nil), selectedIndices...)
	sort.Ints(indices)
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = strconv.Itoa(n)
	}
	if comment, ok := payload.Comments[strings.Join(parts, " ")]; ok {
		return comment
	}

	outcome := "incorrect"
	if score.Correct != nil && *score.Correct {
		outcome = "correct"
	}
	return payload.Comments[outcome]
}

// expandPromptLinks rewrites /static/-prefixed href, src and poster
// attributes inside the HTML prompt through the configured expander. Other
// links pass through unchanged, as does the prompt when no expander is set.
func (e *Engine) expandPromptLinks(prompt string) string {
	if e.expandURL == nil || !strings.Contains(prompt, "/static") {
		return prompt
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(prompt))
	if err != nil {
		return prompt
	}
	for _, attr := range []string{"href", "src", "poster"} {
		doc.Find("[" + attr + "]").Each(func(_ int, sel *goquery.Selection) {
			if value, ok := sel.Attr(attr); ok && strings.HasPrefix(value, "/static") {
				sel.SetAttr(attr, e.expandURL(value))
			}
		})
	}

	rewritten, err := doc.Find("body").Html()
	if err != nil {
		return prompt
	}
	return rewritten
}
