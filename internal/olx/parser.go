// Package olx parses OLX question definitions into normalized
// QuestionDocument values. The dialect is mostly compatible with the Open
// edX problem-component markup; unsupported elements are ignored.
package olx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/open-courseware/question-engine/internal/models"
)

// MalformedDocumentError is returned when an OLX definition cannot be turned
// into a usable question. It is an authoring-time failure and is never shown
// to students.
type MalformedDocumentError struct {
	Reason string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed question document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed question document: %s", e.Reason)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

func malformed(reason string, err error) *MalformedDocumentError {
	return &MalformedDocumentError{Reason: reason, Err: err}
}

// Parse converts an OLX fragment into a QuestionDocument. The root element's
// tag name is not inspected; its children select the question type. When more
// than one response definition appears, the last one in document order wins.
// Comment nodes are skipped everywhere.
func Parse(raw []byte) (*models.QuestionDocument, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))

	root, err := nextStartElement(dec)
	if err != nil {
		return nil, malformed("invalid XML", err)
	}
	if root == nil {
		return nil, malformed("empty document", nil)
	}

	doc := &models.QuestionDocument{
		DisplayName: "Question",
		Weight:      1,
		Hints:       []models.Hint{},
	}
	if err := parseRootAttrs(doc, root.Attr); err != nil {
		return nil, err
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed("invalid XML", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "demandhint":
			var dh demandHint
			if err := dec.DecodeElement(&dh, &se); err != nil {
				return nil, malformed("invalid demandhint", err)
			}
			for _, h := range dh.Hints {
				doc.Hints = append(doc.Hints, models.Hint{Content: decodeText(h)})
			}
		case "stringresponse":
			var sr stringResponse
			if err := dec.DecodeElement(&sr, &se); err != nil {
				return nil, malformed("invalid stringresponse", err)
			}
			doc.Type = models.TypeStringResponse
			doc.Question = decodeText(sr.Label)
			doc.String = sr.toModel()
			doc.Option, doc.Choice = nil, nil
		case "choiceresponse":
			var cr choiceResponse
			if err := dec.DecodeElement(&cr, &se); err != nil {
				return nil, malformed("invalid choiceresponse", err)
			}
			doc.Type = models.TypeChoiceResponse
			doc.Question = decodeText(cr.Label)
			doc.Choice = cr.toModel()
			doc.String, doc.Option = nil, nil
		case "optionresponse", "multiplechoiceresponse":
			var or optionResponse
			if err := dec.DecodeElement(&or, &se); err != nil {
				return nil, malformed("invalid "+se.Name.Local, err)
			}
			doc.Type = models.TypeOptionResponse
			doc.Question = decodeText(or.Label)
			doc.Option = or.toModel(se.Name.Local)
			doc.String, doc.Choice = nil, nil
		default:
			if err := dec.Skip(); err != nil {
				return nil, malformed("invalid XML", err)
			}
		}
	}

	if doc.Type == "" {
		return nil, malformed("no response definition found", nil)
	}
	return doc, nil
}

func parseRootAttrs(doc *models.QuestionDocument, attrs []xml.Attr) error {
	for _, a := range attrs {
		switch a.Name.Local {
		case "max_attempts":
			n, err := strconv.Atoi(a.Value)
			if err != nil {
				return malformed("max_attempts must be an integer", err)
			}
			doc.MaxAttempts = n
		case "weight":
			w, err := strconv.ParseFloat(a.Value, 64)
			if err != nil {
				return malformed("weight must be a number", err)
			}
			doc.Weight = w
		case "display_name":
			doc.DisplayName = a.Value
		}
	}
	return nil
}

// ===== OLX ELEMENT SHAPES =====

type demandHint struct {
	Hints []string `xml:"hint"`
}

type stringResponse struct {
	Answer       string             `xml:"answer,attr"`
	Label        string             `xml:"label"`
	CorrectHints []string           `xml:"correcthint"`
	Additional   []additionalAnswer `xml:"additional_answer"`
	EqualHints   []stringEqualHint  `xml:"stringequalhint"`
}

type additionalAnswer struct {
	Answer       string   `xml:"answer,attr"`
	CorrectHints []string `xml:"correcthint"`
}

type stringEqualHint struct {
	Answer string `xml:"answer,attr"`
	Text   string `xml:",chardata"`
}

func (sr stringResponse) toModel() *models.StringResponse {
	out := &models.StringResponse{
		Answers:  []string{},
		Comments: map[string]string{},
	}

	if sr.Answer != "" {
		out.Answers = append(out.Answers, sr.Answer)
		for _, h := range sr.CorrectHints {
			if text := decodeText(h); text != "" {
				out.Comments[sr.Answer] = text
			}
		}
	}
	for _, extra := range sr.Additional {
		if extra.Answer == "" {
			continue
		}
		out.Answers = append(out.Answers, extra.Answer)
		for _, h := range extra.CorrectHints {
			if text := decodeText(h); text != "" {
				out.Comments[extra.Answer] = text
			}
		}
	}
	// stringequalhint entries override any duplicate answer feedback
	for _, h := range sr.EqualHints {
		text := decodeText(h.Text)
		if h.Answer != "" && text != "" {
			out.Comments[h.Answer] = text
		}
	}
	return out
}

type choiceResponse struct {
	Label string        `xml:"label"`
	Group checkboxGroup `xml:"checkboxgroup"`
}

type checkboxGroup struct {
	Choices       []choiceElem   `xml:"choice"`
	CompoundHints []compoundHint `xml:"compoundhint"`
}

type choiceElem struct {
	Correct string           `xml:"correct,attr"`
	Text    string           `xml:",chardata"`
	Hints   []choiceHintElem `xml:"choicehint"`
}

type choiceHintElem struct {
	Selected string `xml:"selected,attr"`
	Text     string `xml:",chardata"`
}

type compoundHint struct {
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

func (cr choiceResponse) toModel() *models.ChoiceResponse {
	out := &models.ChoiceResponse{
		Choices:  []models.Choice{},
		Comments: map[string]string{},
	}

	for _, c := range cr.Group.Choices {
		choice := models.Choice{
			Content: decodeText(c.Text),
			Correct: c.Correct == "true",
		}
		for _, h := range c.Hints {
			if h.Selected == "true" {
				choice.SelectedComment = decodeText(h.Text)
			} else {
				choice.UnselectedComment = decodeText(h.Text)
			}
		}
		out.Choices = append(out.Choices, choice)
	}

	for _, h := range cr.Group.CompoundHints {
		key := compoundHintKey(h.Value)
		if key == "" {
			continue
		}
		out.Comments[key] = decodeText(h.Text)
	}
	return out
}

// compoundHintKey normalizes a compoundhint value attribute into a comment
// group key. Letter lists ("B A") become the sorted index key ("0 1"); the
// literal outcome tags "correct" and "incorrect" are kept verbatim.
func compoundHintKey(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	if lowered == "correct" || lowered == "incorrect" {
		return lowered
	}

	letters := strings.Fields(strings.ToUpper(value))
	if len(letters) == 0 {
		return ""
	}
	sort.Strings(letters)
	indices := make([]string, 0, len(letters))
	for _, l := range letters {
		indices = append(indices, strconv.Itoa(int(l[0]-'A')))
	}
	return strings.Join(indices, " ")
}

type optionResponse struct {
	Label       string       `xml:"label"`
	OptionInput *optionGroup `xml:"optioninput"`
	ChoiceGroup *optionGroup `xml:"choicegroup"`
}

type optionGroup struct {
	Options []optionElem `xml:"option"`
	Choices []optionElem `xml:"choice"`
}

type optionElem struct {
	Correct     string   `xml:"correct,attr"`
	Text        string   `xml:",chardata"`
	OptionHints []string `xml:"optionhint"`
	ChoiceHints []string `xml:"choicehint"`
}

func (or optionResponse) toModel(tag string) *models.OptionResponse {
	display := models.DisplayDropdown
	if tag == "multiplechoiceresponse" {
		display = models.DisplayRadio
	}

	out := &models.OptionResponse{
		Options: []models.Option{},
		Display: display,
	}

	group := or.OptionInput
	if group == nil {
		group = or.ChoiceGroup
	}
	if group == nil {
		return out
	}

	elems := group.Options
	if len(elems) == 0 {
		elems = group.Choices
	}
	for _, e := range elems {
		opt := models.Option{
			Content: decodeText(e.Text),
			Correct: e.Correct == "true",
		}
		for _, h := range append(e.OptionHints, e.ChoiceHints...) {
			if text := decodeText(h); text != "" {
				opt.Comment = text
			}
		}
		out.Options = append(out.Options, opt)
	}
	return out
}

// nextStartElement advances the decoder to the first start element, skipping
// whitespace, comments and processing instructions. A nil element with a nil
// error means the document was empty.
func nextStartElement(dec *xml.Decoder) (*xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return &se, nil
		}
	}
}

// decodeText unescapes residual HTML entities and trims surrounding
// whitespace. The XML decoder has already removed one level of escaping, so
// a label authored as &lt;p&gt;hi&lt;/p&gt; comes out as literal <p>hi</p>.
func decodeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
