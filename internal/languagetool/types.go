package languagetool

// IssueMisspelling is the issue type of spelling matches.
const IssueMisspelling = "misspelling"

// Response is the body of /v2/check. Offsets and lengths are UTF-16 code
// units into the annotated source, markup included.
type Response struct {
	Language Language `json:"language"`
	Matches  []Match  `json:"matches"`
}

type Language struct {
	Name             string           `json:"name"`
	Code             string           `json:"code"`
	DetectedLanguage DetectedLanguage `json:"detectedLanguage"`
}

type DetectedLanguage struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

type Match struct {
	Message      string        `json:"message"`
	ShortMessage string        `json:"shortMessage"`
	Offset       int           `json:"offset"`
	Length       int           `json:"length"`
	Replacements []Replacement `json:"replacements"`
	Context      Context       `json:"context"`
	Sentence     string        `json:"sentence"`
	Rule         Rule          `json:"rule"`
}

type Replacement struct {
	Value string `json:"value"`
}

type Context struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

type Rule struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	IssueType   string   `json:"issueType"`
	Category    Category `json:"category"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Word returns the flagged text from the match context.
func (m Match) Word() string {
	units := []rune(m.Context.Text)
	start, end := -1, len(units)
	pos := 0
	for i, r := range units {
		if pos == m.Context.Offset && start < 0 {
			start = i
		}
		if pos == m.Context.Offset+m.Context.Length && start >= 0 {
			end = i
			break
		}
		pos++
		if r >= 0x10000 {
			pos++
		}
	}
	if start < 0 {
		return ""
	}
	return string(units[start:end])
}
