package llm

import (
	"bytes"
	"embed"
	"fmt"
	"sync"
	"text/template"
)

//go:embed prompts/eval.txt
var promptFS embed.FS

var (
	loadOnce sync.Once
	loadErr  error
	evalTmpl *template.Template
)

// evalData holds template data for the grading instruction. The instruction
// text is fixed; only the feedback language varies.
type evalData struct {
	Language string
}

func loadTemplates() error {
	loadOnce.Do(func() {
		content, err := promptFS.ReadFile("prompts/eval.txt")
		if err != nil {
			loadErr = fmt.Errorf("read prompt file: %w", err)
			return
		}
		evalTmpl, loadErr = template.New("eval").Parse(string(content))
	})
	return loadErr
}

// evalInstruction renders the grading system instruction for the given
// feedback language.
func evalInstruction(language string) (string, error) {
	if err := loadTemplates(); err != nil {
		return "", err
	}
	if language == "" {
		language = "English"
	}
	var buf bytes.Buffer
	if err := evalTmpl.Execute(&buf, evalData{Language: language}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
