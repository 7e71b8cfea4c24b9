package analysis

import (
	"path"
	"strings"

	"github.com/src-d/enry/v2"
)

// LanguageOther groups records whose language cannot be detected.
const LanguageOther = "Other"

// detectLanguage guesses the source language of a covered file from its
// name. gcov may record Windows paths, so both separators are honoured.
func detectLanguage(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))

	lang, _ := enry.GetLanguageByExtension(base)
	if lang == "" {
		lang, _ = enry.GetLanguageByFilename(base)
	}

	if lang == "" {
		return LanguageOther
	}

	return lang
}
