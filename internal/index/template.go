package index

import "strings"

// DefaultTemplate renders a sub-tag into the reference sentence that gets embedded.
const DefaultTemplate = "이 문장은 '{subtag}' (키워드: {keyword})에 대한 한국 뉴스 기사 제목이다."

// Render substitutes {keyword} and {subtag} in template.
func Render(template, keyword, subtag string) string {
	return strings.NewReplacer("{keyword}", keyword, "{subtag}", subtag).Replace(template)
}
