package textutil

import "strings"

// marker добавляется к обрезанному тексту, если обрыв не пришёлся
// на границу предложения.
const marker = "..."

// Shorten сокращает text до limit символов (рун) для чатовых клиентов.
// Пустой или короткий текст возвращается как есть (после trim).
// Точка обрыва ищется в порядке приоритета:
//  1. последняя точка в окне limit — срез сразу после неё, без маркера;
//  2. последний перенос строки — срез до него, с маркером;
//  3. последний пробел — срез до него, с маркером;
//  4. жёсткий срез по границе окна, с маркером.
//
// Для веток с маркером окно уменьшено на len(marker), чтобы результат
// никогда не превышал limit: повторное применение ничего не меняет.
func Shorten(text string, limit int) string {
	text = strings.TrimSpace(text)
	if text == "" || limit <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	window := string(runes[:limit])
	if i := strings.LastIndexByte(window, '.'); i >= 0 {
		return strings.TrimSpace(window[:i+1])
	}

	// Маркер не помещается — жёсткий срез по границе окна.
	if limit <= len(marker) {
		return strings.TrimSpace(string(runes[:limit]))
	}

	window = string(runes[:limit-len(marker)])
	if i := strings.LastIndexByte(window, '\n'); i >= 0 {
		return strings.TrimSpace(window[:i]) + marker
	}
	if i := strings.LastIndexByte(window, ' '); i >= 0 {
		return strings.TrimSpace(window[:i]) + marker
	}
	return strings.TrimSpace(window) + marker
}
