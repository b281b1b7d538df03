package lexical

// Resources holds the stopword sets and domain-term list consulted by
// tokenization and bonus scoring. It is resolved once at construction
// time and treated as read-only afterwards.
type Resources struct {
	StopwordsHE       map[string]struct{}
	StopwordsEN       map[string]struct{}
	LegalStopwords    map[string]struct{}
	ImportantConcepts map[string]struct{}
}

// IsStopword reports whether the token appears in any stopword set.
func (r Resources) IsStopword(tok string) bool {
	if _, ok := r.StopwordsHE[tok]; ok {
		return true
	}
	if _, ok := r.StopwordsEN[tok]; ok {
		return true
	}
	_, ok := r.LegalStopwords[tok]
	return ok
}

// IsImportantConcept reports whether the token is a curated domain term.
func (r Resources) IsImportantConcept(tok string) bool {
	_, ok := r.ImportantConcepts[tok]
	return ok
}

// Set builds a lookup set from a term list.
func Set(terms ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		m[t] = struct{}{}
	}
	return m
}

// Terms returns the set's members as a slice, order unspecified.
func Terms(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

// DefaultResources returns the built-in stopword and domain-term lists.
// Deployments extend these through the config store.
func DefaultResources() Resources {
	return Resources{
		StopwordsEN: Set(
			"the", "a", "an", "and", "or", "but", "if", "then", "else",
			"of", "in", "on", "at", "to", "for", "with", "by", "from",
			"as", "is", "are", "was", "were", "be", "been", "being",
			"this", "that", "these", "those", "it", "its", "he", "she",
			"they", "them", "his", "her", "their", "we", "our", "you",
			"your", "not", "no", "nor", "so", "too", "very", "can",
			"will", "shall", "may", "must", "do", "does", "did", "have",
			"has", "had", "any", "all", "each", "such", "other", "than",
			"into", "upon", "about", "between", "under", "above",
		),
		StopwordsHE: Set(
			"של", "את", "על", "עם", "אל", "או", "גם", "כי", "אם",
			"אבל", "רק", "כל", "לא", "כן", "זה", "זו", "זאת", "הוא",
			"היא", "הם", "הן", "אני", "אתה", "אנחנו", "יש", "אין",
			"היה", "היתה", "יהיה", "להיות", "אשר", "כאשר", "לפי",
			"בין", "עד", "מן", "כמו", "לגבי", "ידי", "כדי", "אחרי",
			"לפני", "בתוך", "ללא", "וכן", "לרבות",
		),
		LegalStopwords: Set(
			"סעיף", "סעיפים", "פרק", "תקנה", "תקנות", "חוק", "להלן",
			"לעיל", "כאמור", "בהתאם", "לעניין", "הוראות", "הוראה",
			"section", "sections", "clause", "hereof", "herein",
			"thereof", "whereas", "hereby", "pursuant", "aforesaid",
		),
		ImportantConcepts: Set(
			"פיצויים", "פיטורים", "התפטרות", "שימוע", "הלנת", "שכר",
			"הודעה", "מוקדמת", "הבראה", "פנסיה", "גמל", "שעות", "נוספות",
			"חופשה", "מחלה", "הטרדה", "אפליה", "קיפוח",
			"severance", "dismissal", "resignation", "hearing",
			"compensation", "pension", "overtime", "harassment",
			"discrimination", "notice",
		),
	}
}
