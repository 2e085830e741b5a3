package trip

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FACorreiaa/plangenie/internal/app/models"
	"github.com/FACorreiaa/plangenie/internal/pkg/jsonutil"
	"github.com/FACorreiaa/plangenie/internal/pkg/llm"
)

const dateLayout = "2006-01-02"

// Normalizer turns free-text travel messages into a canonical TripRequest.
// Extraction is two-tier: an LLM structured extraction first, then a
// deterministic regex fallback when the LLM is unavailable or returns
// unusable output. Absent information is represented as empty fields, not
// as an error.
type Normalizer struct {
	ai     llm.Caller
	logger *zap.Logger
	titler cases.Caser
}

func NewNormalizer(ai llm.Caller, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		ai:     ai,
		logger: logger,
		titler: cases.Title(language.English),
	}
}

// Normalize extracts a TripRequest from message relative to today. Date
// fields come back in YYYY-MM-DD form with year ambiguity resolved; a
// return date is always ordered after the departure date.
func (n *Normalizer) Normalize(ctx context.Context, message string, today time.Time) models.TripRequest {
	req, ok := n.llmExtract(ctx, message, today)
	if !ok {
		req = n.fallbackExtract(message, today)
	}

	// Structured context lines from edit continuations win over anything
	// the extractors guessed.
	if origin := contextLine(message, contextOriginRe); origin != "" {
		req.Origin = n.cleanCity(origin)
	}
	if dest := contextLine(message, contextDestinationRe); dest != "" {
		req.Destination = n.cleanCity(dest)
	}

	if req.AdultCount < 1 {
		req.AdultCount = 1
	}
	n.finalizeDates(&req, today)
	return req
}

func extractionPrompt(message string, today time.Time) string {
	return fmt.Sprintf(`Extract travel details from the user message below.
Today's date is %s.
Respond ONLY with a JSON object with these keys (use "" or null when unknown):
{"origin": "", "destination": "", "depart_date": "YYYY-MM-DD", "return_date": "YYYY-MM-DD", "adult_count": 1, "child_count": 0, "budget_tier": "low|medium|high", "preferences": {"trip_length": null}}

User message: %q`, today.Format(dateLayout), message)
}

func (n *Normalizer) llmExtract(ctx context.Context, message string, today time.Time) (models.TripRequest, bool) {
	response, err := n.ai.Generate(ctx, llm.RoleOrchestrator, extractionPrompt(message, today))
	if err != nil {
		n.logger.Warn("Structured extraction call failed, using regex fallback", zap.Error(err))
		return models.TripRequest{}, false
	}

	var rec struct {
		Origin      string         `json:"origin"`
		Destination string         `json:"destination"`
		DepartDate  string         `json:"depart_date"`
		ReturnDate  string         `json:"return_date"`
		AdultCount  any            `json:"adult_count"`
		ChildCount  any            `json:"child_count"`
		BudgetTier  string         `json:"budget_tier"`
		Preferences map[string]any `json:"preferences"`
	}
	if !jsonutil.DecodeObject(response, &rec) {
		n.logger.Warn("Structured extraction returned undecodable output, using regex fallback")
		return models.TripRequest{}, false
	}

	req := models.TripRequest{
		Origin:      n.cleanCity(rec.Origin),
		Destination: n.cleanCity(rec.Destination),
		DepartDate:  n.normalizeDateString(rec.DepartDate, today),
		ReturnDate:  n.normalizeDateString(rec.ReturnDate, today),
		AdultCount:  coerceInt(rec.AdultCount),
		ChildCount:  coerceInt(rec.ChildCount),
		Preferences: rec.Preferences,
	}
	switch strings.ToLower(strings.TrimSpace(rec.BudgetTier)) {
	case string(models.BudgetLow):
		req.BudgetTier = models.BudgetLow
	case string(models.BudgetMedium):
		req.BudgetTier = models.BudgetMedium
	case string(models.BudgetHigh):
		req.BudgetTier = models.BudgetHigh
	}
	return req, true
}

func coerceInt(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case int:
		return x
	case string:
		var i int
		if _, err := fmt.Sscanf(strings.TrimSpace(x), "%d", &i); err == nil {
			return i
		}
	}
	return 0
}

// fallbackExtract is the deterministic regex tier.
func (n *Normalizer) fallbackExtract(message string, today time.Time) models.TripRequest {
	req := models.TripRequest{AdultCount: 1}

	dates := n.ExtractDates(message, today)
	if len(dates) > 0 {
		req.DepartDate = dates[0]
	}
	if len(dates) > 1 {
		req.ReturnDate = dates[1]
	}

	if m := originFromRe.FindStringSubmatch(message); m != nil {
		req.Origin = n.cleanCity(m[1])
	} else if m := originInRe.FindStringSubmatch(message); m != nil {
		req.Origin = n.cleanCity(m[1])
	}
	if m := destinationVerbRe.FindStringSubmatch(message); m != nil {
		req.Destination = n.cleanCity(m[1])
	} else if m := destinationToRe.FindStringSubmatch(message); m != nil {
		req.Destination = n.cleanCity(m[1])
	}

	return req
}

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dayMonthRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+([a-zA-Z]+)\b`)
	monthDayRe  = regexp.MustCompile(`(?i)\b([a-zA-Z]+)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	returnDayRe = regexp.MustCompile(`(?i)\b(?:return(?:\s+back)?|come\s+back)\s+(?:by|on)\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\b`)

	originFromRe  = regexp.MustCompile(`(?i)\bfrom\s+([a-zA-Z][a-zA-Z ]*?)(?:\s+(?:to|on|in|for|by|and|return)\b|\s+\d|[,.!?]|$)`)
	originInRe    = regexp.MustCompile(`(?i)\b(?:i\s+am|i'm|currently)\s+in\s+([a-zA-Z][a-zA-Z ]*?)(?:\s+(?:to|on|and|by|return)\b|\s+\d|[,.!?]|$)`)
	// Verb phrases are tried before the bare "to X" form so that
	// "I want to go to Paris" captures Paris, not "go to Paris".
	destinationVerbRe = regexp.MustCompile(`(?i)\b(?:head(?:ing)?\s+to|go(?:ing)?\s+to|travel(?:ing|ling)?\s+to|trip\s+to|fly(?:ing)?\s+to|visit(?:ing)?)\s+([a-zA-Z][a-zA-Z ]*?)(?:\s+(?:on|and|by|from|return|in|for)\b|\s+\d|[,.!?]|$)`)
	destinationToRe   = regexp.MustCompile(`(?i)\bto\s+([a-zA-Z][a-zA-Z ]*?)(?:\s+(?:on|and|by|from|return|in|for)\b|\s+\d|[,.!?]|$)`)

	contextOriginRe      = regexp.MustCompile(`(?im)^\s*origin:\s*([^,\n]+)`)
	contextDestinationRe = regexp.MustCompile(`(?im)^\s*destination:\s*([^,\n]+)`)
)

// monthTokens maps month names, common abbreviations and frequently seen
// typos to month numbers.
var monthTokens = map[string]time.Month{
	"january": 1, "jan": 1, "janurary": 1,
	"february": 2, "feb": 2, "feburary": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may":  5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9, "septmeber": 9, "septembr": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12, "decemeber": 12, "decemebr": 12, "decembe": 12, "decembr": 12,
}

var fullMonthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

func monthFromToken(tok string) (time.Month, bool) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if m, ok := monthTokens[tok]; ok {
		return m, true
	}
	if len(tok) >= 3 {
		for i, name := range fullMonthNames {
			if strings.HasPrefix(name, tok) {
				return time.Month(i + 1), true
			}
		}
	}
	return 0, false
}

type foundDate struct {
	pos          int
	date         time.Time
	explicitYear bool
}

// ExtractDates finds every date mentioned in message, in order of
// appearance, resolved to YYYY-MM-DD strings. Dates with no year use the
// current year unless already past relative to today, in which case they
// roll to the next year.
func (n *Normalizer) ExtractDates(message string, today time.Time) []string {
	today = truncateDay(today)
	var found []foundDate

	for _, m := range isoDateRe.FindAllStringSubmatchIndex(message, -1) {
		raw := message[m[0]:m[1]]
		if t, err := time.Parse(dateLayout, raw); err == nil {
			found = append(found, foundDate{pos: m[0], date: t, explicitYear: true})
		}
	}

	for _, m := range dayMonthRe.FindAllStringSubmatchIndex(message, -1) {
		day := atoi(message[m[2]:m[3]])
		month, ok := monthFromToken(message[m[4]:m[5]])
		if !ok || !validDay(day, month) {
			continue
		}
		found = append(found, foundDate{pos: m[0], date: resolveYear(day, month, today)})
	}

	for _, m := range monthDayRe.FindAllStringSubmatchIndex(message, -1) {
		month, ok := monthFromToken(message[m[2]:m[3]])
		day := atoi(message[m[4]:m[5]])
		if !ok || !validDay(day, month) {
			continue
		}
		found = append(found, foundDate{pos: m[0], date: resolveYear(day, month, today)})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	found = dedupeDates(found)

	// A bare "return by N" day inherits the first date's month, rolling to
	// the next month when N precedes the first day-of-month.
	if len(found) > 0 {
		if m := returnDayRe.FindStringSubmatch(message); m != nil {
			day := atoi(m[1])
			first := found[0].date
			ret := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
			if day < first.Day() {
				ret = ret.AddDate(0, 1, 0)
			}
			if validDay(day, ret.Month()) {
				found = dedupeDates(append(found, foundDate{pos: len(message), date: ret}))
			}
		}
	}

	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, f.date.Format(dateLayout))
	}
	return out
}

func dedupeDates(found []foundDate) []foundDate {
	seen := make(map[string]bool, len(found))
	out := found[:0]
	for _, f := range found {
		key := f.date.Format(dateLayout)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// resolveYear applies the year-disambiguation rule: the date in the
// current year when it has not yet passed today, otherwise next year.
func resolveYear(day int, month time.Month, today time.Time) time.Time {
	d := time.Date(today.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d
}

// normalizeDateString canonicalizes a single loosely-formatted date.
// Already-canonical YYYY-MM-DD strings come back unchanged.
func (n *Normalizer) normalizeDateString(s string, today time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return ""
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.Format(dateLayout)
	}
	if dates := n.ExtractDates(s, today); len(dates) > 0 {
		return dates[0]
	}
	return ""
}

// finalizeDates enforces return-after-departure ordering. A return date
// preceding departure is re-anchored to the departure year and advanced a
// further year when still not after it; a return date stranded in the past
// advances year by year until it reaches today.
func (n *Normalizer) finalizeDates(req *models.TripRequest, today time.Time) {
	today = truncateDay(today)
	depart, derr := time.Parse(dateLayout, req.DepartDate)
	ret, rerr := time.Parse(dateLayout, req.ReturnDate)
	if derr != nil {
		req.DepartDate = ""
	}
	if rerr != nil {
		req.ReturnDate = ""
		return
	}

	if derr == nil && ret.Before(depart) {
		ret = time.Date(depart.Year(), ret.Month(), ret.Day(), 0, 0, 0, 0, time.UTC)
		if !ret.After(depart) {
			ret = ret.AddDate(1, 0, 0)
		}
	}
	for ret.Before(today) {
		ret = ret.AddDate(1, 0, 0)
	}
	req.ReturnDate = ret.Format(dateLayout)
}

// AnchorYearToTrip reinterprets a date's year to match the active trip's
// departure year, so "block the 22nd" targets the trip rather than today.
func AnchorYearToTrip(dateStr, departDate string) string {
	d, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return dateStr
	}
	depart, err := time.Parse(dateLayout, departDate)
	if err != nil {
		return dateStr
	}
	return time.Date(depart.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// cityAliases expands common shorthand before title-casing.
var cityAliases = map[string]string{
	"nyc":    "New York",
	"ny":     "New York",
	"la":     "Los Angeles",
	"sf":     "San Francisco",
	"dc":     "Washington",
	"vegas":  "Las Vegas",
	"philly": "Philadelphia",
}

func (n *Normalizer) cleanCity(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return ""
	}
	if alias, ok := cityAliases[strings.ToLower(s)]; ok {
		return alias
	}
	return n.titler.String(strings.ToLower(s))
}

func contextLine(message string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validDay(day int, month time.Month) bool {
	return day >= 1 && day <= 31 && month >= 1 && month <= 12
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
