package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"rental-insights/models"
	"rental-insights/utils"
)

const (
	notAvailable = "N/A"

	rentalMarker  = "Yearly"
	offPlanMarker = "Off-Plan"

	// minRepeatLen keeps collapseRepeats from folding doubled letters ("Hills").
	minRepeatLen = 4
)

var (
	listingDateRegexp = regexp.MustCompile(`on\s+(\d{1,2})(?:st|nd|rd|th)\s+of\s+([A-Za-z]+)\s+(\d{4})`)

	rentalLocationRegexp = regexp.MustCompile(`(?s)(?:sqft|FEES|Equipped Kitchen)(.*?)(?:Agent|Email|Call)`)
	saleLocationRegexp   = regexp.MustCompile(`(?s)(?:sqft|Area:.*?sqft)(.*?)(?:Property authenticity|Handover|Email|Call)`)

	yearlyBedBathRegexp = regexp.MustCompile(rentalMarker + `(\d)(\d)`)
	explicitBedsRegexp  = regexp.MustCompile(`(\d+)\s*BR`)
	explicitBathsRegexp = regexp.MustCompile(`(?i)(\d+)\s*Bath`)

	areaRegexp       = regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s*(?:sqft|sq\.?\s?ft)`)
	hyphenAreaRegexp = regexp.MustCompile(`(?i)(\d+(?:,\d{3})*)-sqft`)

	semiFurnishedRegexp = regexp.MustCompile(`semi[\s-]?furnished`)

	titlePrefixRegexp  = regexp.MustCompile(`(?i)^\d+\s*BR\s+(?:Apartment|Villa|Townhouse|Studio|Penthouse|House)\s+for\s+(?:Sale|Rent)\s+in\s+`)
	parentheticRegexp  = regexp.MustCompile(`\s*\([^)]*\)`)
	typeWordRegexp     = regexp.MustCompile(`(?i)\s+(?:Apartment|Villa|Studio|Penthouse|Townhouse)\s+`)
	forSaleRentRegexp  = regexp.MustCompile(`(?i)\s+for\s+(?:Sale|Rent)`)
	leadingInRegexp    = regexp.MustCompile(`(?i)^in\s+`)
	whitespaceRegexp   = regexp.MustCompile(`\s+`)
	buildingNameRegexp = regexp.MustCompile(`\bin\s+([^\d,]+)`)
)

// propertyVocabulary is scanned in order; compound words precede "house".
var propertyVocabulary = []models.PropertyType{
	models.PropertyApartment,
	models.PropertyVilla,
	models.PropertyStudio,
	models.PropertyPenthouse,
	models.PropertyTownhouse,
	models.PropertyHouse,
}

// locationOverrides win over the text scan when the location names them.
var locationOverrides = []models.PropertyType{models.PropertyVilla, models.PropertyTownhouse}

// cardText is the per-card state shared by all strategies.
type cardText struct {
	raw      string
	lower    string
	category models.ListingCategory
}

// strategy is one named way of resolving a field. Strategies for a field are
// tried in order and the first that reports ok wins.
type strategy[T any] struct {
	name string
	run  func(c *cardText) (T, bool)
}

func firstMatch[T any](c *cardText, strategies []strategy[T]) (T, string, bool) {
	for _, s := range strategies {
		if v, ok := s.run(c); ok {
			return v, s.name, true
		}
	}
	var zero T
	return zero, "", false
}

type bedBath struct {
	beds, baths int
}

// Extractor turns raw card text into a FieldSet. It never fails: fields it
// cannot resolve keep their sentinel values.
type Extractor struct {
	logger *utils.Logger
	city   string

	priceRegexp          *regexp.Regexp
	datedTitleRegexp     *regexp.Regexp
	leadingTitleRegexp   *regexp.Regexp
	rentalBedBathRegexp  *regexp.Regexp
	offPlanBedBathRegexp *regexp.Regexp

	titleStrategies    []strategy[string]
	bedBathStrategies  []strategy[bedBath]
	locationStrategies []strategy[string]
	areaStrategies     []strategy[float64]
}

// NewExtractor builds an Extractor for listings priced in currency (e.g. "AED")
// whose titles are suffixed with city.
func NewExtractor(logger *utils.Logger, currency, city string) *Extractor {
	cur := regexp.QuoteMeta(currency)
	// A price is either comma-grouped or a plain digit run.
	price := `(?:\d{1,3}(?:,\d{3})+|\d+)`

	e := &Extractor{
		logger:               logger,
		city:                 city,
		priceRegexp:          regexp.MustCompile(cur + `\s*(` + price + `)`),
		datedTitleRegexp:     regexp.MustCompile(`(?s)on\s+\d+(?:st|nd|rd|th)\s+of\s+[A-Za-z]+\s+\d{4}(.*?)` + cur),
		leadingTitleRegexp:   regexp.MustCompile(`(?m)^(.*?)(?:` + cur + `|` + offPlanMarker + `|on` + offPlanMarker + `)`),
		rentalBedBathRegexp:  regexp.MustCompile(cur + `\s*` + price + rentalMarker + `(\d)(\d)`),
		offPlanBedBathRegexp: regexp.MustCompile(`(?:` + offPlanMarker + `|on` + offPlanMarker + `).*?` + cur + `\s*` + price + `(\d)(\d)`),
	}

	e.titleStrategies = []strategy[string]{
		{"dated-listing", e.datedTitle},
		{"leading-text", e.leadingTitle},
	}
	e.bedBathStrategies = []strategy[bedBath]{
		{"yearly-digits", pairAfter(yearlyBedBathRegexp, nil)},
		{"rental-price-digits", pairAfter(e.rentalBedBathRegexp, isCategory(models.CategoryRental))},
		{"off-plan-price-digits", pairAfter(e.offPlanBedBathRegexp, isCategory(models.CategoryOffPlan))},
		{"explicit-mentions", explicitBedBath},
	}
	e.locationStrategies = []strategy[string]{
		{"rental-markers", locationBetween(rentalLocationRegexp, isCategory(models.CategoryRental))},
		{"sale-markers", locationBetween(saleLocationRegexp, notCategory(models.CategoryRental))},
	}
	e.areaStrategies = []strategy[float64]{
		{"number-unit", numberAt(areaRegexp)},
		{"hyphenated-unit", numberAt(hyphenAreaRegexp)},
	}
	return e
}

// Extract parses one card.
func (e *Extractor) Extract(text string) models.FieldSet {
	c := &cardText{raw: text, lower: strings.ToLower(text), category: detectCategory(text)}
	matched := make(map[string]string)

	fs := models.FieldSet{
		Category:     c.category,
		Title:        notAvailable,
		Location:     notAvailable,
		PropertyType: models.PropertyApartment,
		Furnishing:   models.FurnishingUnknown,
		Strategies:   matched,
	}

	if title, name, ok := firstMatch(c, e.titleStrategies); ok {
		fs.Title = e.cleanTitle(title)
		matched["title"] = name
	} else {
		e.logger.Debug("[extractor] title not found")
	}

	fs.Price = e.extractPrice(c)

	if loc, name, ok := firstMatch(c, e.locationStrategies); ok {
		fs.Location = loc
		matched["location"] = name
	} else {
		e.logger.Debug("[extractor] location not found (%s card)", c.category)
	}

	if bb, name, ok := firstMatch(c, e.bedBathStrategies); ok {
		fs.Bedrooms, fs.Bathrooms = bb.beds, bb.baths
		matched["bedrooms"] = name
	} else {
		e.logger.Debug("[extractor] bedrooms/bathrooms not found")
	}

	if area, name, ok := firstMatch(c, e.areaStrategies); ok {
		fs.AreaSqft = area
		matched["area"] = name
	}

	fs.PropertyType = detectPropertyType(c.lower, fs.Location)
	fs.Furnishing = detectFurnishing(c.lower)
	fs.ListingDate, fs.ListingDateRaw = e.extractListingDate(c.raw)

	return fs
}

func detectCategory(text string) models.ListingCategory {
	switch {
	case strings.Contains(text, rentalMarker):
		return models.CategoryRental
	case strings.Contains(text, offPlanMarker):
		return models.CategoryOffPlan
	default:
		return models.CategorySale
	}
}

func isCategory(want models.ListingCategory) func(models.ListingCategory) bool {
	return func(got models.ListingCategory) bool { return got == want }
}

func notCategory(excluded models.ListingCategory) func(models.ListingCategory) bool {
	return func(got models.ListingCategory) bool { return got != excluded }
}

// ── title ────────────────────────────────────────────────────────────────

func (e *Extractor) datedTitle(c *cardText) (string, bool) {
	m := e.datedTitleRegexp.FindStringSubmatch(c.raw)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func (e *Extractor) leadingTitle(c *cardText) (string, bool) {
	m := e.leadingTitleRegexp.FindStringSubmatch(strings.TrimSpace(c.raw))
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// cleanTitle reduces a raw title to "<area>, <city>".
func (e *Extractor) cleanTitle(title string) string {
	title = titlePrefixRegexp.ReplaceAllString(title, "")
	title = collapseRepeats(title)
	title = parentheticRegexp.ReplaceAllString(title, "")
	title = typeWordRegexp.ReplaceAllString(title, " ")
	title = forSaleRentRegexp.ReplaceAllString(title, "")
	title = leadingInRegexp.ReplaceAllString(title, "")
	title = strings.TrimSpace(whitespaceRegexp.ReplaceAllString(title, " "))

	if e.city == "" || strings.HasSuffix(title, e.city) {
		return title
	}
	if title == "" {
		return e.city
	}
	return title + ", " + e.city
}

// collapseRepeats folds a substring glued to a copy of itself, as produced
// when the source markup renders an area name twice ("Damac Hills 2DAMAC Hills 2").
// Repeats must start at a word boundary and span at least minRepeatLen runes.
func collapseRepeats(s string) string {
	r := []rune(s)
	out := make([]rune, 0, len(r))

	for i := 0; i < len(r); {
		if i == 0 || !isWordRune(r[i-1]) {
			if n := repeatLen(r[i:]); n > 0 {
				j := i + n
				for j+n <= len(r) && equalFoldRunes(r[i:i+n], r[j:j+n]) {
					j += n
				}
				out = append(out, r[i:i+n]...)
				i = j
				continue
			}
		}
		out = append(out, r[i])
		i++
	}
	return string(out)
}

func repeatLen(r []rune) int {
	for n := len(r) / 2; n >= minRepeatLen; n-- {
		if equalFoldRunes(r[:n], r[n:2*n]) {
			return n
		}
	}
	return 0
}

func equalFoldRunes(a, b []rune) bool {
	return strings.EqualFold(string(a), string(b))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ── price / numbers ──────────────────────────────────────────────────────

func (e *Extractor) extractPrice(c *cardText) float64 {
	m := e.priceRegexp.FindStringSubmatch(c.raw)
	if len(m) < 2 {
		e.logger.Debug("[extractor] price not found")
		return 0
	}
	v, ok := parseNumber(m[1])
	if !ok {
		e.logger.Debug("[extractor] unparsable price %q", m[1])
		return 0
	}
	return v
}

// parseNumber strips thousands separators and parses a non-negative number.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func numberAt(re *regexp.Regexp) func(c *cardText) (float64, bool) {
	return func(c *cardText) (float64, bool) {
		m := re.FindStringSubmatch(c.raw)
		if len(m) < 2 {
			return 0, false
		}
		return parseNumber(m[1])
	}
}

// ── location ─────────────────────────────────────────────────────────────

func locationBetween(re *regexp.Regexp, applies func(models.ListingCategory) bool) func(c *cardText) (string, bool) {
	return func(c *cardText) (string, bool) {
		if !applies(c.category) {
			return "", false
		}
		m := re.FindStringSubmatch(c.raw)
		if len(m) < 2 {
			return "", false
		}
		loc := strings.TrimSpace(m[1])
		return loc, loc != ""
	}
}

// ── bedrooms / bathrooms ─────────────────────────────────────────────────

func pairAfter(re *regexp.Regexp, applies func(models.ListingCategory) bool) func(c *cardText) (bedBath, bool) {
	return func(c *cardText) (bedBath, bool) {
		if applies != nil && !applies(c.category) {
			return bedBath{}, false
		}
		m := re.FindStringSubmatch(c.raw)
		if len(m) < 3 {
			return bedBath{}, false
		}
		beds, _ := strconv.Atoi(m[1])
		baths, _ := strconv.Atoi(m[2])
		return bedBath{beds: beds, baths: baths}, true
	}
}

func explicitBedBath(c *cardText) (bedBath, bool) {
	var bb bedBath
	bedMatch := explicitBedsRegexp.FindStringSubmatch(c.raw)
	bathMatch := explicitBathsRegexp.FindStringSubmatch(c.raw)
	if bedMatch == nil && bathMatch == nil {
		return bb, false
	}
	if bedMatch != nil {
		bb.beds, _ = strconv.Atoi(bedMatch[1])
	}
	if bathMatch != nil {
		bb.baths, _ = strconv.Atoi(bathMatch[1])
	}
	return bb, true
}

// ── type / furnishing / date ─────────────────────────────────────────────

func detectPropertyType(lowerText, location string) models.PropertyType {
	pt := models.PropertyApartment
	for _, t := range propertyVocabulary {
		if strings.Contains(lowerText, string(t)) {
			pt = t
			break
		}
	}

	if location != "" && location != notAvailable {
		loc := strings.ToLower(location)
		for _, t := range locationOverrides {
			if strings.Contains(loc, string(t)) {
				return t
			}
		}
	}
	return pt
}

func detectFurnishing(lowerText string) models.Furnishing {
	switch {
	case strings.Contains(lowerText, "unfurnished"):
		return models.FurnishingUnfurnished
	case semiFurnishedRegexp.MatchString(lowerText):
		return models.FurnishingSemiFurnished
	case strings.Contains(lowerText, "furnished"):
		return models.FurnishingFurnished
	default:
		return models.FurnishingUnknown
	}
}

// extractListingDate returns the parsed date, or nil with the raw phrase
// when the phrase is present but not a valid calendar date.
func (e *Extractor) extractListingDate(text string) (*models.Date, string) {
	m := listingDateRegexp.FindStringSubmatch(text)
	if len(m) < 4 {
		return nil, ""
	}

	value := m[1] + " " + m[2] + " " + m[3]
	for _, layout := range []string{"2 January 2006", "2 Jan 2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			d := models.NewDate(t)
			return &d, m[0]
		}
	}
	e.logger.Debug("[extractor] unparsable listing date %q", m[0])
	return nil, m[0]
}
